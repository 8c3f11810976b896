package ast

import (
	"errors"
	"testing"

	"github.com/zqlsync/planner/pkg/planerr"
)

func sampleSelect() *Select {
	return &Select{
		Table: "track",
		Order: []OrderTerm{{Column: "id"}},
		Where: And{Conds: []Condition{
			Correlated{
				Select:      &Select{Table: "album", Where: Simple{Left: Column{Name: "title"}, Op: Eq, Right: Literal{Value: "Big Ones"}}},
				Correlation: Correlation{Fields: []FieldPair{{Parent: "albumId", Child: "id"}}},
			},
		}},
	}
}

func TestNewSelect_RejectsNilAndEmptyTable(t *testing.T) {
	if _, err := NewSelect(nil); !errors.Is(err, planerr.ErrInvalidAst) {
		t.Errorf("expected ErrInvalidAst for nil select, got %v", err)
	}
	if _, err := NewSelect(&Select{}); !errors.Is(err, planerr.ErrInvalidAst) {
		t.Errorf("expected ErrInvalidAst for empty table, got %v", err)
	}
}

func TestNewSelect_RejectsCursorWidthMismatch(t *testing.T) {
	sel := &Select{
		Table: "track",
		Order: []OrderTerm{{Column: "id"}},
		Start: &Cursor{Row: []any{1, 2}},
	}
	if _, err := NewSelect(sel); !errors.Is(err, planerr.ErrInvalidAst) {
		t.Errorf("expected ErrInvalidAst for cursor width mismatch, got %v", err)
	}
}

func TestNewSelect_RejectsEmptyCorrelation(t *testing.T) {
	sel := &Select{
		Table: "track",
		Where: Correlated{Select: &Select{Table: "album"}, Correlation: Correlation{}},
	}
	if _, err := NewSelect(sel); !errors.Is(err, planerr.ErrInvalidAst) {
		t.Errorf("expected ErrInvalidAst for empty correlation, got %v", err)
	}
}

func TestNewSelect_AcceptsSample(t *testing.T) {
	if _, err := NewSelect(sampleSelect()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSelect_CloneIsIndependent(t *testing.T) {
	sel := sampleSelect()
	clone := sel.Clone()
	if !sel.Equal(clone) {
		t.Fatalf("clone should be structurally equal to original")
	}
	clone.Where.(And).Conds[0].(Correlated).Select.Table = "mutated"
	if sel.Where.(And).Conds[0].(Correlated).Select.Table == "mutated" {
		t.Fatalf("mutating the clone's sub-select mutated the original")
	}
}

func TestSelect_Equal(t *testing.T) {
	a := sampleSelect()
	b := sampleSelect()
	if !a.Equal(b) {
		t.Fatalf("structurally identical selects should be equal")
	}
	b.Table = "other"
	if a.Equal(b) {
		t.Fatalf("selects with different tables should not be equal")
	}
}

func TestSelect_StableHash(t *testing.T) {
	a := sampleSelect()
	b := sampleSelect()
	if a.StableHash() != b.StableHash() {
		t.Fatalf("structurally equal selects must hash equal")
	}
	b.Table = "other"
	if a.StableHash() == b.StableHash() {
		t.Fatalf("structurally different selects should not collide in this test")
	}
}

func TestSelect_DeepMap(t *testing.T) {
	sel := sampleSelect()
	mapped := sel.DeepMap(NameMapper{
		Table:  func(table string) string { return "srv_" + table },
		Column: func(table, column string) string { return table + "_" + column },
	})
	if mapped.Table != "srv_track" {
		t.Errorf("table not mapped: got %q", mapped.Table)
	}
	if sel.Table != "track" {
		t.Errorf("DeepMap mutated the original select")
	}
	corr := mapped.Where.(And).Conds[0].(Correlated)
	if corr.Correlation.Fields[0].Parent != "track_albumId" {
		t.Errorf("correlation parent field not mapped: got %q", corr.Correlation.Fields[0].Parent)
	}
	if corr.Correlation.Fields[0].Child != "album_id" {
		t.Errorf("correlation child field not mapped: got %q", corr.Correlation.Fields[0].Child)
	}
}
