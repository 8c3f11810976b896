package planner

import (
	"math"
	"testing"

	"github.com/zqlsync/planner/pkg/ast"
	"github.com/zqlsync/planner/pkg/costmodel"
	"github.com/zqlsync/planner/pkg/plandebug"
	"github.com/zqlsync/planner/pkg/refstats"
)

func correlatedJoin(table, column, parentField string, where ast.Condition) ast.Correlated {
	return ast.Correlated{
		Select:      &ast.Select{Table: table, Where: where},
		Correlation: ast.Correlation{Fields: []ast.FieldPair{{Parent: parentField, Child: column}}},
	}
}

func fanOutEngine(rows map[string]float64) *refstats.FakeEngine {
	e := refstats.NewFakeEngine()
	for table, n := range rows {
		e.Scans[table] = refstats.ScanStats{EstimatedRows: n}
	}
	return e
}

func mustPlan(t *testing.T, query *ast.Select, cm costmodel.Model, opts Options) (*ast.Select, *plandebug.Memory) {
	t.Helper()
	mem := plandebug.NewMemory()
	opts.Debug = mem
	planned, err := PlanQuery(query, cm, opts)
	if err != nil {
		t.Fatalf("PlanQuery: %v", err)
	}
	return planned, mem
}

// S1: single join, massively more selective child -> expect it flipped.
func TestPlanQuery_S1SingleJoinFlips(t *testing.T) {
	query, err := ast.NewSelect(&ast.Select{
		Table: "track",
		Where: ast.And{Conds: []ast.Condition{
			correlatedJoin("album", "id", "albumId", ast.Simple{Left: ast.Column{Name: "title"}, Op: ast.Eq, Right: ast.Literal{Value: "Big Ones"}}),
		}},
	})
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	engine := fanOutEngine(map[string]float64{"track": 10000, "album": 10})
	cm := refstats.NewProvider(engine, costmodel.DefaultTuning())

	planned, _ := mustPlan(t, query, cm, Options{})
	join := planned.Where.(ast.And).Conds[0].(ast.Correlated)
	if !join.Flip {
		t.Errorf("expected the album join to flip")
	}
}

// S2: parallel joins, mixed selectivity -> only the more selective one flips.
func TestPlanQuery_S2MixedSelectivity(t *testing.T) {
	query, err := ast.NewSelect(&ast.Select{
		Table: "track",
		Where: ast.And{Conds: []ast.Condition{
			correlatedJoin("album", "id", "albumId", ast.Simple{Left: ast.Column{Name: "title"}, Op: ast.Eq, Right: ast.Literal{Value: "Big Ones"}}),
			correlatedJoin("genre", "id", "genreId", ast.Simple{Left: ast.Column{Name: "name"}, Op: ast.Eq, Right: ast.Literal{Value: "Rock"}}),
		}},
	})
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	engine := fanOutEngine(map[string]float64{"track": 10000, "album": 10, "genre": 5000})
	cm := refstats.NewProvider(engine, costmodel.DefaultTuning())

	planned, _ := mustPlan(t, query, cm, Options{})
	conds := planned.Where.(ast.And).Conds
	album := conds[0].(ast.Correlated)
	genre := conds[1].(ast.Correlated)
	if !album.Flip {
		t.Errorf("expected album join to flip")
	}
	if genre.Flip {
		t.Errorf("expected genre join to stay semi")
	}
}

// S3: OR branch where one branch isn't correlated -> both fixed semi.
func TestPlanQuery_S3DisjunctionFixesSemi(t *testing.T) {
	query, err := ast.NewSelect(&ast.Select{
		Table: "track",
		Where: ast.Or{Conds: []ast.Condition{
			correlatedJoin("album", "id", "albumId", ast.Simple{Left: ast.Column{Name: "title"}, Op: ast.Eq, Right: ast.Literal{Value: "Big Ones"}}),
			correlatedJoin("genre", "id", "genreId", ast.Simple{Left: ast.Column{Name: "name"}, Op: ast.Eq, Right: ast.Literal{Value: "Rock"}}),
		}},
	})
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	// Make this an "OR with a non-correlated sibling" by rebuilding with one
	// simple branch instead, per S3's actual shape.
	query, err = ast.NewSelect(&ast.Select{
		Table: "track",
		Where: ast.Or{Conds: []ast.Condition{
			correlatedJoin("album", "id", "albumId", ast.Simple{Left: ast.Column{Name: "title"}, Op: ast.Eq, Right: ast.Literal{Value: "Big Ones"}}),
			ast.Simple{Left: ast.Column{Name: "year"}, Op: ast.Gt, Right: ast.Literal{Value: 2000}},
		}},
	})
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	engine := fanOutEngine(map[string]float64{"track": 10000, "album": 10})
	cm := refstats.NewProvider(engine, costmodel.DefaultTuning())

	planned, _ := mustPlan(t, query, cm, Options{})
	album := planned.Where.(ast.Or).Conds[0].(ast.Correlated)
	if album.Flip {
		t.Errorf("expected the join under a mixed disjunction to stay semi")
	}
}

// S4: a connection with zero expected matches still yields a finite cost
// and a plan at least as good as baseline.
func TestPlanQuery_S4EmptyResultStaysFinite(t *testing.T) {
	query, err := ast.NewSelect(&ast.Select{
		Table: "track",
		Where: ast.And{Conds: []ast.Condition{
			correlatedJoin("album", "id", "albumId", ast.And{Conds: []ast.Condition{
				correlatedJoin("artist", "id", "artistId", ast.Simple{Left: ast.Column{Name: "name"}, Op: ast.Eq, Right: ast.Literal{Value: "NonexistentArtistZZZZ"}}),
			}}),
		}},
	})
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	engine := fanOutEngine(map[string]float64{"track": 10000, "album": 10000, "artist": 0})
	cm := refstats.NewProvider(engine, costmodel.DefaultTuning())

	_, mem := mustPlan(t, query, cm, Options{})
	for _, a := range mem.Attempts() {
		if math.IsInf(a.TotalCost, 1) || math.IsNaN(a.TotalCost) {
			t.Fatalf("attempt %d has a non-finite cost: %v", a.Attempt, a.TotalCost)
		}
	}
}

// S5: a simple scalar sub-select resolves to a literal equality before
// enumeration. The Scalar node is replaced; the planned AST keeps no copy
// of its inner select.
type fakeResolver struct {
	value any
	found bool
}

func (f fakeResolver) ResolveScalar(map[string]any, string, string) (any, bool, error) {
	return f.value, f.found, nil
}

func TestPlanQuery_S5ScalarResolution(t *testing.T) {
	query, err := ast.NewSelect(&ast.Select{
		Table: "issues",
		Where: ast.Scalar{
			Left: ast.Column{Name: "ownerId"},
			Op:   ast.Eq,
			Select: &ast.Select{
				Table: "users",
				Where: ast.Simple{Left: ast.Column{Name: "email"}, Op: ast.Eq, Right: ast.Literal{Value: "alice@example.com"}},
			},
		},
	})
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	engine := fanOutEngine(map[string]float64{"issues": 100})
	cm := refstats.NewProvider(engine, costmodel.DefaultTuning())

	planned, err := PlanQuery(query, cm, Options{Resolver: fakeResolver{value: 42, found: true}})
	if err != nil {
		t.Fatalf("PlanQuery: %v", err)
	}
	simple, ok := planned.Where.(ast.Simple)
	if !ok {
		t.Fatalf("expected the where-clause to be rewritten to a Simple predicate, got %T", planned.Where)
	}
	if simple.Right.(ast.Literal).Value != 42 {
		t.Errorf("expected the resolved literal 42, got %v", simple.Right)
	}
}

func TestPlanQuery_ScalarNoMatchRewritesAlwaysFalse(t *testing.T) {
	query, err := ast.NewSelect(&ast.Select{
		Table: "issues",
		Where: ast.Scalar{
			Left: ast.Column{Name: "ownerId"},
			Op:   ast.Eq,
			Select: &ast.Select{
				Table: "users",
				Where: ast.Simple{Left: ast.Column{Name: "email"}, Op: ast.Eq, Right: ast.Literal{Value: "ghost@example.com"}},
			},
		},
	})
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	engine := fanOutEngine(map[string]float64{"issues": 100})
	cm := refstats.NewProvider(engine, costmodel.DefaultTuning())

	planned, err := PlanQuery(query, cm, Options{Resolver: fakeResolver{value: nil}})
	if err != nil {
		t.Fatalf("PlanQuery: %v", err)
	}
	simple, ok := planned.Where.(ast.Simple)
	if !ok {
		t.Fatalf("expected a rewritten Simple predicate, got %T", planned.Where)
	}
	if simple.Left.(ast.Literal).Value == simple.Right.(ast.Literal).Value {
		t.Errorf("expected a synthetic always-false predicate, got %v %s %v", simple.Left, simple.Op, simple.Right)
	}
}

// S6: greedy fallback completes and stays within J*J attempts for J=15.
func TestPlanQuery_S6GreedyFallbackBounded(t *testing.T) {
	conds := make([]ast.Condition, 0, 15)
	scans := map[string]float64{"track": 10000}
	for i := 0; i < 15; i++ {
		table := "t" + string(rune('a'+i))
		scans[table] = float64(100 + i)
		conds = append(conds, correlatedJoin(table, "id", "fk"+table, nil))
	}
	query, err := ast.NewSelect(&ast.Select{Table: "track", Where: ast.And{Conds: conds}})
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	engine := fanOutEngine(scans)
	cm := refstats.NewProvider(engine, costmodel.DefaultTuning())

	_, mem := mustPlan(t, query, cm, Options{})
	attempts := mem.Attempts()
	if len(attempts) > 15*15 {
		t.Errorf("expected at most J*J attempts for J=15, got %d", len(attempts))
	}
}

func TestPlanQuery_BaselineDominance(t *testing.T) {
	query, err := ast.NewSelect(&ast.Select{
		Table: "track",
		Where: ast.And{Conds: []ast.Condition{
			correlatedJoin("album", "id", "albumId", ast.Simple{Left: ast.Column{Name: "title"}, Op: ast.Eq, Right: ast.Literal{Value: "Big Ones"}}),
		}},
	})
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	engine := fanOutEngine(map[string]float64{"track": 10000, "album": 10})
	cm := refstats.NewProvider(engine, costmodel.DefaultTuning())

	_, mem := mustPlan(t, query, cm, Options{})
	attempts := mem.Attempts()
	var baseline, best float64 = 0, math.Inf(1)
	for _, a := range attempts {
		if a.Attempt == 0 {
			baseline = a.TotalCost
		}
		if a.TotalCost < best {
			best = a.TotalCost
		}
	}
	if best > baseline {
		t.Fatalf("best attempt cost %v exceeds baseline %v", best, baseline)
	}
}

// Fan-out must actually feed the cost used to pick a plan, not just be
// computed and discarded: the same query plans to a strictly higher baseline
// cost once the child table's fan-out toward the correlation column is
// configured to be non-trivial.
func TestPlanQuery_FanOutScalesCost(t *testing.T) {
	build := func() *ast.Select {
		query, err := ast.NewSelect(&ast.Select{
			Table: "track",
			Where: ast.And{Conds: []ast.Condition{
				correlatedJoin("album", "id", "albumId", ast.Simple{Left: ast.Column{Name: "title"}, Op: ast.Eq, Right: ast.Literal{Value: "Big Ones"}}),
			}},
		})
		if err != nil {
			t.Fatalf("build query: %v", err)
		}
		return query
	}

	baselineCostOf := func(mem *plandebug.Memory) float64 {
		for _, a := range mem.Attempts() {
			if a.Attempt == 0 {
				return a.TotalCost
			}
		}
		t.Fatalf("no attempt 0 recorded")
		return 0
	}

	flatEngine := fanOutEngine(map[string]float64{"track": 10000, "album": 10})
	flatCM := refstats.NewProvider(flatEngine, costmodel.DefaultTuning())
	_, flatMem := mustPlan(t, build(), flatCM, Options{})
	flatCost := baselineCostOf(flatMem)

	fannedEngine := fanOutEngine(map[string]float64{"track": 10000, "album": 10})
	fannedEngine.IndexStats["album"] = []refstats.IndexDistinctness{
		{Name: "id_idx", Columns: []string{"id"}, AvgRowsPerDistinct: []float64{50}},
	}
	fannedCM := refstats.NewProvider(fannedEngine, costmodel.DefaultTuning())
	_, fannedMem := mustPlan(t, build(), fannedCM, Options{})
	fannedCost := baselineCostOf(fannedMem)

	if fannedCost <= flatCost {
		t.Fatalf("expected fan-out to raise the baseline cost: flat=%v fanned=%v", flatCost, fannedCost)
	}
}

func TestPlanQuery_Determinism(t *testing.T) {
	build := func() *ast.Select {
		query, _ := ast.NewSelect(&ast.Select{
			Table: "track",
			Where: ast.And{Conds: []ast.Condition{
				correlatedJoin("album", "id", "albumId", ast.Simple{Left: ast.Column{Name: "title"}, Op: ast.Eq, Right: ast.Literal{Value: "Big Ones"}}),
				correlatedJoin("genre", "id", "genreId", ast.Simple{Left: ast.Column{Name: "name"}, Op: ast.Eq, Right: ast.Literal{Value: "Rock"}}),
			}},
		})
		return query
	}
	engine := fanOutEngine(map[string]float64{"track": 10000, "album": 10, "genre": 5000})
	cm := refstats.NewProvider(engine, costmodel.DefaultTuning())

	first, _ := mustPlan(t, build(), cm, Options{})
	second, _ := mustPlan(t, build(), cm, Options{})
	if !first.Equal(second) {
		t.Fatalf("two invocations with equal inputs produced different plans")
	}
}
