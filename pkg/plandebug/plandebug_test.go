package plandebug

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel"

	"github.com/zqlsync/planner/pkg/costmodel"
)

func TestMemory_RecordsAttemptsFailuresAndCosts(t *testing.T) {
	mem := NewMemory()
	session := NewSession()

	mem.PlanComplete(session, "root", AttemptEvent{Attempt: 0, FlipPattern: 0, TotalCost: 100})
	mem.AttemptFailed(session, "root", AttemptFailureEvent{Attempt: 1, Err: errors.New("boom")})
	mem.RecordConnectionCost(session, "root", 0, "track", nil, costmodel.Estimate{Rows: 10}, nil)

	if got := mem.Attempts(); len(got) != 1 || got[0].TotalCost != 100 {
		t.Fatalf("expected one recorded attempt with cost 100, got %+v", got)
	}
	if got := mem.Failures(); len(got) != 1 || got[0].Err == nil {
		t.Fatalf("expected one recorded failure, got %+v", got)
	}
	if got := mem.ConnectionCosts(); len(got) != 1 || got[0].Table != "track" {
		t.Fatalf("expected one recorded connection cost for track, got %+v", got)
	}
}

func TestMemory_AttemptsReturnsACopy(t *testing.T) {
	mem := NewMemory()
	mem.PlanComplete(NewSession(), "root", AttemptEvent{Attempt: 0})
	first := mem.Attempts()
	mem.PlanComplete(NewSession(), "root", AttemptEvent{Attempt: 1})
	if len(first) != 1 {
		t.Fatalf("expected the slice returned by a prior Attempts() call to stay length 1, got %d", len(first))
	}
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(Noop); !ok {
		t.Errorf("expected OrNoop(nil) to return Noop")
	}
	mem := NewMemory()
	if OrNoop(mem) != Accumulator(mem) {
		t.Errorf("expected OrNoop to pass a non-nil accumulator through unchanged")
	}
}

func TestDumpAndLoadJSON_RoundTrip(t *testing.T) {
	mem := NewMemory()
	session := NewSession()
	want := AttemptEvent{
		Attempt:     2,
		FlipPattern: 0b101,
		TotalCost:   12345.5,
		Joins: []JoinDecision{
			{JoinID: 0, Flipped: true},
			{JoinID: 1, Flipped: false},
		},
	}
	mem.PlanComplete(session, "root", want)

	doc, err := DumpJSON(mem.Attempts())
	if err != nil {
		t.Fatalf("DumpJSON: %v", err)
	}
	events, err := LoadJSON(doc)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one round-tripped event, got %d", len(events))
	}
	if diff := cmp.Diff(want, events[0]); diff != "" {
		t.Errorf("round-tripped attempt event differs (-want +got):\n%s", diff)
	}
}

func TestLoadJSON_RejectsInvalidDocument(t *testing.T) {
	if _, err := LoadJSON("not json"); err == nil {
		t.Errorf("expected an error for an invalid trace document")
	}
}

func TestFormatAttempts(t *testing.T) {
	mem := NewMemory()
	mem.PlanComplete(NewSession(), "root", AttemptEvent{
		Attempt: 0, FlipPattern: 0b10, TotalCost: 5000,
		Joins: []JoinDecision{{JoinID: 0, Flipped: false}, {JoinID: 1, Flipped: true}},
	})

	out := FormatAttempts(mem.Attempts())
	if !strings.Contains(out, "attempt 0") {
		t.Errorf("expected the formatted trace to mention the attempt number, got %q", out)
	}
	if !strings.Contains(out, "flipped") || !strings.Contains(out, "semi") {
		t.Errorf("expected the formatted trace to show both join orientations, got %q", out)
	}
}

func TestTracing_DoesNotPanicAgainstNoopTracer(t *testing.T) {
	tracing := NewTracing(otel.Tracer("zqlplan-test"))
	session := NewSession()

	tracing.PlanComplete(session, "root", AttemptEvent{Attempt: 0, TotalCost: 1})
	tracing.AttemptFailed(session, "root", AttemptFailureEvent{Attempt: 1, Err: errors.New("boom")})
	tracing.RecordConnectionCost(session, "root", 0, "track", &costmodel.Constraint{Columns: []string{"id"}}, costmodel.Estimate{Rows: 1}, nil)
}
