// Command zqlplan is a demo/debugging CLI for the ZQL query planner: it
// plans a fixed sample query against fixture storage statistics and prints
// the chosen plan and its attempt trace.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/zqlsync/planner/pkg/ast"
	"github.com/zqlsync/planner/pkg/costmodel"
	"github.com/zqlsync/planner/pkg/plandebug"
	"github.com/zqlsync/planner/pkg/planner"
	"github.com/zqlsync/planner/pkg/refstats"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: zqlplan <command> [args]")
		fmt.Println("Commands:")
		fmt.Println("  demo [-dump]   - plan the S2 sample query against fixture stats")
		fmt.Println("  trace <file>   - pretty-print a trace previously written by -dump")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "demo":
		dump := len(os.Args) >= 3 && os.Args[2] == "-dump"
		runDemo(dump)
	case "trace":
		if len(os.Args) < 3 {
			fmt.Println("Usage: zqlplan trace <file>")
			os.Exit(1)
		}
		runTrace(os.Args[2])
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

// runDemo reproduces spec.md's S2 scenario: a track selected by exists over
// an album (highly selective) and exists over a genre (weakly selective).
// Expected outcome: the album join flips, the genre join stays semi.
func runDemo(dump bool) {
	engine := refstats.NewFakeEngine()
	engine.Scans["track"] = refstats.ScanStats{EstimatedRows: 10000}
	engine.Scans["album"] = refstats.ScanStats{EstimatedRows: 10}
	engine.Scans["genre"] = refstats.ScanStats{EstimatedRows: 5000}

	tuning := costmodel.DefaultTuning()
	provider := refstats.NewProvider(engine, tuning)

	query, err := ast.NewSelect(&ast.Select{
		Table: "track",
		Where: ast.And{Conds: []ast.Condition{
			ast.Correlated{
				Select:      &ast.Select{Table: "album", Where: ast.Simple{Left: ast.Column{Name: "title"}, Op: ast.Eq, Right: ast.Literal{Value: "Big Ones"}}},
				Correlation: ast.Correlation{Fields: []ast.FieldPair{{Parent: "albumId", Child: "id"}}},
			},
			ast.Correlated{
				Select:      &ast.Select{Table: "genre", Where: ast.Simple{Left: ast.Column{Name: "name"}, Op: ast.Eq, Right: ast.Literal{Value: "Rock"}}},
				Correlation: ast.Correlation{Fields: []ast.FieldPair{{Parent: "genreId", Child: "id"}}},
			},
		}},
	})
	if err != nil {
		log.Fatalf("invalid query: %v", err)
	}

	mem := plandebug.NewMemory()
	planned, err := planner.PlanQuery(query, provider, planner.Options{Debug: mem, Tuning: tuning})
	if err != nil {
		log.Fatalf("plan query: %v", err)
	}

	printPlan(planned)
	fmt.Println()
	fmt.Print(plandebug.FormatAttempts(mem.Attempts()))

	if dump {
		doc, err := plandebug.DumpJSON(mem.Attempts())
		if err != nil {
			log.Fatalf("dump trace: %v", err)
		}
		fmt.Println()
		fmt.Println(doc)
	}
}

func printPlan(sel *ast.Select) {
	fmt.Printf("plan for %s:\n", sel.Table)
	printCondition(sel.Where, 1)
}

func printCondition(c ast.Condition, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	switch v := c.(type) {
	case ast.And:
		for _, inner := range v.Conds {
			printCondition(inner, depth)
		}
	case ast.Or:
		fmt.Printf("%sor:\n", indent)
		for _, inner := range v.Conds {
			printCondition(inner, depth+1)
		}
	case ast.Correlated:
		orientation := "semi"
		if v.Flip {
			orientation = "flipped"
		}
		fmt.Printf("%sjoin %s [%s]\n", indent, v.Select.Table, orientation)
		printCondition(v.Select.Where, depth+1)
	case ast.Simple:
		fmt.Printf("%sfilter %v %s %v\n", indent, v.Left, v.Op, v.Right)
	}
}

func runTrace(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read trace: %v", err)
	}
	events, err := plandebug.LoadJSON(string(data))
	if err != nil {
		log.Fatalf("parse trace: %v", err)
	}
	for _, ev := range events {
		fmt.Printf("attempt %d: cost=%.1f flips=0b%b\n", ev.Attempt, ev.TotalCost, ev.FlipPattern)
	}
}
