package postmir

import (
	"testing"

	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/mir"
	"github.com/sodigy-lang/sodigy/internal/span"
	"github.com/sodigy-lang/sodigy/internal/types"
)

func TestLowerFieldAccessRewritesNameToIndexViaInferredType(t *testing.T) {
	bus := diag.NewBus()
	structDef := span.Range(1, 0, 6)
	lhsSpan := span.Range(1, 20, 21)

	access := &mir.Node{Kind: mir.KindFieldAccess, Span: span.Range(1, 20, 27), Ident: "name"}
	access.AddChild(&mir.Node{Kind: mir.KindIdent, Span: lhsSpan, Ident: "p"})

	typesTbl := map[span.Span]types.Type{lhsSpan: types.Static(structDef)}
	sess := NewSession(bus, typesTbl, []StructShape{
		{DefSpan: structDef, Fields: []string{"age", "name"}},
	})

	out := sess.lowerExpr(access)
	if out.Ident != "_1" {
		t.Fatalf("expected field access rewritten to _1, got %q", out.Ident)
	}
}

func TestLowerFieldAccessFallsBackToUniqueFieldName(t *testing.T) {
	bus := diag.NewBus()
	structDef := span.Range(1, 0, 6)

	access := &mir.Node{Kind: mir.KindFieldAccess, Span: span.Range(1, 20, 27), Ident: "name"}
	access.AddChild(&mir.Node{Kind: mir.KindIdent, Span: span.Range(1, 20, 21), Ident: "p"})

	sess := NewSession(bus, map[span.Span]types.Type{}, []StructShape{
		{DefSpan: structDef, Fields: []string{"age", "name"}},
	})

	out := sess.lowerExpr(access)
	if out.Ident != "_1" {
		t.Fatalf("expected fallback resolution to _1, got %q", out.Ident)
	}
}

func TestLowerFieldAccessLeavesAmbiguousFieldNameAlone(t *testing.T) {
	bus := diag.NewBus()
	a := span.Range(1, 0, 6)
	b := span.Range(1, 100, 106)

	access := &mir.Node{Kind: mir.KindFieldAccess, Span: span.Range(1, 20, 27), Ident: "name"}
	access.AddChild(&mir.Node{Kind: mir.KindIdent, Span: span.Range(1, 20, 21), Ident: "p"})

	sess := NewSession(bus, map[span.Span]types.Type{}, []StructShape{
		{DefSpan: a, Fields: []string{"name"}},
		{DefSpan: b, Fields: []string{"name"}},
	})

	out := sess.lowerExpr(access)
	if out.Ident != "name" {
		t.Fatalf("expected ambiguous field access left by name, got %q", out.Ident)
	}
}

func numLit(s string, n int) *mir.Node {
	return &mir.Node{Kind: mir.KindNumberLit, Span: span.Range(1, n, n+1), Number: s}
}

func ident(name string, at span.Span) *mir.Node {
	return &mir.Node{Kind: mir.KindIdent, Span: at, Ident: name}
}

func TestCompileMatchWithTuplePatternBuildsDecisionTree(t *testing.T) {
	bus := diag.NewBus()
	sess := NewSession(bus, map[span.Span]types.Type{}, nil)

	scrutSpan := span.Range(1, 0, 1)
	armSpan := span.Range(1, 10, 20)
	fallbackSpan := span.Range(1, 30, 31)

	patA := &mir.Node{Kind: mir.KindPatName, Span: armSpan, Ident: "a", DefSpan: armSpan}
	pat := &mir.Node{Kind: mir.KindPatTuple, Span: armSpan}
	pat.AddChild(patA)
	pat.AddChild(numLit("0", 15)) // a refutable slot, so the arm needs a test

	arm := &mir.Node{Kind: mir.KindMatchArm, Span: armSpan}
	arm.AddChild(pat)
	arm.Child = append(arm.Child, nil) // no guard
	arm.AddChild(ident("a", armSpan))

	fallback := &mir.Node{Kind: mir.KindMatchArm, Span: fallbackSpan}
	fallback.AddChild(&mir.Node{Kind: mir.KindPatWildcard, Span: fallbackSpan})
	fallback.Child = append(fallback.Child, nil)
	fallback.AddChild(numLit("0", 30))

	match := &mir.Node{Kind: mir.KindMatch, Span: span.Range(1, 0, 31)}
	match.AddChild(ident("x", scrutSpan))
	match.AddChild(arm)
	match.AddChild(fallback)

	out := sess.compileMatch(match)
	if out.Kind != mir.KindIf {
		t.Fatalf("expected decision tree to start with an If, got %v", out.Kind)
	}
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.Errors())
	}
}

func TestCompileMatchRejectsOrPatternExpansionOverLimit(t *testing.T) {
	bus := diag.NewBus()
	sess := NewSession(bus, map[span.Span]types.Type{}, nil)

	// Build a tuple pattern whose two slots are each a 40-way or-pattern;
	// 40*40 = 1600 > the 1024 limit.
	armSpan := span.Range(1, 10, 20)
	mkOr := func(n int) *mir.Node {
		or := &mir.Node{Kind: mir.KindPatOr, Span: armSpan}
		for i := 0; i < n; i++ {
			or.AddChild(numLit("1", i))
		}
		return or
	}
	pat := &mir.Node{Kind: mir.KindPatTuple, Span: armSpan}
	pat.AddChild(mkOr(40))
	pat.AddChild(mkOr(40))

	arm := &mir.Node{Kind: mir.KindMatchArm, Span: armSpan}
	arm.AddChild(pat)
	arm.Child = append(arm.Child, nil)
	arm.AddChild(numLit("0", 5))

	match := &mir.Node{Kind: mir.KindMatch, Span: span.Range(1, 0, 31)}
	match.AddChild(ident("x", span.Range(1, 0, 1)))
	match.AddChild(arm)

	sess.compileMatch(match)
	if !bus.HasErrors() {
		t.Fatal("expected an unmatchable-complexity error")
	}
}

func TestCompileListPatternWithTrailingRestBindsTail(t *testing.T) {
	bus := diag.NewBus()
	sess := NewSession(bus, map[span.Span]types.Type{}, nil)

	at := span.Range(1, 0, 10)
	restSpan := span.Range(1, 5, 6)
	pat := &mir.Node{Kind: mir.KindPatList, Span: at}
	pat.AddChild(&mir.Node{Kind: mir.KindPatName, Span: at, Ident: "head", DefSpan: at})
	pat.AddChild(&mir.Node{Kind: mir.KindPatRest, Span: restSpan, Ident: "rest", DefSpan: restSpan})

	access := ident("xs", at)
	test, bindings := sess.compilePattern(pat, access)
	if test == nil {
		t.Fatal("expected a length test for a rest pattern")
	}
	var gotRest bool
	for _, b := range bindings {
		if b.name == "rest" {
			gotRest = true
			if b.value.Callable.GenericInfixOp != "list_tail" {
				t.Errorf("expected rest binding via list_tail, got %v", b.value.Callable)
			}
		}
	}
	if !gotRest {
		t.Fatal("expected a binding for the rest pattern")
	}
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.Errors())
	}
}

func TestEliminateDeadLetsDropsUnreachableBinding(t *testing.T) {
	bus := diag.NewBus()
	sess := NewSession(bus, map[span.Span]types.Type{}, nil)

	deadSpan := span.Range(1, 0, 1)
	liveSpan := span.Range(1, 2, 3)

	dead := &mir.Node{Kind: mir.KindLetBinding, Span: deadSpan, Ident: "unused", DefSpan: deadSpan}
	dead.AddChild(numLit("1", 0))

	live := &mir.Node{Kind: mir.KindLetBinding, Span: liveSpan, Ident: "y", DefSpan: liveSpan}
	live.AddChild(numLit("2", 2))

	yRef := &mir.Node{Kind: mir.KindIdent, Span: span.Range(1, 4, 5), Ident: "y", DefSpan: liveSpan}
	block := &mir.Node{Kind: mir.KindBlock, Span: span.Range(1, 0, 5)}
	block.AddChild(dead)
	block.AddChild(live)
	block.AddChild(yRef)

	sess.lowerExpr(block)

	if len(block.Child) != 2 {
		t.Fatalf("expected the unused binding to be dropped, got %d children", len(block.Child))
	}
	if len(bus.Warnings()) == 0 {
		t.Fatal("expected an unused-binding warning")
	}
}
