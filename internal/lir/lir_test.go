package lir

import (
	"testing"

	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/mir"
	"github.com/sodigy-lang/sodigy/internal/span"
)

func numLit(n string, at int) *mir.Node {
	return &mir.Node{Kind: mir.KindNumberLit, Span: span.Range(1, at, at+1), Number: n}
}

func TestLowerSimpleFuncCopiesParamsAndReturns(t *testing.T) {
	bus := diag.NewBus()
	p := span.Range(1, 0, 1)
	f := &mir.Func{
		DefSpan: span.Range(1, 10, 13),
		Name:    "id",
		Params:  []span.Span{p},
		Body:    &mir.Node{Kind: mir.KindIdent, Span: p, DefSpan: p},
	}

	item := lowerFunc(bus, f)
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.Errors())
	}

	// Prologue: Push Call(0) -> Local(0), Pop Call(0).
	if item.Code[0].Op != OpPush || item.Code[0].Src != Call(0) || item.Code[0].Dst != Local(0) {
		t.Fatalf("expected prologue to copy Call(0) into Local(0), got %#v", item.Code[0])
	}
	if item.Code[1].Op != OpPop || item.Code[1].Pop != Call(0) {
		t.Fatalf("expected prologue to pop Call(0), got %#v", item.Code[1])
	}

	// Body (tail position): push the param's Local register to Return,
	// then exit.
	last := item.Code[len(item.Code)-1]
	if last.Op != OpReturn {
		t.Fatalf("expected the func to end with Return, got %#v", last)
	}
}

func TestLowerIfBuildsJumpIfOverBothBranches(t *testing.T) {
	bus := diag.NewBus()
	f := &mir.Func{
		DefSpan: span.Range(1, 0, 3),
		Name:    "f",
		Body: &mir.Node{Kind: mir.KindIf, Span: span.Range(1, 0, 10), Child: []*mir.Node{
			numLit("1", 0),
			numLit("2", 2),
			numLit("3", 4),
		}},
	}

	item := lowerFunc(bus, f)
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.Errors())
	}

	var sawJumpIf, sawGoto bool
	for _, b := range item.Code {
		if b.Op == OpJumpIf {
			sawJumpIf = true
		}
		if b.Op == OpGoto {
			sawGoto = true
		}
	}
	if !sawJumpIf {
		t.Fatal("expected a JumpIf testing the condition")
	}
	if sawGoto {
		t.Fatal("expected no Goto: both branches are in tail position and exit via Return")
	}
}

func TestLowerStaticCallNonTailUsesCallStackRoundTrip(t *testing.T) {
	bus := diag.NewBus()
	calleeSpan := span.Range(1, 100, 110)

	call := &mir.Node{Kind: mir.KindCall, Span: span.Range(1, 0, 20),
		Callable: mir.Callable{DefSpan: calleeSpan},
		Child:    []*mir.Node{{Kind: mir.KindIdent, Span: span.Range(1, 0, 1), DefSpan: calleeSpan}, numLit("1", 5)}}

	block := &mir.Node{Kind: mir.KindBlock, Span: span.Range(1, 0, 30), Child: []*mir.Node{
		call,
		numLit("0", 25), // tail value, not the call
	}}

	f := &mir.Func{DefSpan: span.Range(1, 0, 3), Name: "f", Body: block}
	item := lowerFunc(bus, f)
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.Errors())
	}

	var sawPushCallStack, sawPopCallStack bool
	for _, b := range item.Code {
		if b.Op == OpPushCallStack {
			sawPushCallStack = true
		}
		if b.Op == OpPopCallStack {
			sawPopCallStack = true
		}
	}
	if !sawPushCallStack || !sawPopCallStack {
		t.Fatal("expected a non-tail call to round-trip through the call stack")
	}
}

func TestLowerTailCallPopsArgsAndGotosWithoutCallStack(t *testing.T) {
	bus := diag.NewBus()
	calleeSpan := span.Range(1, 100, 110)
	paramSpan := span.Range(1, 0, 1)

	call := &mir.Node{Kind: mir.KindCall, Span: span.Range(1, 0, 20),
		Callable: mir.Callable{DefSpan: calleeSpan},
		Child:    []*mir.Node{{Kind: mir.KindIdent, Span: span.Range(1, 0, 1), DefSpan: calleeSpan}, {Kind: mir.KindIdent, Span: paramSpan, DefSpan: paramSpan}}}

	f := &mir.Func{DefSpan: span.Range(1, 0, 3), Name: "f", Params: []span.Span{paramSpan}, Body: call}
	item := lowerFunc(bus, f)
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.Errors())
	}

	last := item.Code[len(item.Code)-1]
	if last.Op != OpGoto {
		t.Fatalf("expected a tail call to end in a bare Goto, got %#v", last)
	}
	for _, b := range item.Code {
		if b.Op == OpPushCallStack || b.Op == OpReturn {
			t.Fatalf("expected no call-stack round trip or Return in a tail call, got %#v", b)
		}
	}
}

func TestLowerInfixOpDispatchesToIntrinsicLabel(t *testing.T) {
	bus := diag.NewBus()
	add := &mir.Node{Kind: mir.KindInfixOp, Span: span.Range(1, 0, 5),
		Callable: mir.Callable{IsGeneric: true, GenericInfixOp: "+"},
		Child:    []*mir.Node{numLit("1", 0), numLit("2", 2)}}

	f := &mir.Func{DefSpan: span.Range(1, 0, 3), Name: "f", Body: add}
	item := lowerFunc(bus, f)
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.Errors())
	}

	var found bool
	for _, b := range item.Code {
		if b.Op == OpGoto && b.Target.Kind == LabelIntrinsic && b.Target.Intrinsic == "+" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a Goto to the \"+\" intrinsic label")
	}
}

func TestLowerBlockDropsLetBindingIntoFreshLocalRegister(t *testing.T) {
	bus := diag.NewBus()
	letSpan := span.Range(1, 2, 3)

	let := &mir.Node{Kind: mir.KindLetBinding, Span: letSpan, Ident: "y", DefSpan: letSpan}
	let.AddChild(numLit("2", 2))

	yRef := &mir.Node{Kind: mir.KindIdent, Span: span.Range(1, 4, 5), DefSpan: letSpan}
	block := &mir.Node{Kind: mir.KindBlock, Span: span.Range(1, 0, 5), Child: []*mir.Node{let, yRef}}

	f := &mir.Func{DefSpan: span.Range(1, 0, 3), Name: "f", Body: block}
	item := lowerFunc(bus, f)
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.Errors())
	}

	var sawLocalWrite bool
	for _, b := range item.Code {
		if b.Op == OpPush && b.Dst.Kind == RegLocal {
			sawLocalWrite = true
		}
	}
	if !sawLocalWrite {
		t.Fatal("expected the let binding's value to be pushed into a Local register")
	}
}

func TestLowerConstEncodesIntegerViaValuePackage(t *testing.T) {
	bus := diag.NewBus()
	f := &mir.Func{DefSpan: span.Range(1, 0, 3), Name: "f", Body: numLit("255", 0)}
	item := lowerFunc(bus, f)
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.Errors())
	}
	if item.Code[0].Op != OpPushConst {
		t.Fatalf("expected the literal to lower to PushConst, got %#v", item.Code[0])
	}
}
