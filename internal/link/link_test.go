package link

import (
	"testing"

	"github.com/sodigy-lang/sodigy/internal/lir"
	"github.com/sodigy-lang/sodigy/internal/span"
	"github.com/sodigy-lang/sodigy/internal/value"
)

func TestLinkAddsAnEntryLabelPerItem(t *testing.T) {
	a := &lir.Item{DefSpan: span.Range(1, 0, 1), Name: "a", Code: []lir.Bytecode{
		{Op: lir.OpPushConst, Const: value.Scalar(1), Dest: lir.Return},
		{Op: lir.OpReturn},
	}}
	b := &lir.Item{DefSpan: span.Range(1, 10, 11), Name: "b", Code: []lir.Bytecode{
		{Op: lir.OpPushConst, Const: value.Scalar(2), Dest: lir.Return},
		{Op: lir.OpReturn},
	}}

	exe := Link(&lir.Program{Funcs: []*lir.Item{a, b}})

	// Each item contributes its own Label(Global) marker plus its own
	// instructions, so the stream should be longer than the sum of the
	// raw per-item code.
	if len(exe.Bytecode) <= len(a.Code)+len(b.Code) {
		t.Fatalf("expected the linked stream to include each item's entry label, got %d instructions", len(exe.Bytecode))
	}
}

func TestLinkFlattensGlobalCallTarget(t *testing.T) {
	calleeSpan := span.Range(1, 100, 110)
	callee := &lir.Item{DefSpan: calleeSpan, Name: "callee", Code: []lir.Bytecode{
		{Op: lir.OpReturn},
	}}
	caller := &lir.Item{DefSpan: span.Range(1, 0, 10), Name: "caller", Code: []lir.Bytecode{
		{Op: lir.OpGoto, Target: lir.GlobalLabel(calleeSpan)},
	}}

	exe := Link(&lir.Program{Funcs: []*lir.Item{caller, callee}})

	var found bool
	for _, bc := range exe.Bytecode {
		if bc.Op == lir.OpGoto {
			if bc.Target.Kind != lir.LabelFlatten {
				t.Fatalf("expected the Goto's target to be flattened, got %#v", bc.Target)
			}
			found = true
		}
	}
	if !found {
		t.Fatal("expected a Goto instruction in the linked stream")
	}
}

func TestLinkResolvesFuncPointerConstantProgramCounter(t *testing.T) {
	target := span.Range(1, 50, 60)
	targetItem := &lir.Item{DefSpan: target, Name: "target", Code: []lir.Bytecode{
		{Op: lir.OpReturn},
	}}
	withPtr := &lir.Item{DefSpan: span.Range(1, 0, 10), Name: "f", Code: []lir.Bytecode{
		{Op: lir.OpPushConst, Const: value.FuncPointer(target), Dest: lir.Return},
	}}

	exe := Link(&lir.Program{Funcs: []*lir.Item{withPtr, targetItem}})

	var found bool
	for _, bc := range exe.Bytecode {
		if bc.Op == lir.OpPushConst && bc.Const.Kind == value.KindFuncPointer {
			if !bc.Const.FuncPCKnown {
				t.Fatal("expected the FuncPointer constant's program counter to be resolved")
			}
			found = true
		}
	}
	if !found {
		t.Fatal("expected a PushConst FuncPointer instruction in the linked stream")
	}
}

func TestLinkFlattensLocalLabelWithinOneItem(t *testing.T) {
	label := lir.LocalLabel(0)
	item := &lir.Item{DefSpan: span.Range(1, 0, 5), Name: "f", Code: []lir.Bytecode{
		{Op: lir.OpJumpIf, Cond: lir.Return, Target: label},
		{Op: lir.OpPushConst, Const: value.Scalar(0), Dest: lir.Return},
		{Op: lir.OpLabel, Target: label},
		{Op: lir.OpReturn},
	}}

	exe := Link(&lir.Program{Funcs: []*lir.Item{item}})

	for _, bc := range exe.Bytecode {
		if bc.Op == lir.OpJumpIf && bc.Target.Kind != lir.LabelFlatten {
			t.Fatalf("expected a local label to be flattened, got %#v", bc.Target)
		}
	}
}
