// Package link implements the final linking pass: concatenating every
// lowered item's bytecode into one flat instruction stream and resolving
// every label and function-pointer constant to an absolute index into
// that stream.
//
// Directly grounded on
// _examples/original_source/crates/bytecode/src/link.rs's
// `Session::link`.
package link

import (
	"github.com/sodigy-lang/sodigy/internal/lir"
	"github.com/sodigy-lang/sodigy/internal/span"
	"github.com/sodigy-lang/sodigy/internal/value"
)

// AssertEntry names one top-level assertion and the instruction index
// its body begins at. Link does not fill in Executable.Asserts, so the
// table is always empty.
type AssertEntry struct {
	Name    string
	EntryPC int
}

// Executable is the fully linked program, ready for a runtime to
// execute starting at any item's entry point.
type Executable struct {
	Bytecode []lir.Bytecode
	Asserts  []AssertEntry
}

type labelKey struct {
	item  span.Span
	label lir.Label
}

// Link concatenates prog's funcs and top-level lets into one bytecode
// stream, flattens every Local/Global label reference into a
// Label::Flatten absolute index, and fills in every unresolved
// FuncPointer constant's program counter from the entry point recorded
// for its definition span — the same three-pass structure `link.rs`
// uses (concatenate + record label positions, rewrite jump targets,
// resolve FuncPointer constants).
func Link(prog *lir.Program) *Executable {
	items := make([]*lir.Item, 0, len(prog.Funcs)+len(prog.Lets))
	items = append(items, prog.Funcs...)
	items = append(items, prog.Lets...)

	var out []lir.Bytecode
	labelMap := map[labelKey]int{}
	funcPointerMap := map[span.Span]int{}

	for _, item := range items {
		// Bytecode::Label does nothing at runtime; it exists only so
		// this pass can record where each item (and each label inside
		// it) landed in the flattened stream.
		out = append(out, lir.Bytecode{Op: lir.OpLabel, Target: lir.GlobalLabel(item.DefSpan)})
		funcPointerMap[item.DefSpan] = len(out)

		curLabel := labelKey{item: item.DefSpan, label: lir.GlobalLabel(item.DefSpan)}
		lastIndex := 0
		for i, bc := range item.Code {
			if bc.Op != lir.OpLabel {
				continue
			}
			labelMap[curLabel] = len(out)
			out = append(out, item.Code[lastIndex:i]...)
			lastIndex = i + 1
			curLabel = labelKey{item: item.DefSpan, label: bc.Target}
		}
		labelMap[curLabel] = len(out)
		out = append(out, item.Code[lastIndex:]...)
	}

	var curItem span.Span
	for i := range out {
		bc := &out[i]
		switch bc.Op {
		case lir.OpGoto, lir.OpJumpIf, lir.OpPushCallStack:
			bc.Target = flattenLabel(bc.Target, curItem, labelMap)
		case lir.OpLabel:
			if bc.Target.Kind == lir.LabelGlobal {
				curItem = bc.Target.DefSpan
			}
		case lir.OpPushConst:
			if bc.Const.Kind == value.KindFuncPointer && !bc.Const.FuncPCKnown {
				if pc, ok := funcPointerMap[bc.Const.FuncDefSpan]; ok {
					bc.Const.FuncPC = pc
					bc.Const.FuncPCKnown = true
				}
			}
		}
	}

	return &Executable{Bytecode: out}
}

// flattenLabel resolves a jump target recorded during lowering into its
// absolute position in the flattened stream. A Local label is scoped to
// the item currently being emitted (curItem); a Global label names
// another item's own entry label directly; Intrinsic and an
// already-Flatten label pass through unchanged (an intrinsic is
// resolved by name at runtime, not by address).
func flattenLabel(target lir.Label, curItem span.Span, labelMap map[labelKey]int) lir.Label {
	switch target.Kind {
	case lir.LabelLocal:
		if idx, ok := labelMap[labelKey{item: curItem, label: target}]; ok {
			return lir.Label{Kind: lir.LabelFlatten, Flat: idx}
		}
		return target
	case lir.LabelGlobal:
		key := labelKey{item: target.DefSpan, label: lir.GlobalLabel(target.DefSpan)}
		if idx, ok := labelMap[key]; ok {
			return lir.Label{Kind: lir.LabelFlatten, Flat: idx}
		}
		return target
	default:
		return target
	}
}
