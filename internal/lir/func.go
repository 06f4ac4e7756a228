package lir

import (
	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/mir"
)

// lowerFunc lowers f's body to bytecode, directly grounded on
// _examples/original_source/crates/lir/src/lib.rs's `add`/`fibo` worked
// examples: the prologue copies every Call(_) argument register (lifted
// captures first, then the function's own declared parameters, matching
// Func.Captures/Func.Params' order) into a fresh Local(_) register and
// pops the Call register it came from, so the body only ever reads
// parameters out of Local registers, never directly out of Call.
func lowerFunc(bus *diag.Bus, f *mir.Func) *Item {
	sess := newSession(bus)

	var code []Bytecode
	argIdx := uint32(0)
	for _, capture := range f.Captures {
		reg := sess.allocLocal(capture)
		code = append(code, Bytecode{Op: OpPush, Src: Call(argIdx), Dst: reg})
		code = append(code, Bytecode{Op: OpPop, Pop: Call(argIdx)})
		argIdx++
	}
	for _, param := range f.Params {
		reg := sess.allocLocal(param)
		code = append(code, Bytecode{Op: OpPush, Src: Call(argIdx), Dst: reg})
		code = append(code, Bytecode{Op: OpPop, Pop: Call(argIdx)})
		argIdx++
	}
	sess.funcArgCount = int(argIdx)

	sess.lowerExpr(f.Body, &code, true /* is_tail_call */)

	return &Item{DefSpan: f.DefSpan, Name: f.Name, Code: code}
}

// lowerLet lowers a top-level let's value as if it were a zero-argument
// function body: a reference to a top-level let is invoked the same way
// a call to a zero-arg function is (PushCallStack + Goto its Label, then
// the callee Returns), so its value lands in Register::Return the same
// way a function's result does.
func lowerLet(bus *diag.Bus, l *mir.Let) *Item {
	sess := newSession(bus)
	var code []Bytecode
	sess.lowerExpr(l.Value, &code, true /* is_tail_call */)
	return &Item{DefSpan: l.DefSpan, Name: l.Name, Code: code}
}
