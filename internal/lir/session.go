package lir

import (
	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/mir"
	"github.com/sodigy-lang/sodigy/internal/span"
)

// session tracks the bookkeeping one item's lowering needs: which
// register each local binding lives in, a counter for synthesizing fresh
// local-register slots and local jump labels, and the argument count a
// tail call's epilogue must pop before it jumps away.
type session struct {
	bus *diag.Bus

	localRegisters map[span.Span]Register
	nextLocal      uint32
	labelCounter   uint32
	funcArgCount   int
}

func newSession(bus *diag.Bus) *session {
	return &session{bus: bus, localRegisters: map[span.Span]Register{}}
}

func (s *session) allocLocal(def span.Span) Register {
	r := Local(s.nextLocal)
	s.nextLocal++
	if !def.IsNone() {
		s.localRegisters[def] = r
	}
	return r
}

func (s *session) tmpLabel() Label {
	l := LocalLabel(s.labelCounter)
	s.labelCounter++
	return l
}

// Lower lowers every function and top-level let in prog to bytecode.
func Lower(bus *diag.Bus, prog *mir.Program) *Program {
	out := &Program{}
	for _, f := range prog.Funcs {
		out.Funcs = append(out.Funcs, lowerFunc(bus, f))
	}
	for _, l := range prog.Lets {
		out.Lets = append(out.Lets, lowerLet(bus, l))
	}
	return out
}
