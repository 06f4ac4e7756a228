package postmir

import (
	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/mir"
	"github.com/sodigy-lang/sodigy/internal/span"
)

// eliminateDeadLets drops local let-bindings in block n that are
// unreachable from the block's return expression (its last child, or any
// other non-let statement kept for its side effects), emitting an
// unused-binding warning for each one dropped. It works backwards: a
// binding is live if its name is referenced by something already known
// to be live, so one reverse pass over the block's statements is
// sufficient to compute the full reachable set.
func (s *Session) eliminateDeadLets(n *mir.Node) {
	live := map[span.Span]bool{}
	for _, c := range n.Child {
		if c.Kind != mir.KindLetBinding {
			markLive(c, live)
		}
	}

	// Walk in reverse so a let's own liveness is settled before we fold
	// its value's references into the live set.
	dropped := make([]bool, len(n.Child))
	for i := len(n.Child) - 1; i >= 0; i-- {
		c := n.Child[i]
		if c.Kind != mir.KindLetBinding {
			continue
		}
		if live[c.DefSpan.Key()] {
			markLive(c.Child[0], live)
			continue
		}
		s.bus.Warnf(diag.KindUnusedBinding, c.Span, "local binding %q is never used", c.Ident)
		dropped[i] = true
	}
	kept := make([]*mir.Node, 0, len(n.Child))
	for i, c := range n.Child {
		if dropped[i] {
			continue
		}
		kept = append(kept, c)
	}
	n.Child = kept
}

func markLive(n *mir.Node, live map[span.Span]bool) {
	if n == nil {
		return
	}
	if n.Kind == mir.KindIdent && !n.DefSpan.IsNone() {
		live[n.DefSpan.Key()] = true
	}
	for _, c := range n.Child {
		markLive(c, live)
	}
}
