package types

import (
	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/span"
)

// Unifier drives Hindley-Milner unification against a shared Subst,
// reporting mismatches to a diag.Bus. It is the Sodigy analogue of a
// classic Algorithm W unifier: Var binds with an occurs check, structural
// variants unify pairwise by shape, Never unifies with anything, and
// Wildcard unifies with anything without producing a binding.
type Unifier struct {
	bus   *diag.Bus
	subst *Subst
}

// NewUnifier returns a Unifier backed by subst, reporting to bus.
func NewUnifier(bus *diag.Bus, subst *Subst) *Unifier {
	return &Unifier{bus: bus, subst: subst}
}

// Subst returns the substitution this Unifier is accumulating bindings into.
func (u *Unifier) Subst() *Subst { return u.subst }

// Unify attempts to make a and b equal, recording variable bindings into
// the Unifier's substitution and reporting a TypeMismatch diagnostic
// (anchored at primary, with aux as the secondary span) on failure. It
// returns true on success.
func (u *Unifier) Unify(a, b Type, primary, aux span.Span) bool {
	a = u.subst.Resolve(a)
	b = u.subst.Resolve(b)

	if a.Kind == KindWildcard || b.Kind == KindWildcard {
		return true
	}
	if a.Kind == KindNever || b.Kind == KindNever {
		return true
	}
	if a.Kind == KindVar {
		return u.bindVar(a, b, primary, aux)
	}
	if b.Kind == KindVar {
		return u.bindVar(b, a, primary, aux)
	}

	if a.Kind != b.Kind {
		u.mismatch(a, b, primary, aux)
		return false
	}

	switch a.Kind {
	case KindPath:
		if a.Path != b.Path {
			u.mismatch(a, b, primary, aux)
			return false
		}
		return true

	case KindStatic:
		if a.DefSpan.Key() != b.DefSpan.Key() {
			u.mismatch(a, b, primary, aux)
			return false
		}
		return true

	case KindGenericInstance:
		// Two pending instantiations unify only if they name the same
		// generic item; their concrete bindings are reconciled once
		// monomorphization substitutes the call-site arguments.
		if a.GenericDef.Key() != b.GenericDef.Key() {
			u.mismatch(a, b, primary, aux)
			return false
		}
		return true

	case KindParam:
		if a.Constructor != b.Constructor || len(a.Args) != len(b.Args) {
			u.bus.ErrorWithAux(diag.KindTypeMismatch, primary, []span.Span{aux}, "parameterized type",
				"cannot unify %s with %s", a.String(), b.String())
			return false
		}
		ok := true
		for i := range a.Args {
			if !u.Unify(a.Args[i], b.Args[i], primary, aux) {
				ok = false
			}
		}
		return ok

	case KindTuple:
		if len(a.Tuple) != len(b.Tuple) {
			u.bus.Errorf(diag.KindWrongNumberOfArg, primary,
				"tuple of %d elements cannot unify with tuple of %d elements", len(a.Tuple), len(b.Tuple))
			return false
		}
		ok := true
		for i := range a.Tuple {
			if !u.Unify(a.Tuple[i], b.Tuple[i], primary, aux) {
				ok = false
			}
		}
		return ok

	case KindFunc:
		if len(a.FuncParams) != len(b.FuncParams) {
			u.bus.Errorf(diag.KindWrongNumberOfArg, primary,
				"function of %d parameters cannot unify with function of %d parameters",
				len(a.FuncParams), len(b.FuncParams))
			return false
		}
		ok := true
		for i := range a.FuncParams {
			if !u.Unify(a.FuncParams[i], b.FuncParams[i], primary, aux) {
				ok = false
			}
		}
		if a.FuncReturn != nil && b.FuncReturn != nil {
			if !u.Unify(*a.FuncReturn, *b.FuncReturn, primary, aux) {
				ok = false
			}
		}
		return ok

	default:
		return true
	}
}

func (u *Unifier) bindVar(v, t Type, primary, aux span.Span) bool {
	if t.Kind == KindVar && t.DefSpan == v.DefSpan {
		return true
	}
	if u.subst.Occurs(v.DefSpan, t) {
		u.bus.Errorf(diag.KindTypeMismatch, primary, "infinite type: %s occurs in %s", v.String(), t.String())
		return false
	}
	u.subst.Bind(v.DefSpan, t)
	return true
}

func (u *Unifier) mismatch(a, b Type, primary, aux span.Span) {
	u.bus.ErrorWithAux(diag.KindTypeMismatch, primary, []span.Span{aux}, "expected type",
		"expected %s, found %s", b.String(), a.String())
}
