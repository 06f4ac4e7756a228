package types

import "github.com/sodigy-lang/sodigy/internal/span"

// Subst is a substitution mapping unification variables (keyed by their
// def-span) to the type they have been bound to. It is built up
// incrementally during unification and is the backing store callers use to
// resolve a Var to its current binding.
type Subst struct {
	bindings map[span.Span]Type
}

// NewSubst returns an empty substitution.
func NewSubst() *Subst {
	return &Subst{bindings: map[span.Span]Type{}}
}

// Bind records that the variable at defSpan is bound to t.
func (s *Subst) Bind(defSpan span.Span, t Type) {
	s.bindings[defSpan] = t
}

// Lookup returns the binding for a Var's def-span, if any.
func (s *Subst) Lookup(defSpan span.Span) (Type, bool) {
	t, ok := s.bindings[defSpan]
	return t, ok
}

// Resolve walks t, following Var bindings transitively until it reaches a
// concrete type or an unbound Var, resolving nested Param/Tuple/Func
// argument types along the way.
func (s *Subst) Resolve(t Type) Type {
	for t.Kind == KindVar {
		next, ok := s.bindings[t.DefSpan]
		if !ok {
			return t
		}
		t = next
	}
	switch t.Kind {
	case KindParam:
		args := make([]Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = s.Resolve(a)
		}
		t.Args = args
	case KindTuple:
		elems := make([]Type, len(t.Tuple))
		for i, a := range t.Tuple {
			elems[i] = s.Resolve(a)
		}
		t.Tuple = elems
	case KindFunc:
		params := make([]Type, len(t.FuncParams))
		for i, p := range t.FuncParams {
			params[i] = s.Resolve(p)
		}
		t.FuncParams = params
		if t.FuncReturn != nil {
			r := s.Resolve(*t.FuncReturn)
			t.FuncReturn = &r
		}
	}
	return t
}

// Occurs reports whether the variable at defSpan appears anywhere inside t
// (after resolving through existing bindings), which would make a binding
// defSpan -> t an infinite type.
func (s *Subst) Occurs(defSpan span.Span, t Type) bool {
	t = s.Resolve(t)
	switch t.Kind {
	case KindVar:
		return t.DefSpan == defSpan
	case KindParam:
		for _, a := range t.Args {
			if s.Occurs(defSpan, a) {
				return true
			}
		}
	case KindTuple:
		for _, a := range t.Tuple {
			if s.Occurs(defSpan, a) {
				return true
			}
		}
	case KindFunc:
		for _, p := range t.FuncParams {
			if s.Occurs(defSpan, p) {
				return true
			}
		}
		if t.FuncReturn != nil && s.Occurs(defSpan, *t.FuncReturn) {
			return true
		}
	}
	return false
}
