package types

import "github.com/sodigy-lang/sodigy/internal/span"

// Instantiate produces a fresh copy of a generic item's type, replacing
// each generic parameter (keyed by its own def-span) with a fresh Var
// anchored at callSite. Every call site of a generic function gets its own
// independent set of variables, so unifying one call's argument types never
// constrains another call's.
func Instantiate(t Type, generics []span.Span, callSite span.Span) Type {
	if len(generics) == 0 {
		return t
	}
	fresh := map[span.Span]Type{}
	for i, g := range generics {
		fresh[g] = Var(span.Range(callSite.File(), callSite.Start()+i, callSite.Start()+i))
	}
	return substituteGenerics(t, fresh)
}

func substituteGenerics(t Type, fresh map[span.Span]Type) Type {
	switch t.Kind {
	case KindPath:
		// A bare path can itself name a generic parameter (e.g. `T`); such
		// paths are rewritten to the Var during HIR->MIR lowering where the
		// path's def-span is already known, so Instantiate's job here is
		// limited to structural recursion.
		return t
	case KindParam:
		args := make([]Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = substituteGenerics(a, fresh)
		}
		t.Args = args
		return t
	case KindTuple:
		elems := make([]Type, len(t.Tuple))
		for i, a := range t.Tuple {
			elems[i] = substituteGenerics(a, fresh)
		}
		t.Tuple = elems
		return t
	case KindFunc:
		params := make([]Type, len(t.FuncParams))
		for i, p := range t.FuncParams {
			params[i] = substituteGenerics(p, fresh)
		}
		t.FuncParams = params
		if t.FuncReturn != nil {
			r := substituteGenerics(*t.FuncReturn, fresh)
			t.FuncReturn = &r
		}
		return t
	case KindVar:
		if repl, ok := fresh[t.DefSpan]; ok {
			return repl
		}
		return t
	default:
		return t
	}
}
