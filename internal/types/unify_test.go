package types

import (
	"testing"

	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/span"
)

func newUnifier() (*Unifier, *diag.Bus) {
	bus := diag.NewBus()
	return NewUnifier(bus, NewSubst()), bus
}

func TestUnifyIdenticalPaths(t *testing.T) {
	u, bus := newUnifier()
	if !u.Unify(Path("Int"), Path("Int"), span.None, span.None) {
		t.Error("identical paths should unify")
	}
	if bus.HasErrors() {
		t.Errorf("unexpected errors: %v", bus.Errors())
	}
}

func TestUnifyMismatchedPathsIsError(t *testing.T) {
	u, bus := newUnifier()
	if u.Unify(Path("Int"), Path("Str"), span.None, span.None) {
		t.Error("distinct paths must not unify")
	}
	if !bus.HasErrors() {
		t.Error("expected a TypeMismatch diagnostic")
	}
}

func TestUnifyVarBindsToConcreteType(t *testing.T) {
	u, bus := newUnifier()
	v := Var(span.Range(1, 0, 1))
	if !u.Unify(v, Path("Int"), span.None, span.None) {
		t.Fatalf("var should bind freely: %v", bus.Errors())
	}
	got := u.Subst().Resolve(v)
	if got.Kind != KindPath || got.Path != "Int" {
		t.Errorf("expected Var to resolve to Int, got %s", got)
	}
}

func TestUnifyOccursCheckRejectsInfiniteType(t *testing.T) {
	u, _ := newUnifier()
	v := Var(span.Range(1, 0, 1))
	list := Param("List", span.None, v)
	if u.Unify(v, list, span.None, span.None) {
		t.Error("binding a var to a type containing itself must fail")
	}
}

func TestUnifyNeverUnifiesWithAnything(t *testing.T) {
	u, bus := newUnifier()
	if !u.Unify(Never, Path("Int"), span.None, span.None) {
		t.Errorf("Never should unify with anything: %v", bus.Errors())
	}
}

func TestUnifyWildcardUnifiesWithAnythingWithoutBinding(t *testing.T) {
	u, bus := newUnifier()
	if !u.Unify(Wildcard, Path("Int"), span.None, span.None) {
		t.Errorf("Wildcard should unify with anything: %v", bus.Errors())
	}
}

func TestUnifyFuncTypesPairwise(t *testing.T) {
	u, bus := newUnifier()
	a := Func([]Type{Path("Int"), Path("Str")}, Path("Bool"))
	b := Func([]Type{Path("Int"), Path("Str")}, Path("Bool"))
	if !u.Unify(a, b, span.None, span.None) {
		t.Errorf("structurally identical func types should unify: %v", bus.Errors())
	}
}

func TestUnifyFuncArityMismatchIsError(t *testing.T) {
	u, bus := newUnifier()
	a := Func([]Type{Path("Int")}, Path("Bool"))
	b := Func([]Type{Path("Int"), Path("Str")}, Path("Bool"))
	if u.Unify(a, b, span.None, span.None) {
		t.Error("mismatched arity must not unify")
	}
	if !bus.HasErrors() {
		t.Error("expected a WrongNumberOfArg diagnostic")
	}
}

func TestUnifyTupleElementwise(t *testing.T) {
	u, bus := newUnifier()
	v := Var(span.Range(1, 0, 1))
	a := TupleOf(v, Path("Str"))
	b := TupleOf(Path("Int"), Path("Str"))
	if !u.Unify(a, b, span.None, span.None) {
		t.Fatalf("tuples should unify elementwise: %v", bus.Errors())
	}
	if got := u.Subst().Resolve(v); got.Kind != KindPath || got.Path != "Int" {
		t.Errorf("expected first tuple slot to bind to Int, got %s", got)
	}
}

func TestInstantiateGivesEachCallSiteFreshVars(t *testing.T) {
	generic := span.Range(1, 10, 11)
	callA := span.Range(1, 20, 21)
	callB := span.Range(1, 30, 31)

	fn := Func([]Type{Var(generic)}, Var(generic))
	instA := Instantiate(fn, []span.Span{generic}, callA)
	instB := Instantiate(fn, []span.Span{generic}, callB)

	if instA.FuncParams[0].DefSpan == instB.FuncParams[0].DefSpan {
		t.Error("separate call sites must receive independent fresh variables")
	}
	if instA.FuncParams[0].DefSpan != instA.FuncReturn.DefSpan {
		t.Error("the same generic parameter within one instantiation must substitute to the same fresh variable")
	}
}
