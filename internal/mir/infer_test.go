package mir

import (
	"testing"

	"github.com/sodigy-lang/sodigy/internal/types"
)

func inferSrc(t *testing.T, src string) (*Program, *Inferrer) {
	t.Helper()
	prog, bus := lowerSrc(t, src)
	if bus.HasErrors() {
		t.Fatalf("unexpected lower errors: %v", bus.Errors())
	}
	inf := NewInferrer(bus, prog)
	inf.Infer()
	if bus.HasErrors() {
		t.Fatalf("unexpected infer errors: %v", bus.Errors())
	}
	return prog, inf
}

func TestInferIdentityFuncParamUnifiesWithReturn(t *testing.T) {
	prog, inf := inferSrc(t, "fn id(x) = x;")
	f := prog.Funcs[0]
	paramT := inf.Types[f.Body.Span]
	if paramT.Kind != types.KindVar {
		t.Fatalf("expected id's body type to remain an unresolved var absent a call site, got %v", paramT)
	}
}

func TestInferCallSiteConstrainsParam(t *testing.T) {
	prog, inf := inferSrc(t, "fn id(x) = x;\nfn f() = id(1);")
	var callFn *Func
	for _, fn := range prog.Funcs {
		if fn.Name == "f" {
			callFn = fn
		}
	}
	got := inf.Types[callFn.Body.Span]
	if got.Kind != types.KindPath || got.Path != "Int" {
		t.Errorf("expected call result to resolve to Int, got %v", got)
	}
}

func TestInferArithmeticUnifiesOperands(t *testing.T) {
	prog, inf := inferSrc(t, "fn f(x, y) = x + y;")
	f := prog.Funcs[0]
	got := inf.Types[f.Body.Span]
	if got.Kind != types.KindVar && got.Kind != types.KindPath {
		t.Errorf("unexpected result kind %v", got.Kind)
	}
}
