package mir

import (
	"testing"

	"github.com/sodigy-lang/sodigy/internal/ast"
	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/hir"
	"github.com/sodigy-lang/sodigy/internal/intern"
	"github.com/sodigy-lang/sodigy/internal/token"
)

func lowerSrc(t *testing.T, src string) (*Program, *diag.Bus) {
	t.Helper()
	bus := diag.NewBus()
	strs := intern.NewTable("")
	toks := token.NewLexer([]byte(src), 1, strs, bus).Lex()
	root := ast.NewParser(toks, 1, strs, bus).ParseFile()
	res := hir.NewResolver(bus, strs)
	sess := res.Resolve(root)
	if bus.HasErrors() {
		t.Fatalf("unexpected resolve errors: %v", bus.Errors())
	}
	prog := NewLowerer(bus, strs, sess, res).Lower()
	return prog, bus
}

func TestLowerSimpleFunc(t *testing.T) {
	prog, bus := lowerSrc(t, "fn id(x) = x;")
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.Errors())
	}
	if len(prog.Funcs) != 1 {
		t.Fatalf("expected 1 func, got %d", len(prog.Funcs))
	}
	if prog.Funcs[0].Body.Kind != KindIdent {
		t.Errorf("expected body to lower to a bare ident, got %v", prog.Funcs[0].Body.Kind)
	}
}

func TestLowerIfLetDesugarsToMatch(t *testing.T) {
	prog, bus := lowerSrc(t, "fn f(x) = if let n = x { n } else { 0 };")
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.Errors())
	}
	body := prog.Funcs[0].Body
	if body.Kind != KindMatch {
		t.Fatalf("expected if-let to desugar to Match, got %v", body.Kind)
	}
	if len(body.Child) != 3 {
		t.Fatalf("expected scrutinee + 2 arms, got %d children", len(body.Child))
	}
	for _, arm := range body.Child[1:] {
		if len(arm.Child) != 3 {
			t.Fatalf("expected each arm to keep its (pattern, guard, body) slots positional even with no guard, got %d children", len(arm.Child))
		}
		if arm.Child[1] != nil {
			t.Fatalf("expected a nil guard slot for an unguarded if-let arm, got %#v", arm.Child[1])
		}
	}
}

func TestLowerPipelineDesugarsToLetBinding(t *testing.T) {
	prog, bus := lowerSrc(t, "fn id(x) = x;\nfn f(y) = y |> id($);")
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.Errors())
	}
	var f *Func
	for _, fn := range prog.Funcs {
		if fn.Name == "f" {
			f = fn
		}
	}
	if f == nil {
		t.Fatal("expected func f in program")
	}
	if f.Body.Kind != KindBlock {
		t.Fatalf("expected pipeline to desugar to a block, got %v", f.Body.Kind)
	}
	if len(f.Body.Child) != 2 || f.Body.Child[0].Kind != KindLetBinding {
		t.Fatalf("expected block of [let-binding, call], got %#v", f.Body.Child)
	}
}

func TestLowerLambdaIsLiftedWithCaptures(t *testing.T) {
	prog, bus := lowerSrc(t, "fn adder(n) = |x| x + n;")
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.Errors())
	}
	if len(prog.Funcs) != 2 {
		t.Fatalf("expected adder plus one lifted lambda func, got %d", len(prog.Funcs))
	}
	var lifted, adder *Func
	for _, fn := range prog.Funcs {
		if fn.Name == "adder" {
			adder = fn
		} else {
			lifted = fn
		}
	}
	if lifted == nil || adder == nil {
		t.Fatal("expected both adder and a lifted lambda func")
	}
	if len(lifted.Captures) != 1 {
		t.Errorf("expected exactly one captured binding (n), got %d", len(lifted.Captures))
	}

	if adder.Body.Kind != KindClosure {
		t.Fatalf("expected adder's body to be a Closure reference, got %v", adder.Body.Kind)
	}
}

func TestLowerFStringConcatenatesSegments(t *testing.T) {
	prog, bus := lowerSrc(t, "let y = 1;\nfn f(x) = f\"a{y}b\";")
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.Errors())
	}
	body := prog.Funcs[0].Body
	if body.Kind != KindInfixOp || body.Callable.GenericInfixOp != "++" {
		t.Fatalf("expected f-string to lower to a ++ concatenation chain, got %v", body.Kind)
	}
}
