package ast

import (
	"testing"

	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/intern"
	"github.com/sodigy-lang/sodigy/internal/token"
)

func parse(t *testing.T, src string) (*Node, *diag.Bus) {
	t.Helper()
	bus := diag.NewBus()
	strs := intern.NewTable("")
	toks := token.NewLexer([]byte(src), 1, strs, bus).Lex()
	root := NewParser(toks, 1, strs, bus).ParseFile()
	return root, bus
}

func TestParseLetBinding(t *testing.T) {
	root, bus := parse(t, "let x = 1 + 2;")
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.Errors())
	}
	if len(root.Child) != 1 || root.Child[0].Kind != KindLet {
		t.Fatalf("expected a single let item, got %#v", root.Child)
	}
	value := root.Child[0].Child[len(root.Child[0].Child)-1]
	if value.Kind != KindInfixOp || value.Op != token.Plus {
		t.Error("let value should parse as an infix + expression")
	}
}

func TestParseFuncWithCallSite(t *testing.T) {
	root, bus := parse(t, "fn add(x, y) = x + y;\nlet r = add(3, 4);")
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.Errors())
	}
	if len(root.Child) < 1 || root.Child[0].Kind != KindFunc {
		t.Fatalf("expected a func item first, got %#v", root.Child)
	}
	fn := root.Child[0]
	params := fn.Child[1]
	if len(params.Child) != 2 {
		t.Errorf("expected 2 params, got %d", len(params.Child))
	}
}

func TestParseKeywordArgsMustFollowPositional(t *testing.T) {
	_, bus := parse(t, "let x = f(y: 1, 2);")
	if !bus.HasErrors() {
		t.Error("positional argument after keyword argument must be an error")
	}
}

func TestParseIfLet(t *testing.T) {
	root, bus := parse(t, "let x = if let (a, b) = pair { a } else { b };")
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.Errors())
	}
	value := root.Child[0].Child[len(root.Child[0].Child)-1]
	if value.Kind != KindIfLet {
		t.Errorf("expected KindIfLet, got %v", value.Kind)
	}
}

func TestParseMatchWithGuardAndOrPattern(t *testing.T) {
	root, bus := parse(t, "let x = match v { 1 | 2 => 0, n if n > 2 => n, };")
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.Errors())
	}
	value := root.Child[0].Child[len(root.Child[0].Child)-1]
	if value.Kind != KindMatch || len(value.Child) != 3 { // scrutinee + 2 arms
		t.Fatalf("expected match with scrutinee and 2 arms, got %#v", value)
	}
	firstArm := value.Child[1]
	if firstArm.Child[0].Kind != KindPatOr {
		t.Error("first arm pattern should be an or-pattern")
	}
	secondArm := value.Child[2]
	if secondArm.Child[1] == nil {
		t.Error("second arm should carry a guard expression")
	}
}

func TestParseLambdaAndPipeline(t *testing.T) {
	root, bus := parse(t, "let x = xs |> map(|n| n + 1);")
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.Errors())
	}
	value := root.Child[0].Child[len(root.Child[0].Child)-1]
	if value.Kind != KindInfixOp || value.Op != token.PipeGt {
		t.Fatalf("expected pipeline infix op, got %#v", value)
	}
}

func TestParseStructDuplicateFieldNames(t *testing.T) {
	_, bus := parse(t, "struct P { x: Int, x: Int }")
	if !bus.HasErrors() {
		t.Error("duplicate struct field names must be a NameCollision error")
	}
}

func TestParseDocCommentWithoutItemIsError(t *testing.T) {
	_, bus := parse(t, "/// dangling\n")
	if !bus.HasErrors() {
		t.Error("a doc comment with no following item must be an error")
	}
}

func TestParseUseAsSelfAlias(t *testing.T) {
	root, bus := parse(t, "use a as a;")
	if bus.HasErrors() {
		t.Fatalf("parsing `use a as a;` itself should not error: %v", bus.Errors())
	}
	if root.Child[0].Kind != KindUse {
		t.Fatalf("expected a use item")
	}
}
