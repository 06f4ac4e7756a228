package interhir

import (
	"testing"

	"github.com/sodigy-lang/sodigy/internal/ast"
	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/hir"
	"github.com/sodigy-lang/sodigy/internal/intern"
	"github.com/sodigy-lang/sodigy/internal/langitem"
	"github.com/sodigy-lang/sodigy/internal/token"
)

func run(t *testing.T, src string) (*hir.Session, *Result, *diag.Bus) {
	t.Helper()
	bus := diag.NewBus()
	strs := intern.NewTable("")
	toks := token.NewLexer([]byte(src), 1, strs, bus).Lex()
	root := ast.NewParser(toks, 1, strs, bus).ParseFile()
	hirSess := hir.NewResolver(bus, strs).Resolve(root)
	res := NewSession(bus, strs).Run(hirSess)
	return hirSess, res, bus
}

func TestRunResolvesUseRootToLocalItem(t *testing.T) {
	hirSess, res, bus := run(t, "fn a() = 1;\nuse a as renamed;")
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.Errors())
	}
	if len(res.Uses) != 1 {
		t.Fatalf("expected one use chain, got %d", len(res.Uses))
	}
	u := res.Uses[0]
	if u.External {
		t.Fatal("expected root segment to resolve to the local fn, not be external")
	}
	if u.DefSpan != hirSess.Items[0].DefSpan() {
		t.Errorf("resolved def span %v, want the local fn's %v", u.DefSpan, hirSess.Items[0].DefSpan())
	}
}

func TestRunMarksUnboundRootExternal(t *testing.T) {
	_, res, bus := run(t, "use std.io as io;")
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.Errors())
	}
	if len(res.Uses) != 1 || !res.Uses[0].External {
		t.Fatalf("expected the unbound root segment to resolve as external, got %+v", res.Uses)
	}
}

func TestRunRegistersStructAndEnumBodyLangItems(t *testing.T) {
	hirSess, res, bus := run(t, "struct P { x: Int }\nenum Color { Red, Green }")
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.Errors())
	}
	structItem := hirSess.Items[0]
	if res.LangItems[structItem.DefSpan()] != langitem.StructBody {
		t.Error("expected the struct's constructor body to be registered as a StructBody lang item")
	}
	enumItem := hirSess.Items[1]
	for _, variant := range enumItem.Node.Child {
		if res.LangItems[variant.DefSpan] != langitem.EnumBody {
			t.Errorf("expected variant %v to be registered as an EnumBody lang item", variant.DefSpan)
		}
	}
}

func TestRunRegistersValidPolyImpl(t *testing.T) {
	hirSess, res, bus := run(t, "@poly\nfn show(x) = x;\n@poly(show)\nfn show_int(x) = x;")
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.Errors())
	}
	generic := hirSess.Items[0].DefSpan()
	impls := res.PolyImpls[generic]
	if len(impls) != 1 {
		t.Fatalf("expected one registered impl, got %d: %+v", len(impls), impls)
	}
}

func TestRunRejectsPolyImplTargetingNonPolyFunction(t *testing.T) {
	_, _, bus := run(t, "fn show(x) = x;\n@poly(show)\nfn show_int(x) = x;")
	errs := bus.Errors()
	if len(errs) != 1 || errs[0].Kind != diag.KindNotPolyGeneric {
		t.Fatalf("expected a single NotPolyGeneric error, got %v", errs)
	}
}

func TestRunRejectsPolyImplTargetingUndefinedName(t *testing.T) {
	_, _, bus := run(t, "@poly(ghost)\nfn add(x, y) = x;")
	errs := bus.Errors()
	if len(errs) != 1 || errs[0].Kind != diag.KindNotPolyGeneric {
		t.Fatalf("expected a single NotPolyGeneric error, got %v", errs)
	}
}

func TestRunRejectsPolyImplTargetingNonFunction(t *testing.T) {
	_, _, bus := run(t, "struct P { x: Int }\n@poly(P)\nfn f(x) = x;")
	errs := bus.Errors()
	if len(errs) != 1 || errs[0].Kind != diag.KindNotPolyGeneric {
		t.Fatalf("expected a single NotPolyGeneric error, got %v", errs)
	}
}
