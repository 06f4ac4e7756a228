// Package interhir implements the HIR -> Inter-HIR pass: the
// whole-module work that needs every item's name and definition site
// already known, which rules it out of internal/hir's per-item walk.
// Three things happen here. First, every `use` chain's root segment is
// looked up among the module's named items. Second, every struct's and
// enum variant's synthesized constructor body is given a reserved
// lang-item name (internal/langitem), grounded on
// `_examples/original_source/crates/sodigy_lang_item/src/lib.rs`.
// Third, every `#[poly]` decorator is validated: a bare `#[poly]` on a
// function declares it a poly-generic; a `#[poly(target)]` on a
// (distinctly named) function declares it an impl of the poly-generic
// named by target, and target must resolve to a function that itself
// carries a bare `#[poly]` — anything else is `NotPolyGeneric`. Grounded on
// `_examples/original_source/crates/inter-hir/src/poly.rs`'s
// `resolve_poly`.
package interhir

import (
	"github.com/sodigy-lang/sodigy/internal/ast"
	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/hir"
	"github.com/sodigy-lang/sodigy/internal/intern"
	"github.com/sodigy-lang/sodigy/internal/langitem"
	"github.com/sodigy-lang/sodigy/internal/span"
)

// Use is the resolved shape of one use chain: the root segment's text
// and span, the alias it binds, and where (if anywhere in this module)
// the root segment is already bound. Matches the fields `Use::from_ast`
// assembles in `hir/src/use.rs`, minus the unresolved path fields,
// which stay on the original AST node rather than being copied here.
type Use struct {
	Item      *hir.Item
	RootName  string
	RootSpan  span.Span
	AliasName string
	DefSpan   span.Span // zero when External
	External  bool
}

// Result is the output of a Session.Run: every module's use chains
// resolved as far as this pass can take them, the lang-item names
// registered for its struct/enum constructor bodies, and the poly-impl
// table built from every valid `#[poly(target)]` decorator.
type Result struct {
	Uses      []Use
	LangItems map[span.Span]langitem.Kind
	// PolyImpls maps a poly-generic function's DefSpan to the DefSpans
	// of every function registered as one of its impls.
	PolyImpls map[span.Span][]span.Span
}

// Session runs the Inter-HIR pass over one resolved module.
type Session struct {
	bus  *diag.Bus
	strs *intern.Table
}

// NewSession returns a Session reporting into bus, using strs to read
// back identifier text from hir.Session's interned spans.
func NewSession(bus *diag.Bus, strs *intern.Table) *Session {
	return &Session{bus: bus, strs: strs}
}

func (s *Session) text(id intern.String) string {
	b, _ := s.strs.Lookup(id)
	return string(b)
}

// Run resolves every use chain, registers lang items, and validates
// every `#[poly]` decorator in sess.
func (s *Session) Run(sess *hir.Session) *Result {
	res := &Result{
		LangItems: map[span.Span]langitem.Kind{},
		PolyImpls: map[span.Span][]span.Span{},
	}

	byName := indexByName(sess, s.strs)

	for _, it := range sess.Items {
		if it.Kind == hir.ItemUse {
			res.Uses = append(res.Uses, s.resolveUse(it, byName))
		}
		s.registerLangItems(it, res)
	}

	polyGenerics := s.collectPolyGenerics(sess)
	for _, it := range sess.Items {
		if it.Kind != hir.ItemFunc {
			continue
		}
		for _, dec := range it.Node.Decorators {
			if s.text(dec.Ident) != "poly" || len(dec.Child) == 0 {
				continue
			}
			s.resolvePolyImpl(it, dec.Child[0], byName, polyGenerics, res)
		}
	}

	return res
}

// indexByName groups every named item (everything but asserts) by its
// bound identifier, the table both use-chain resolution and poly-impl
// target lookup search against.
func indexByName(sess *hir.Session, strs *intern.Table) map[string][]*hir.Item {
	byName := map[string][]*hir.Item{}
	for _, it := range sess.Items {
		if it.Kind == hir.ItemAssert {
			continue
		}
		b, _ := strs.Lookup(it.Node.Ident)
		name := string(b)
		byName[name] = append(byName[name], it)
	}
	return byName
}

// resolveUse finds what (if anything) a use chain's root segment is
// already bound to in this module. The self-alias cycle itself
// (`use a as a;`) is rejected earlier, in internal/hir, since it needs
// no information beyond the use item's own node.
func (s *Session) resolveUse(it *hir.Item, byName map[string][]*hir.Item) Use {
	n := it.Node
	path := n.Child[0]
	root := path.Child[0]
	rootName := s.text(root.Ident)
	aliasName := s.text(n.Ident)

	u := Use{Item: it, RootName: rootName, RootSpan: root.Span, AliasName: aliasName}
	for _, cand := range byName[rootName] {
		if cand == it {
			continue
		}
		u.DefSpan = cand.DefSpan()
		return u
	}
	u.External = true
	return u
}

// registerLangItems gives every struct's and enum variant's
// compiler-synthesized constructor body a reserved name, so later
// lowering stages can name the function they generate for it instead
// of inventing their own ad hoc naming scheme.
func (s *Session) registerLangItems(it *hir.Item, res *Result) {
	switch it.Kind {
	case hir.ItemStruct:
		res.LangItems[it.DefSpan()] = langitem.StructBody
	case hir.ItemEnum:
		for _, variant := range it.Node.Child {
			res.LangItems[variant.DefSpan] = langitem.EnumBody
		}
	}
}

// collectPolyGenerics finds every function carrying a bare `#[poly]`
// decorator (no target argument), which declares it a poly-generic
// dispatch point rather than an impl of one.
func (s *Session) collectPolyGenerics(sess *hir.Session) map[span.Span]bool {
	generics := map[span.Span]bool{}
	for _, it := range sess.Items {
		if it.Kind != hir.ItemFunc {
			continue
		}
		for _, dec := range it.Node.Decorators {
			if s.text(dec.Ident) == "poly" && len(dec.Child) == 0 {
				generics[it.DefSpan()] = true
			}
		}
	}
	return generics
}

// resolvePolyImpl validates one `#[poly(target)]` decorator: target must
// be a bare identifier naming a function already registered as a
// poly-generic by collectPolyGenerics. Mirrors `resolve_poly`'s match on
// the resolved path: a non-identifier target, an unresolved name, a
// resolved non-function, and a resolved function missing its own
// `#[poly]` are each `NotPolyGeneric`, with the same function-vs-not
// distinction the original draws in its error note.
func (s *Session) resolvePolyImpl(impl *hir.Item, target *ast.Node, byName map[string][]*hir.Item, polyGenerics map[span.Span]bool, res *Result) {
	if target.Kind != ast.KindIdent {
		s.bus.Errorf(diag.KindNotPolyGeneric, target.Span, "only a function can be a poly generic")
		return
	}

	name := s.text(target.Ident)
	var matched *hir.Item
	for _, cand := range byName[name] {
		matched = cand
		break
	}

	switch {
	case matched == nil:
		s.bus.Errorf(diag.KindNotPolyGeneric, target.Span, "%q is not defined; only a function can be a poly generic", name)
	case matched.Kind != hir.ItemFunc:
		s.bus.ErrorWithAux(diag.KindNotPolyGeneric, target.Span, []span.Span{matched.DefSpan()}, "",
			"%q is not even a function; only a function can be a poly generic", name)
	case !polyGenerics[matched.DefSpan()]:
		s.bus.ErrorWithAux(diag.KindNotPolyGeneric, target.Span, []span.Span{matched.DefSpan()}, "",
			"%q is not a poly generic function; use `#[poly]` to make it one", name)
	default:
		res.PolyImpls[matched.DefSpan()] = append(res.PolyImpls[matched.DefSpan()], impl.DefSpan())
	}
}
