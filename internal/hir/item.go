// Package hir implements name resolution over the parsed AST. The
// HIR -> Inter-HIR pass that resolves use chains lives in
// internal/interhir.
package hir

import (
	"github.com/sodigy-lang/sodigy/internal/ast"
	"github.com/sodigy-lang/sodigy/internal/scope"
	"github.com/sodigy-lang/sodigy/internal/span"
)

// ItemKind enumerates the shapes a top-level or nested definition can take.
type ItemKind uint8

const (
	ItemLet ItemKind = iota
	ItemFunc
	ItemStruct
	ItemEnum
	ItemAlias
	ItemAssert
	ItemUse
	ItemModule
)

// NameRef is the resolved form of one identifier reference: which kind of
// binding it is, and the def-span that identifies the binding it refers
// to. Every identifier carries a NameRef whose DefSpan points to a live
// item or binding in an enclosing scope.
type NameRef struct {
	Origin  scope.Origin
	DefSpan span.Span
}

// Item is one top-level or nested definition, carrying its AST node (for
// the fields not relevant to resolution, e.g. Let's value expression
// subtree) plus the resolution-specific data per kind.
type Item struct {
	Kind ItemKind
	Node *ast.Node // original parse-tree node; DefSpan is Node.DefSpan

	// ForeignNames holds (name, origin, def_span) triples captured across
	// a closure boundary inside this item's body. The Resolver does not
	// fill it in for any item kind, so it is always nil; a lambda's
	// captures are available from Resolver.LambdaForeignNames instead.
	ForeignNames map[string]NameRef
}

func (it *Item) DefSpan() span.Span { return it.Node.DefSpan }

// Session is the output of the HIR resolution pass: every item of the
// module, plus the flat map of every identifier-reference span to its
// resolved NameRef. Cross-item references are by Span, never by pointer.
type Session struct {
	Items []*Item
	Refs  map[span.Span]NameRef
	// ByDefSpan indexes items by their identity span, giving
	// name-resolution determinism: looking up an origin always finds the
	// same item that defined the name.
	ByDefSpan map[span.Span]*Item
}

func newSession() *Session {
	return &Session{
		Refs:      map[span.Span]NameRef{},
		ByDefSpan: map[span.Span]*Item{},
	}
}

// Lookup returns the Item that defines a resolved name reference.
func (s *Session) Lookup(ref NameRef) (*Item, bool) {
	it, ok := s.ByDefSpan[ref.DefSpan]
	return it, ok
}
