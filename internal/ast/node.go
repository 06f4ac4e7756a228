// Package ast defines Sodigy's parse tree and the Pratt-precedence parser
// that builds it. The node shape below is modeled directly on yaegi's
// single-struct AST node (interp/interp.go's `node`): one struct with a
// Kind tag and a set of fields that are only meaningful for some kinds,
// rather than a Go interface per node type. Sodigy's tree has no CFG
// linking phase (that work happens later, against MIR), so the
// tnext/fnext/exec/gen fields of yaegi's node are dropped, but the
// child/anc/Walk shape is kept as-is.
package ast

import (
	"github.com/sodigy-lang/sodigy/internal/intern"
	"github.com/sodigy-lang/sodigy/internal/span"
	"github.com/sodigy-lang/sodigy/internal/token"
)

// Kind tags a Node's shape; callers switch on Kind before touching any
// kind-specific field.
type Kind uint8

const (
	KindIdent Kind = iota
	KindNumberLit
	KindStringLit
	KindCharLit
	KindByteLit
	KindTuple
	KindList
	KindBlock
	KindIf
	KindIfLet
	KindMatch
	KindMatchArm
	KindLambda
	KindCall
	KindKeywordArg
	KindPrefixOp
	KindInfixOp
	KindPostfixOp
	KindFieldAccess
	KindIndexAccess
	KindRangeAccess
	KindPathAccess
	KindDotfish // .<T> type annotation
	KindWildcard
	KindPipePlaceholder // `$`, valid only inside a pipeline's RHS

	// Patterns
	KindPatName
	KindPatTuple
	KindPatList
	KindPatStruct
	KindPatOr
	KindPatRange
	KindPatGuard
	KindPatRest // `..` or `..name` inside a list pattern

	// Statements / items
	KindLet
	KindFunc
	KindParam
	KindStruct
	KindEnum
	KindEnumVariant
	KindAlias
	KindAssert
	KindUse
	KindModule
	KindDecorator
	KindDocComment
	KindTypeExpr
)

// Origin records where a Let/Func item came from, used by name resolution
// to decide whether unused-name warnings apply.
type Origin uint8

const (
	OriginTopLevel Origin = iota
	OriginInline
	OriginFuncDefaultValue
	OriginLambda
)

// VariantShape distinguishes the three enum-variant argument shapes.
type VariantShape uint8

const (
	VariantNone VariantShape = iota
	VariantTuple
	VariantStruct
)

// Node is the single AST node type for every expression, pattern,
// statement and item kind. DefSpan is populated on Let/Func/Struct/
// Enum/Alias/Assert/Use/Module items and doubles as their cross-stage
// identity key.
type Node struct {
	Kind    Kind
	Span    span.Span
	DefSpan span.Span // identity key for items; zero for plain expressions
	Child   []*Node
	Anc     *Node

	Ident  intern.String
	Number intern.Number
	IsReal bool
	Str    intern.String
	Prefix token.StringPrefix

	Op token.Kind // underlying operator token kind, for Prefix/Infix/PostfixOp nodes

	Origin       Origin
	VariantShape VariantShape

	Decorators []*Node
	Doc        *Node

	// HasDefault marks a Param node whose Child holds a default-value
	// expression.
	HasDefault bool
}

// Walk traverses n depth-first, calling in at entry and out at exit,
// exactly mirroring yaegi's (*node).Walk (interp/interp.go).
func (n *Node) Walk(in func(*Node) bool, out func(*Node)) {
	if in != nil && !in(n) {
		return
	}
	for _, c := range n.Child {
		if c != nil { // an empty positional slot, e.g. a match arm with no guard
			c.Walk(in, out)
		}
	}
	if out != nil {
		out(n)
	}
}

// AddChild appends c to n's children and sets c's ancestor link.
func (n *Node) AddChild(c *Node) {
	if c == nil {
		return
	}
	c.Anc = n
	n.Child = append(n.Child, c)
}
