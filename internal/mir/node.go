// Package mir implements the HIR -> MIR lowering pass: desugaring
// surface-level sugar (if-let, pipelines, format strings) into a smaller
// core language, and lifting lambdas into top-level functions with
// explicit capture lists. It is the Sodigy analogue of yaegi's cfg pass
// (interp/cfg.go), which likewise rewrites a parsed tree into a smaller
// set of node shapes the rest of the pipeline actually executes.
package mir

import (
	"github.com/sodigy-lang/sodigy/internal/span"
	"github.com/sodigy-lang/sodigy/internal/token"
)

// Kind enumerates MIR node shapes. MIR is deliberately smaller than the
// AST: IfLet has been rewritten to Match, pipelines and f-strings have been
// rewritten to their expansions, and Lambda no longer exists as an
// expression (its body becomes a top-level Func, referenced through
// Closure).
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
	KindLetBinding // a block-local let, kept as a statement node
	KindIf
	KindMatch
	KindMatchArm
	KindCall
	KindClosure // reference to a lifted lambda: the Func plus its captures
	KindFieldAccess
	KindIndexAccess
	KindPrefixOp
	KindInfixOp
	KindPostfixOp
	KindPatName
	KindPatTuple
	KindPatList
	KindPatStruct
	KindPatOr
	KindPatRange
	KindPatWildcard
	KindPatRest // `..` or `..name` inside a KindPatList
	KindKeywordArg
)

// Callable is the resolved target of a Call node: either a statically
// known function (by def-span) or a generic infix operator placeholder
// resolved later by poly dispatch.
type Callable struct {
	IsGeneric bool
	// Static target.
	DefSpan span.Span
	// GenericInfixOp names the operator (e.g. "+") when IsGeneric is true;
	// poly dispatch resolves the concrete impl once operand types are
	// known.
	GenericInfixOp string
}

// Node is one MIR tree node.
type Node struct {
	Kind  Kind
	Span  span.Span
	Child []*Node

	Ident    string    // KindIdent, KindPatName, KindFieldAccess (field name)
	DefSpan  span.Span // KindIdent: resolved binding; KindLetBinding: the binding's own identity
	Str      string     // KindStringLit
	Number   string     // KindNumberLit, textual form; internal/lir parses it when lowering constants
	Op       token.Kind // KindPatRange: DotDot (exclusive) or DotDotTilde (inclusive)
	Callable Callable   // KindCall

	// Closure: def-span of the lifted Func plus, in declaration order, the
	// captured bindings passed as leading arguments at each call site.
	ClosureFunc   span.Span
	ClosureCaptures []span.Span
}

// AddChild appends c, skipping nil so callers that conditionally build a
// subtree do not have to special-case it. A positional slot that may be
// empty, such as a match arm's guard, is appended directly instead.
func (n *Node) AddChild(c *Node) {
	if c == nil {
		return
	}
	n.Child = append(n.Child, c)
}

// Func is a top-level (or lifted) function: its own def-span, parameter
// def-spans in order, and its lowered body.
type Func struct {
	DefSpan   span.Span
	Name      string
	Params    []span.Span
	Captures  []span.Span // leading implicit params for a lifted lambda
	Body      *Node
	IsPoly    bool
	Generics  []span.Span
}

// Let is a top-level value binding.
type Let struct {
	DefSpan span.Span
	Name    string
	Value   *Node
}

// Program is the output of lowering: every function (original and lifted)
// plus every top-level let, in a form ready for type inference and
// post-MIR lowering.
type Program struct {
	Funcs []*Func
	Lets  []*Let
}

func (p *Program) FuncByDefSpan(s span.Span) *Func {
	for _, f := range p.Funcs {
		if f.DefSpan.Key() == s.Key() {
			return f
		}
	}
	return nil
}
