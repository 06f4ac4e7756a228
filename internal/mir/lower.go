package mir

import (
	"fmt"

	"github.com/sodigy-lang/sodigy/internal/ast"
	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/hir"
	"github.com/sodigy-lang/sodigy/internal/intern"
	"github.com/sodigy-lang/sodigy/internal/span"
	"github.com/sodigy-lang/sodigy/internal/token"
)

// Lowerer rewrites a resolved HIR session into a MIR Program: if-let
// becomes a one-arm-plus-wildcard match, `x |> f($)` becomes `let $0 = x
// in f($0)`, f-strings become `to_string` calls joined by string
// concatenation, and every Lambda expression is lifted out into its own
// top-level Func with its captures threaded through as leading
// parameters.
type Lowerer struct {
	bus     *diag.Bus
	strs    *intern.Table
	sess    *hir.Session
	res     *hir.Resolver
	prog    *Program
	liftSeq int
}

// NewLowerer returns a Lowerer. res must be the same Resolver that
// produced sess, since lambda-capture lookups go through it.
func NewLowerer(bus *diag.Bus, strs *intern.Table, sess *hir.Session, res *hir.Resolver) *Lowerer {
	return &Lowerer{bus: bus, strs: strs, sess: sess, res: res, prog: &Program{}}
}

func (l *Lowerer) text(s intern.String) string {
	b, _ := l.strs.Lookup(s)
	return string(b)
}

// Lower runs the pass over every item of sess and returns the resulting
// Program.
func (l *Lowerer) Lower() *Program {
	for _, it := range l.sess.Items {
		switch it.Kind {
		case hir.ItemFunc:
			l.lowerFunc(it.Node, l.text(it.Node.Ident))
		case hir.ItemLet:
			l.lowerLet(it.Node)
		}
	}
	return l.prog
}

func (l *Lowerer) lowerFunc(n *ast.Node, name string) {
	params := n.Child[1]
	generics := n.Child[0]
	body := n.Child[3]

	f := &Func{DefSpan: n.DefSpan, Name: name}
	for _, g := range generics.Child {
		f.Generics = append(f.Generics, g.DefSpan)
	}
	for _, p := range params.Child {
		f.Params = append(f.Params, p.DefSpan)
	}
	f.Body = l.lowerExpr(body)
	l.prog.Funcs = append(l.prog.Funcs, f)
}

func (l *Lowerer) lowerLet(n *ast.Node) {
	value := n.Child[len(n.Child)-1]
	lt := &Let{DefSpan: n.DefSpan, Name: l.text(n.Ident), Value: l.lowerExpr(value)}
	l.prog.Lets = append(l.prog.Lets, lt)
}

// lowerExpr is the main dispatch: it rewrites one AST expression subtree
// into its MIR shape.
func (l *Lowerer) lowerExpr(n *ast.Node) *Node {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case ast.KindIdent:
		ref, ok := l.sess.Refs[n.Span]
		if !ok {
			return &Node{Kind: KindIdent, Span: n.Span, Ident: l.text(n.Ident)}
		}
		return &Node{Kind: KindIdent, Span: n.Span, Ident: l.text(n.Ident), DefSpan: ref.DefSpan}

	case ast.KindNumberLit:
		return &Node{Kind: KindNumberLit, Span: n.Span, Number: n.Number.String()}

	case ast.KindStringLit:
		return l.lowerString(n)

	case ast.KindCharLit:
		return &Node{Kind: KindCharLit, Span: n.Span, Str: l.text(n.Str)}

	case ast.KindByteLit:
		return &Node{Kind: KindByteLit, Span: n.Span, Str: l.text(n.Str)}

	case ast.KindTuple:
		out := &Node{Kind: KindTuple, Span: n.Span}
		for _, c := range n.Child {
			out.AddChild(l.lowerExpr(c))
		}
		return out

	case ast.KindList:
		out := &Node{Kind: KindList, Span: n.Span}
		for _, c := range n.Child {
			out.AddChild(l.lowerExpr(c))
		}
		return out

	case ast.KindBlock:
		return l.lowerBlock(n)

	case ast.KindIf:
		out := &Node{Kind: KindIf, Span: n.Span}
		for _, c := range n.Child {
			out.AddChild(l.lowerExpr(c))
		}
		return out

	case ast.KindIfLet:
		return l.lowerIfLet(n)

	case ast.KindMatch:
		out := &Node{Kind: KindMatch, Span: n.Span}
		out.AddChild(l.lowerExpr(n.Child[0]))
		for _, arm := range n.Child[1:] {
			out.AddChild(l.lowerMatchArm(arm))
		}
		return out

	case ast.KindInfixOp:
		if n.Op == token.PipeGt {
			return l.lowerPipeline(n)
		}
		out := &Node{Kind: KindInfixOp, Span: n.Span,
			Callable: Callable{IsGeneric: true, GenericInfixOp: opSymbol(n.Op)}}
		out.AddChild(l.lowerExpr(n.Child[0]))
		out.AddChild(l.lowerExpr(n.Child[1]))
		return out

	case ast.KindPrefixOp, ast.KindPostfixOp:
		kind := KindPrefixOp
		if n.Kind == ast.KindPostfixOp {
			kind = KindPostfixOp
		}
		out := &Node{Kind: kind, Span: n.Span,
			Callable: Callable{IsGeneric: true, GenericInfixOp: opSymbol(n.Op)}}
		for _, c := range n.Child {
			out.AddChild(l.lowerExpr(c))
		}
		return out

	case ast.KindCall:
		return l.lowerCall(n)

	case ast.KindFieldAccess:
		out := &Node{Kind: KindFieldAccess, Span: n.Span, Ident: l.text(n.Ident)}
		out.AddChild(l.lowerExpr(n.Child[0]))
		return out

	case ast.KindIndexAccess, ast.KindRangeAccess:
		out := &Node{Kind: KindIndexAccess, Span: n.Span}
		for _, c := range n.Child {
			out.AddChild(l.lowerExpr(c))
		}
		return out

	case ast.KindPathAccess:
		// A resolved path access collapses to the identifier its final
		// segment refers to; intermediate segments are resolved during
		// HIR->Inter-HIR use-chain resolution, not here.
		if ref, ok := l.sess.Refs[n.Span]; ok {
			return &Node{Kind: KindIdent, Span: n.Span, DefSpan: ref.DefSpan}
		}
		return l.lowerExpr(n.Child[len(n.Child)-1])

	case ast.KindLambda:
		return l.liftLambda(n)

	case ast.KindKeywordArg:
		out := &Node{Kind: KindKeywordArg, Span: n.Span, Ident: l.text(n.Ident)}
		out.AddChild(l.lowerExpr(n.Child[0]))
		return out

	case ast.KindWildcard:
		return &Node{Kind: KindPatWildcard, Span: n.Span}

	case ast.KindPipePlaceholder:
		// Bare `$` outside of a pipeline RHS; lowerPipeline substitutes the
		// real temp-variable reference before recursing, so reaching this
		// case means `$` was used outside a pipeline.
		l.bus.Errorf(diag.KindUnexpectedToken, n.Span, "`$` may only be used on the right-hand side of `|>`")
		return &Node{Kind: KindPatWildcard, Span: n.Span}

	default:
		out := &Node{Kind: KindTuple, Span: n.Span}
		for _, c := range n.Child {
			out.AddChild(l.lowerExpr(c))
		}
		return out
	}
}

// opSymbol renders the token kind recorded on a Prefix/Infix/PostfixOp node
// as the operator name poly dispatch looks candidate impls up by.
func opSymbol(k token.Kind) string {
	switch k {
	case token.Plus:
		return "+"
	case token.Minus:
		return "-"
	case token.Star:
		return "*"
	case token.Slash:
		return "/"
	case token.Percent:
		return "%"
	case token.EqEq:
		return "=="
	case token.Ne:
		return "!="
	case token.Lt:
		return "<"
	case token.Le:
		return "<="
	case token.Gt:
		return ">"
	case token.Ge:
		return ">="
	case token.AndAnd:
		return "&&"
	case token.OrOr:
		return "||"
	case token.Not:
		return "!"
	default:
		return fmt.Sprintf("op%d", k)
	}
}

func (l *Lowerer) lowerBlock(n *ast.Node) *Node {
	out := &Node{Kind: KindBlock, Span: n.Span}
	for _, c := range n.Child {
		if c.Kind == ast.KindLet {
			value := c.Child[len(c.Child)-1]
			stmt := &Node{Kind: KindLetBinding, Span: c.Span, Ident: l.text(c.Ident), DefSpan: c.DefSpan}
			stmt.AddChild(l.lowerExpr(value))
			out.AddChild(stmt)
		} else {
			out.AddChild(l.lowerExpr(c))
		}
	}
	return out
}

// lowerIfLet rewrites `if let pat = scrut { then } else { els }` into
// `match scrut { pat => then, _ => els }`, the desugared shape the rest of
// the pipeline operates on.
func (l *Lowerer) lowerIfLet(n *ast.Node) *Node {
	pat, scrut, then := n.Child[0], n.Child[1], n.Child[2]
	out := &Node{Kind: KindMatch, Span: n.Span.WithDerivation(span.DerivationIfLet)}
	out.AddChild(l.lowerExpr(scrut))

	matched := &Node{Kind: KindMatchArm, Span: then.Span}
	matched.AddChild(l.lowerPattern(pat))
	matched.Child = append(matched.Child, nil) // no guard; keep the slot positional
	matched.AddChild(l.lowerExpr(then))
	out.AddChild(matched)

	fallback := &Node{Kind: KindMatchArm, Span: n.Span.WithDerivation(span.DerivationIfLet)}
	fallback.AddChild(&Node{Kind: KindPatWildcard, Span: fallback.Span})
	fallback.Child = append(fallback.Child, nil)
	if len(n.Child) > 3 {
		fallback.AddChild(l.lowerExpr(n.Child[3]))
	} else {
		fallback.AddChild(&Node{Kind: KindTuple, Span: fallback.Span})
	}
	out.AddChild(fallback)
	return out
}

func (l *Lowerer) lowerMatchArm(n *ast.Node) *Node {
	pat, guard, body := n.Child[0], n.Child[1], n.Child[2]
	out := &Node{Kind: KindMatchArm, Span: n.Span}
	out.AddChild(l.lowerPattern(pat))
	out.Child = append(out.Child, l.lowerExpr(guard)) // kept positional even when nil
	out.AddChild(l.lowerExpr(body))
	return out
}

func (l *Lowerer) lowerPattern(n *ast.Node) *Node {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case ast.KindPatName:
		return &Node{Kind: KindPatName, Span: n.Span, Ident: l.text(n.Ident), DefSpan: n.DefSpan}
	case ast.KindPatTuple:
		out := &Node{Kind: KindPatTuple, Span: n.Span}
		for _, c := range n.Child {
			out.AddChild(l.lowerPattern(c))
		}
		return out
	case ast.KindPatList:
		out := &Node{Kind: KindPatList, Span: n.Span}
		for _, c := range n.Child {
			out.AddChild(l.lowerPattern(c))
		}
		return out
	case ast.KindPatStruct:
		out := &Node{Kind: KindPatStruct, Span: n.Span}
		for _, c := range n.Child {
			out.AddChild(l.lowerPattern(c))
		}
		return out
	case ast.KindPatOr:
		out := &Node{Kind: KindPatOr, Span: n.Span}
		for _, c := range n.Child {
			out.AddChild(l.lowerPattern(c))
		}
		return out
	case ast.KindPatRange:
		// Range bounds come from parsePatternPrimary (a literal or a plain
		// name), so they are lowered as patterns, not arbitrary
		// expressions; postmir's range compiler reads them back out via
		// litNode/compilePattern.
		out := &Node{Kind: KindPatRange, Span: n.Span, Op: n.Op}
		for _, c := range n.Child {
			out.AddChild(l.lowerPattern(c))
		}
		return out
	case ast.KindWildcard:
		return &Node{Kind: KindPatWildcard, Span: n.Span}
	case ast.KindPatRest:
		return &Node{Kind: KindPatRest, Span: n.Span, Ident: l.text(n.Ident), DefSpan: n.DefSpan}
	case ast.KindNumberLit:
		return &Node{Kind: KindNumberLit, Span: n.Span, Number: n.Number.String()}
	case ast.KindStringLit:
		return &Node{Kind: KindStringLit, Span: n.Span, Str: l.text(n.Str)}
	case ast.KindCharLit:
		return &Node{Kind: KindCharLit, Span: n.Span, Str: l.text(n.Str)}
	case ast.KindByteLit:
		return &Node{Kind: KindByteLit, Span: n.Span, Str: l.text(n.Str)}
	default:
		out := &Node{Kind: KindPatWildcard, Span: n.Span}
		return out
	}
}

// lowerCall lowers a call expression. The callee is resolved to a Static
// Callable when it is a plain identifier with a known def-span; any other
// callee shape (e.g. a call through a field access) lowers to a dynamic
// call node whose Callable stays the zero value, resolved at poly-dispatch
// time instead.
func (l *Lowerer) lowerCall(n *ast.Node) *Node {
	callee := n.Child[0]
	out := &Node{Kind: KindCall, Span: n.Span}
	if callee.Kind == ast.KindIdent {
		if ref, ok := l.sess.Refs[callee.Span]; ok {
			out.Callable = Callable{DefSpan: ref.DefSpan}
		}
	}
	out.AddChild(l.lowerExpr(callee))
	for _, arg := range n.Child[1:] {
		out.AddChild(l.lowerExpr(arg))
	}
	return out
}

// lowerPipeline rewrites `x |> f($)` into `let $N = x in f($N)`: the LHS is
// evaluated once into a synthesized local, and every occurrence of `$` in
// the RHS is substituted with a reference to that local.
func (l *Lowerer) lowerPipeline(n *ast.Node) *Node {
	lhs, rhs := n.Child[0], n.Child[1]
	tempSpan := n.Span.WithDerivation(span.DerivationPipeline)
	l.liftSeq++
	name := fmt.Sprintf("$%d", l.liftSeq)

	block := &Node{Kind: KindBlock, Span: n.Span.WithDerivation(span.DerivationPipeline)}
	binding := &Node{Kind: KindLetBinding, Span: tempSpan, Ident: name, DefSpan: tempSpan}
	binding.AddChild(l.lowerExpr(lhs))
	block.AddChild(binding)
	block.AddChild(l.substitutePlaceholder(rhs, name, tempSpan))
	return block
}

func (l *Lowerer) substitutePlaceholder(n *ast.Node, name string, defSpan span.Span) *Node {
	if n == nil {
		return nil
	}
	if n.Kind == ast.KindPipePlaceholder {
		return &Node{Kind: KindIdent, Span: n.Span, Ident: name, DefSpan: defSpan}
	}
	switch n.Kind {
	case ast.KindCall:
		out := &Node{Kind: KindCall, Span: n.Span}
		callee := n.Child[0]
		if callee.Kind == ast.KindIdent {
			if ref, ok := l.sess.Refs[callee.Span]; ok {
				out.Callable = Callable{DefSpan: ref.DefSpan}
			}
		}
		out.AddChild(l.substitutePlaceholder(callee, name, defSpan))
		for _, arg := range n.Child[1:] {
			out.AddChild(l.substitutePlaceholder(arg, name, defSpan))
		}
		return out
	default:
		out := l.lowerExpr(n)
		return out
	}
}

// lowerString rewrites an f-string into nested string concatenation calls
// over its literal segments and `to_string` calls over its interpolated
// expressions; a plain (non-f) string literal lowers unchanged.
func (l *Lowerer) lowerString(n *ast.Node) *Node {
	raw := l.text(n.Str)
	if n.Prefix != token.PrefixFormat {
		return &Node{Kind: KindStringLit, Span: n.Span, Str: raw}
	}
	parts := splitFStringParts(raw)
	var acc *Node
	appendPart := func(part *Node) {
		if acc == nil {
			acc = part
			return
		}
		concat := &Node{Kind: KindInfixOp, Span: n.Span.WithDerivation(span.DerivationFStringConcat),
			Callable: Callable{IsGeneric: true, GenericInfixOp: "++"}}
		concat.AddChild(acc)
		concat.AddChild(part)
		acc = concat
	}
	for _, p := range parts {
		if p.isExpr {
			sub := l.lowerFStringExpr(p.text, n.Span)
			call := &Node{Kind: KindCall, Span: n.Span, Callable: Callable{IsGeneric: true, GenericInfixOp: "to_string"}}
			call.AddChild(sub)
			appendPart(call)
		} else {
			appendPart(&Node{Kind: KindStringLit, Span: n.Span, Str: p.text})
		}
	}
	if acc == nil {
		return &Node{Kind: KindStringLit, Span: n.Span, Str: ""}
	}
	return acc
}

type fstringPart struct {
	text   string
	isExpr bool
}

// splitFStringParts splits raw on unescaped `{...}` interpolation groups;
// `{{` and `}}` escape to a literal brace.
func splitFStringParts(raw string) []fstringPart {
	var parts []fstringPart
	var lit []byte
	i := 0
	for i < len(raw) {
		c := raw[i]
		switch {
		case c == '{' && i+1 < len(raw) && raw[i+1] == '{':
			lit = append(lit, '{')
			i += 2
		case c == '}' && i+1 < len(raw) && raw[i+1] == '}':
			lit = append(lit, '}')
			i += 2
		case c == '{':
			if len(lit) > 0 {
				parts = append(parts, fstringPart{text: string(lit)})
				lit = nil
			}
			depth := 1
			start := i + 1
			j := start
			for j < len(raw) && depth > 0 {
				switch raw[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
				if depth > 0 {
					j++
				}
			}
			parts = append(parts, fstringPart{text: raw[start:j], isExpr: true})
			i = j + 1
		default:
			lit = append(lit, c)
			i++
		}
	}
	if len(lit) > 0 {
		parts = append(parts, fstringPart{text: string(lit)})
	}
	return parts
}

// lowerFStringExpr re-lexes and re-parses one interpolated segment against
// the Lowerer's own intern table and bus, then resolves and lowers it in
// isolation. Interpolated expressions may only reference names visible at
// module scope; local bindings introduced inside the same f-string's
// enclosing block are out of reach, matching the restriction that the
// segment is compiled independently of its surrounding lexical position.
func (l *Lowerer) lowerFStringExpr(src string, around span.Span) *Node {
	toks := token.NewLexer([]byte(src), around.File(), l.strs, l.bus).Lex()
	p := ast.NewParser(toks, around.File(), l.strs, l.bus)
	expr := p.ParseStandaloneExpr()
	l.res.ResolveStandaloneExpr(expr)
	return l.lowerExpr(expr)
}

// liftLambda moves a lambda's body out into a freshly synthesized
// top-level Func and returns a Closure node referencing it, with its
// recorded foreign captures as explicit leading parameters threaded
// through at every call site that invokes the closure.
func (l *Lowerer) liftLambda(n *ast.Node) *Node {
	l.liftSeq++
	name := fmt.Sprintf("<lambda:%d>", l.liftSeq)
	params := n.Child[0]
	body := n.Child[1]

	foreign := l.res.LambdaForeignNames(n)
	f := &Func{DefSpan: n.Span.WithDerivation(span.DerivationLambdaLifting), Name: name}
	for capName, ref := range foreign {
		_ = capName
		f.Captures = append(f.Captures, ref.DefSpan)
	}
	for _, p := range params.Child {
		f.Params = append(f.Params, p.DefSpan)
	}
	f.Body = l.lowerExpr(body)
	l.prog.Funcs = append(l.prog.Funcs, f)

	out := &Node{Kind: KindClosure, Span: n.Span, ClosureFunc: f.DefSpan}
	out.ClosureCaptures = append(out.ClosureCaptures, f.Captures...)
	return out
}
