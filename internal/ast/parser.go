package ast

import (
	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/intern"
	"github.com/sodigy-lang/sodigy/internal/span"
	"github.com/sodigy-lang/sodigy/internal/token"
)

// group is one result of the delimiter pre-pass: an opening delimiter
// token paired with its matching closer and the flat sub-slice of tokens
// between them.
type group struct {
	open  token.Token
	close token.Token
	body  []token.Token
}

// matchDelimiters walks the flat token stream once and returns, for every
// delimiter pair (nested pairs included), a group holding its contents,
// reporting unmatched and mismatched delimiters as it goes. ParseFile and
// ParseStandaloneExpr call it for those diagnostics only and discard the
// groups.
func matchDelimiters(toks []token.Token, bus *diag.Bus) []group {
	var stack []int
	var groups []group
	closerFor := map[token.Kind]token.Kind{
		token.LParen: token.RParen, token.LBrace: token.RBrace, token.LBracket: token.RBracket,
	}
	isOpen := func(k token.Kind) bool { _, ok := closerFor[k]; return ok }
	isClose := func(k token.Kind) bool {
		return k == token.RParen || k == token.RBrace || k == token.RBracket
	}
	for i, tok := range toks {
		switch {
		case isOpen(tok.Kind):
			stack = append(stack, i)
		case isClose(tok.Kind):
			if len(stack) == 0 {
				bus.Errorf(diag.KindUnexpectedToken, tok.Span, "unmatched closing delimiter")
				continue
			}
			openIdx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			want := closerFor[toks[openIdx].Kind]
			if want != tok.Kind {
				bus.Errorf(diag.KindUnexpectedToken, tok.Span, "mismatched delimiter: expected closer for %v", toks[openIdx].Kind)
			}
			groups = append(groups, group{open: toks[openIdx], close: tok, body: toks[openIdx+1 : i]})
		}
	}
	for _, openIdx := range stack {
		bus.Errorf(diag.KindUnexpectedEOF, toks[openIdx].Span, "unterminated delimiter")
	}
	return groups
}

// Parser is a Pratt-precedence expression parser plus a recursive-descent
// statement parser, operating over the flat token slice; each construct
// finds its own closing delimiter as it parses.
type Parser struct {
	toks []token.Token
	pos  int
	bus  *diag.Bus
	file span.FileID
	strs *intern.Table
}

// NewParser returns a Parser over toks (as produced by token.Lexer.Lex).
// strs is the same intern.Table the lexer used, needed to compare
// identifier text for duplicate-name checks during parsing (e.g. struct
// field names).
func NewParser(toks []token.Token, file span.FileID, strs *intern.Table, bus *diag.Bus) *Parser {
	return &Parser{toks: toks, file: file, bus: bus, strs: strs}
}

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 || t.Kind != token.EOF {
		p.pos++
	}
	return t
}

// expect consumes the current token if it matches k, else records an
// UnexpectedToken diagnostic and synchronizes to the next statement
// terminator or closing delimiter.
func (p *Parser) expect(k token.Kind) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	p.bus.ErrorWithAux(diag.KindUnexpectedToken, p.cur().Span, nil, "",
		"expected token, got different kind")
	p.synchronize()
	return token.Token{}, false
}

// synchronize skips tokens until a statement terminator (`;`) or a
// closing delimiter is reached.
func (p *Parser) synchronize() {
	for !p.at(token.EOF) {
		switch p.cur().Kind {
		case token.Semi:
			p.advance()
			return
		case token.RParen, token.RBrace, token.RBracket:
			return
		}
		p.advance()
	}
}

// ParseFile parses a whole file into a Module-kind root Node whose
// children are top-level items (let/fn/struct/enum/type/module/use/
// assert), each possibly preceded by doc comments and decorator chains.
//
// The delimiter pre-pass runs first so that unmatched or mismatched
// delimiters are reported once, up front, instead of cascading into
// confusing "expected token" errors throughout the recursive-descent
// parse that follows.
func (p *Parser) ParseFile() *Node {
	matchDelimiters(p.toks, p.bus)
	root := &Node{Kind: KindModule, Span: span.File(p.file)}
	for !p.at(token.EOF) {
		item := p.parseItemWithAttrs()
		if item != nil {
			root.AddChild(item)
		} else if !p.at(token.EOF) {
			p.bus.Errorf(diag.KindUnexpectedToken, p.cur().Span, "expected an item")
			p.advance()
			p.synchronize()
		}
	}
	return root
}

// ParseStandaloneExpr parses toks as a single expression with no
// surrounding item syntax, used for fragments lexed independently of a
// whole file (f-string interpolation segments).
func (p *Parser) ParseStandaloneExpr() *Node {
	matchDelimiters(p.toks, p.bus)
	return p.parseExpr(0)
}

// parseItemWithAttrs collects a run of doc comments and decorators and
// attaches them to the following item. A doc comment or decorator with no
// following definition is an error.
func (p *Parser) parseItemWithAttrs() *Node {
	var doc *Node
	var decorators []*Node
	for {
		switch p.cur().Kind {
		case token.DocComment:
			t := p.advance()
			doc = &Node{Kind: KindDocComment, Span: t.Span, Str: t.Str}
			continue
		case token.At:
			decorators = append(decorators, p.parseDecorator())
			continue
		}
		break
	}
	item := p.parseItem()
	if item == nil {
		if doc != nil || len(decorators) > 0 {
			p.bus.Errorf(diag.KindUnexpectedToken, p.cur().Span, "doc comment or decorator without a following definition")
		}
		return nil
	}
	item.Doc = doc
	item.Decorators = decorators
	return item
}

func (p *Parser) parseDecorator() *Node {
	at := p.advance() // '@'
	name, _ := p.expect(token.Ident)
	n := &Node{Kind: KindDecorator, Span: span.Join(at.Span, name.Span), Ident: name.Ident}
	if p.at(token.LParen) {
		p.advance()
		for !p.at(token.RParen) && !p.at(token.EOF) {
			n.AddChild(p.parseExpr(0))
			if p.at(token.Comma) {
				p.advance()
			}
		}
		p.expect(token.RParen)
	}
	return n
}

func (p *Parser) parseItem() *Node {
	switch p.cur().Kind {
	case token.KwLet:
		return p.parseLet(OriginTopLevel)
	case token.KwFn:
		return p.parseFunc(OriginTopLevel)
	case token.KwStruct:
		return p.parseStruct()
	case token.KwEnum:
		return p.parseEnum()
	case token.KwType:
		return p.parseAlias()
	case token.KwModule:
		return p.parseModule()
	case token.KwUse:
		return p.parseUse()
	case token.KwAssert:
		return p.parseAssert()
	default:
		return nil
	}
}

func (p *Parser) parseLet(origin Origin) *Node {
	start := p.advance() // 'let'
	name, _ := p.expect(token.Ident)
	n := &Node{Kind: KindLet, DefSpan: name.Span, Ident: name.Ident, Origin: origin}
	if p.at(token.Colon) {
		p.advance()
		n.AddChild(p.parseTypeExpr())
	} else {
		n.AddChild(nil) // placeholder kept out; type slot tracked via len(Child)==2 vs 1 below
	}
	p.expect(token.Eq)
	n.AddChild(p.parseExpr(0))
	semi, _ := p.expect(token.Semi)
	n.Span = span.Join(start.Span, semi.Span)
	// drop the nil placeholder if no annotation was present
	if len(n.Child) == 2 && n.Child[0] == nil {
		n.Child = n.Child[1:]
	}
	return n
}

func (p *Parser) parseFunc(origin Origin) *Node {
	start := p.advance() // 'fn'
	name, _ := p.expect(token.Ident)
	n := &Node{Kind: KindFunc, DefSpan: name.Span, Ident: name.Ident, Origin: origin}

	generics := &Node{Kind: KindTuple}
	if p.at(token.Lt) {
		p.advance()
		for !p.at(token.Gt) && !p.at(token.EOF) {
			g, _ := p.expect(token.Ident)
			generics.AddChild(&Node{Kind: KindIdent, Span: g.Span, DefSpan: g.Span, Ident: g.Ident})
			if p.at(token.Comma) {
				p.advance()
			}
		}
		p.expect(token.Gt)
	}
	n.AddChild(generics)

	params := &Node{Kind: KindTuple}
	p.expect(token.LParen)
	for !p.at(token.RParen) && !p.at(token.EOF) {
		params.AddChild(p.parseParam())
		if p.at(token.Comma) {
			p.advance()
		}
	}
	p.expect(token.RParen)
	n.AddChild(params)

	if p.at(token.Arrow) {
		p.advance()
		n.AddChild(p.parseTypeExpr())
	} else {
		n.Child = append(n.Child, nil) // keep the return-type slot positional
	}

	p.expect(token.Eq)
	n.AddChild(p.parseExpr(0))
	semi, _ := p.expect(token.Semi)
	n.Span = span.Join(start.Span, semi.Span)
	return n
}

func (p *Parser) parseParam() *Node {
	name, _ := p.expect(token.Ident)
	n := &Node{Kind: KindParam, DefSpan: name.Span, Ident: name.Ident}
	if p.at(token.Colon) {
		p.advance()
		n.AddChild(p.parseTypeExpr())
	} else {
		n.Child = append(n.Child, nil) // keep the type slot positional
	}
	if p.at(token.Eq) {
		p.advance()
		n.AddChild(p.parseExpr(0))
		n.HasDefault = true
	}
	return n
}

func (p *Parser) parseStruct() *Node {
	start := p.advance()
	name, _ := p.expect(token.Ident)
	n := &Node{Kind: KindStruct, DefSpan: name.Span, Ident: name.Ident}
	p.expect(token.LBrace)
	seen := map[string]span.Span{}
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		fname, _ := p.expect(token.Ident)
		p.expect(token.Colon)
		ftype := p.parseTypeExpr()
		field := &Node{Kind: KindParam, DefSpan: fname.Span, Ident: fname.Ident}
		field.AddChild(ftype)
		key := p.identText(fname)
		if prev, ok := seen[key]; ok {
			p.bus.ErrorWithAux(diag.KindNameCollision, fname.Span, []span.Span{prev}, "",
				"duplicate struct field name")
		}
		seen[key] = fname.Span
		n.AddChild(field)
		if p.at(token.Comma) {
			p.advance()
		}
	}
	end, _ := p.expect(token.RBrace)
	n.Span = span.Join(start.Span, end.Span)
	return n
}

// identText resolves the true source bytes of an identifier token through
// the shared intern.Table, used as a dedup key for duplicate-name checks.
func (p *Parser) identText(t token.Token) string {
	if p.strs == nil {
		return ""
	}
	b, _ := p.strs.Lookup(t.Ident)
	return string(b)
}

func (p *Parser) parseEnum() *Node {
	start := p.advance()
	name, _ := p.expect(token.Ident)
	n := &Node{Kind: KindEnum, DefSpan: name.Span, Ident: name.Ident}
	p.expect(token.LBrace)
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		vname, _ := p.expect(token.Ident)
		v := &Node{Kind: KindEnumVariant, DefSpan: vname.Span, Ident: vname.Ident}
		switch p.cur().Kind {
		case token.LParen:
			v.VariantShape = VariantTuple
			p.advance()
			for !p.at(token.RParen) && !p.at(token.EOF) {
				v.AddChild(p.parseTypeExpr())
				if p.at(token.Comma) {
					p.advance()
				}
			}
			p.expect(token.RParen)
		case token.LBrace:
			v.VariantShape = VariantStruct
			p.advance()
			seen := map[string]span.Span{}
			for !p.at(token.RBrace) && !p.at(token.EOF) {
				fname, _ := p.expect(token.Ident)
				p.expect(token.Colon)
				ftype := p.parseTypeExpr()
				field := &Node{Kind: KindParam, DefSpan: fname.Span, Ident: fname.Ident}
				field.AddChild(ftype)
				key := p.identText(fname)
				if prev, ok := seen[key]; ok {
					p.bus.ErrorWithAux(diag.KindNameCollision, fname.Span, []span.Span{prev}, "",
						"duplicate struct field name")
				}
				seen[key] = fname.Span
				v.AddChild(field)
				if p.at(token.Comma) {
					p.advance()
				}
			}
			p.expect(token.RBrace)
		default:
			v.VariantShape = VariantNone
		}
		n.AddChild(v)
		if p.at(token.Comma) {
			p.advance()
		}
	}
	end, _ := p.expect(token.RBrace)
	n.Span = span.Join(start.Span, end.Span)
	return n
}

func (p *Parser) parseAlias() *Node {
	start := p.advance() // 'type'
	name, _ := p.expect(token.Ident)
	n := &Node{Kind: KindAlias, DefSpan: name.Span, Ident: name.Ident}
	p.expect(token.Eq)
	n.AddChild(p.parseTypeExpr())
	semi, _ := p.expect(token.Semi)
	n.Span = span.Join(start.Span, semi.Span)
	return n
}

func (p *Parser) parseModule() *Node {
	start := p.advance()
	name, _ := p.expect(token.Ident)
	n := &Node{Kind: KindModule, DefSpan: name.Span, Ident: name.Ident}
	p.expect(token.LBrace)
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		item := p.parseItemWithAttrs()
		if item != nil {
			n.AddChild(item)
		} else {
			p.synchronize()
		}
	}
	end, _ := p.expect(token.RBrace)
	n.Span = span.Join(start.Span, end.Span)
	return n
}

// parseUse parses a `use a.b.c [as alias];` chain. `use x as x;` is left
// for the HIR pass to reject as a recursion-limit cycle.
func (p *Parser) parseUse() *Node {
	start := p.advance()
	n := &Node{Kind: KindUse}
	path := &Node{Kind: KindPathAccess}
	first, _ := p.expect(token.Ident)
	path.AddChild(&Node{Kind: KindIdent, Span: first.Span, Ident: first.Ident})
	for p.at(token.Dot) {
		p.advance()
		seg, _ := p.expect(token.Ident)
		path.AddChild(&Node{Kind: KindIdent, Span: seg.Span, Ident: seg.Ident})
	}
	n.AddChild(path)
	if p.at(token.KwAs) {
		p.advance()
		alias, _ := p.expect(token.Ident)
		n.DefSpan = alias.Span
		n.Ident = alias.Ident
	} else if len(path.Child) > 0 {
		last := path.Child[len(path.Child)-1]
		n.DefSpan = last.Span
		n.Ident = last.Ident
	}
	semi, _ := p.expect(token.Semi)
	n.Span = span.Join(start.Span, semi.Span)
	return n
}

func (p *Parser) parseAssert() *Node {
	start := p.advance()
	n := &Node{Kind: KindAssert, DefSpan: start.Span}
	n.AddChild(p.parseExpr(0))
	semi, _ := p.expect(token.Semi)
	n.Span = span.Join(start.Span, semi.Span)
	return n
}

// parseTypeExpr parses a type expression: a path, a parameterized
// constructor `List(T)`, or a tuple. A `[` yields a Wildcard node without
// being consumed. Function types are not parsed here; the dotfish form
// `.<T>` is handled by parsePostfix.
func (p *Parser) parseTypeExpr() *Node {
	switch p.cur().Kind {
	case token.LBracket:
		return &Node{Kind: KindWildcard}
	case token.LParen:
		start := p.advance()
		n := &Node{Kind: KindTuple}
		for !p.at(token.RParen) && !p.at(token.EOF) {
			n.AddChild(p.parseTypeExpr())
			if p.at(token.Comma) {
				p.advance()
			}
		}
		end, _ := p.expect(token.RParen)
		n.Span = span.Join(start.Span, end.Span)
		return n
	default:
		name, _ := p.expect(token.Ident)
		n := &Node{Kind: KindTypeExpr, Span: name.Span, Ident: name.Ident}
		if p.at(token.LParen) {
			p.advance()
			for !p.at(token.RParen) && !p.at(token.EOF) {
				n.AddChild(p.parseTypeExpr())
				if p.at(token.Comma) {
					p.advance()
				}
			}
			p.expect(token.RParen)
		}
		return n
	}
}

// --- Pratt expression parsing -------------------------------------------------

type bindingPower struct {
	left, right int
}

// infixPower gives each infix operator its (left, right) binding power;
// a higher right-power-than-left makes the operator left-associative.
func infixPower(k token.Kind) (bindingPower, bool) {
	switch k {
	case token.OrOr:
		return bindingPower{1, 2}, true
	case token.AndAnd:
		return bindingPower{3, 4}, true
	case token.EqEq, token.Ne, token.Lt, token.Le, token.Gt, token.Ge:
		return bindingPower{5, 6}, true
	case token.Plus, token.Minus:
		return bindingPower{7, 8}, true
	case token.Star, token.Slash, token.Percent:
		return bindingPower{9, 10}, true
	case token.PipeGt:
		return bindingPower{11, 12}, true
	default:
		return bindingPower{}, false
	}
}

func prefixPower(k token.Kind) (int, bool) {
	switch k {
	case token.Minus, token.Not:
		return 13, true
	default:
		return 0, false
	}
}

// parseExpr is the Pratt loop: it parses a prefix/primary expression then
// repeatedly folds in infix/postfix operators whose left binding power
// exceeds minBP.
func (p *Parser) parseExpr(minBP int) *Node {
	lhs := p.parsePrefixOrPrimary()
	for {
		if bp, ok := infixPower(p.cur().Kind); ok && bp.left >= minBP {
			opTok := p.advance()
			rhs := p.parseExpr(bp.right)
			n := &Node{Kind: KindInfixOp, Op: opTok.Kind, Span: span.Join(lhs.Span, rhs.Span)}
			n.AddChild(lhs)
			n.AddChild(rhs)
			lhs = n
			continue
		}
		if next, ok := p.parsePostfix(lhs); ok {
			lhs = next
			continue
		}
		break
	}
	return lhs
}

func (p *Parser) parsePrefixOrPrimary() *Node {
	if bp, ok := prefixPower(p.cur().Kind); ok {
		opTok := p.advance()
		operand := p.parseExpr(bp)
		n := &Node{Kind: KindPrefixOp, Op: opTok.Kind, Span: span.Join(opTok.Span, operand.Span)}
		n.AddChild(operand)
		return n
	}
	return p.parsePrimary()
}

// parsePostfix handles call, field access (`.name`), index access (`.0`)
// and dotfish annotations (`.<T>`), which all bind tighter than any infix
// operator and may chain (`a.b(1).c`). A dotted path parses as a chain of
// field accesses; there is no range-access form.
func (p *Parser) parsePostfix(lhs *Node) (*Node, bool) {
	switch p.cur().Kind {
	case token.LParen:
		return p.parseCall(lhs), true
	case token.Dot:
		p.advance()
		if p.at(token.Number) {
			idx := p.advance()
			n := &Node{Kind: KindIndexAccess, Span: span.Join(lhs.Span, idx.Span)}
			n.AddChild(lhs)
			n.Number = idx.Number
			return n, true
		}
		name, _ := p.expect(token.Ident)
		n := &Node{Kind: KindFieldAccess, Span: span.Join(lhs.Span, name.Span), Ident: name.Ident}
		n.AddChild(lhs)
		return n, true
	case token.DotLt:
		p.advance()
		typ := p.parseTypeExpr()
		end, _ := p.expect(token.Gt)
		n := &Node{Kind: KindDotfish, Span: span.Join(lhs.Span, end.Span)}
		n.AddChild(lhs)
		n.AddChild(typ)
		return n, true
	default:
		return nil, false
	}
}

// parseCall parses positional arguments followed by keyword arguments;
// positional arguments must precede keyword arguments.
func (p *Parser) parseCall(callee *Node) *Node {
	start := p.advance() // '('
	n := &Node{Kind: KindCall}
	n.AddChild(callee)
	seenKeyword := false
	for !p.at(token.RParen) && !p.at(token.EOF) {
		if p.at(token.Ident) && p.peekIsColonEq() {
			seenKeyword = true
			name := p.advance()
			p.advance() // ':'
			val := p.parseExpr(0)
			kw := &Node{Kind: KindKeywordArg, Span: span.Join(name.Span, val.Span), Ident: name.Ident}
			kw.AddChild(val)
			n.AddChild(kw)
		} else {
			if seenKeyword {
				p.bus.Errorf(diag.KindUnexpectedToken, p.cur().Span, "positional argument after keyword argument")
			}
			n.AddChild(p.parseExpr(0))
		}
		if p.at(token.Comma) {
			p.advance()
		}
	}
	end, _ := p.expect(token.RParen)
	n.Span = span.Join(start.Span, end.Span)
	return n
}

// peekIsColonEq reports whether the current Ident token is immediately
// followed by a bare ':' (a keyword-argument marker) rather than ':' as
// part of a nested type ascription; the parser only needs one token of
// lookahead because call arguments never start with a type ascription.
func (p *Parser) peekIsColonEq() bool {
	if p.pos+1 >= len(p.toks) {
		return false
	}
	return p.toks[p.pos+1].Kind == token.Colon
}

func (p *Parser) parsePrimary() *Node {
	t := p.cur()
	switch t.Kind {
	case token.Ident:
		p.advance()
		return &Node{Kind: KindIdent, Span: t.Span, Ident: t.Ident}
	case token.Number:
		p.advance()
		return &Node{Kind: KindNumberLit, Span: t.Span, Number: t.Number, IsReal: t.IsReal}
	case token.String:
		p.advance()
		return &Node{Kind: KindStringLit, Span: t.Span, Str: t.Str, Prefix: t.Prefix}
	case token.Char:
		p.advance()
		return &Node{Kind: KindCharLit, Span: t.Span, Str: t.Str}
	case token.LParen:
		return p.parseTupleOrParen()
	case token.LBracket:
		return p.parseList()
	case token.LBrace:
		return p.parseBlock()
	case token.KwIf:
		return p.parseIf()
	case token.KwMatch:
		return p.parseMatch()
	case token.Pipe:
		return p.parseLambda()
	case token.Dollar:
		p.advance()
		return &Node{Kind: KindPipePlaceholder, Span: t.Span}
	default:
		p.bus.Errorf(diag.KindUnexpectedToken, t.Span, "expected an expression")
		p.synchronize()
		return &Node{Kind: KindWildcard, Span: t.Span}
	}
}

func (p *Parser) parseTupleOrParen() *Node {
	start := p.advance()
	if p.at(token.RParen) {
		end := p.advance()
		return &Node{Kind: KindTuple, Span: span.Join(start.Span, end.Span)}
	}
	first := p.parseExpr(0)
	if !p.at(token.Comma) {
		p.expect(token.RParen)
		return first
	}
	n := &Node{Kind: KindTuple}
	n.AddChild(first)
	for p.at(token.Comma) {
		p.advance()
		if p.at(token.RParen) {
			break
		}
		n.AddChild(p.parseExpr(0))
	}
	end, _ := p.expect(token.RParen)
	n.Span = span.Join(start.Span, end.Span)
	return n
}

func (p *Parser) parseList() *Node {
	start := p.advance()
	n := &Node{Kind: KindList}
	for !p.at(token.RBracket) && !p.at(token.EOF) {
		n.AddChild(p.parseExpr(0))
		if p.at(token.Comma) {
			p.advance()
		}
	}
	end, _ := p.expect(token.RBracket)
	n.Span = span.Join(start.Span, end.Span)
	return n
}

// parseBlock parses a sequence of local `let`s ending in an expression.
func (p *Parser) parseBlock() *Node {
	start := p.advance()
	n := &Node{Kind: KindBlock}
	for p.at(token.KwLet) {
		n.AddChild(p.parseLet(OriginInline))
	}
	if !p.at(token.RBrace) {
		n.AddChild(p.parseExpr(0))
	}
	end, _ := p.expect(token.RBrace)
	n.Span = span.Join(start.Span, end.Span)
	return n
}

// parseIf parses `if cond { then } else { else }` and the `if let` variant.
func (p *Parser) parseIf() *Node {
	start := p.advance()
	if p.at(token.KwLet) {
		p.advance()
		pat := p.parsePattern()
		p.expect(token.Eq)
		scrut := p.parseExpr(0)
		then := p.parseBlock()
		n := &Node{Kind: KindIfLet, Span: start.Span}
		n.AddChild(pat)
		n.AddChild(scrut)
		n.AddChild(then)
		if p.at(token.KwElse) {
			p.advance()
			n.AddChild(p.parseElseBranch())
		}
		return n
	}
	cond := p.parseExpr(0)
	then := p.parseBlock()
	n := &Node{Kind: KindIf, Span: span.Join(start.Span, then.Span)}
	n.AddChild(cond)
	n.AddChild(then)
	if p.at(token.KwElse) {
		p.advance()
		n.AddChild(p.parseElseBranch())
	}
	return n
}

func (p *Parser) parseElseBranch() *Node {
	if p.at(token.KwIf) {
		return p.parseIf()
	}
	return p.parseBlock()
}

func (p *Parser) parseMatch() *Node {
	start := p.advance()
	n := &Node{Kind: KindMatch, Span: start.Span}
	n.AddChild(p.parseExpr(0))
	p.expect(token.LBrace)
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		pat := p.parsePattern()
		var guard *Node
		if p.at(token.KwIf) {
			p.advance()
			guard = p.parseExpr(0)
		}
		p.expect(token.FatArrow)
		body := p.parseExpr(0)
		arm := &Node{Kind: KindMatchArm, Span: span.Join(pat.Span, body.Span)}
		arm.AddChild(pat)
		arm.Child = append(arm.Child, guard) // may be nil; kept positional so Child[2] is always body
		arm.AddChild(body)
		n.AddChild(arm)
		if p.at(token.Comma) {
			p.advance()
		}
	}
	end, _ := p.expect(token.RBrace)
	n.Span = span.Join(n.Span, end.Span)
	return n
}

func (p *Parser) parseLambda() *Node {
	start := p.advance() // '|'
	n := &Node{Kind: KindLambda, Span: start.Span, Origin: OriginLambda}
	params := &Node{Kind: KindTuple}
	for !p.at(token.Pipe) && !p.at(token.EOF) {
		params.AddChild(p.parseParam())
		if p.at(token.Comma) {
			p.advance()
		}
	}
	p.expect(token.Pipe)
	n.AddChild(params)
	body := p.parseExpr(0)
	n.AddChild(body)
	n.Span = span.Join(start.Span, body.Span)
	return n
}

// parsePattern parses the refutable/irrefutable pattern grammar used by
// `let`, `if let`, lambda/func params (irrefutable only, checked later by
// post-MIR) and match arms: names, tuples, lists with rest, structs,
// or-patterns, and ranges.
func (p *Parser) parsePattern() *Node {
	pat := p.parsePatternPrimary()
	for p.at(token.Pipe) {
		p.advance()
		rhs := p.parsePatternPrimary()
		n := &Node{Kind: KindPatOr, Span: span.Join(pat.Span, rhs.Span)}
		n.AddChild(pat)
		n.AddChild(rhs)
		pat = n
	}
	if p.at(token.DotDot) || p.at(token.DotDotTilde) {
		op := p.advance()
		hi := p.parsePatternPrimary()
		n := &Node{Kind: KindPatRange, Op: op.Kind, Span: span.Join(pat.Span, hi.Span)}
		n.AddChild(pat)
		n.AddChild(hi)
		pat = n
	}
	return pat
}

func (p *Parser) parsePatternPrimary() *Node {
	switch p.cur().Kind {
	case token.LParen:
		start := p.advance()
		n := &Node{Kind: KindPatTuple}
		for !p.at(token.RParen) && !p.at(token.EOF) {
			n.AddChild(p.parsePattern())
			if p.at(token.Comma) {
				p.advance()
			}
		}
		end, _ := p.expect(token.RParen)
		n.Span = span.Join(start.Span, end.Span)
		return n
	case token.LBracket:
		start := p.advance()
		n := &Node{Kind: KindPatList}
		for !p.at(token.RBracket) && !p.at(token.EOF) {
			if p.at(token.DotDot) {
				rest := p.advance()
				restNode := &Node{Kind: KindPatRest, Span: rest.Span}
				if p.at(token.Ident) {
					name := p.advance()
					restNode.Ident = name.Ident
					restNode.DefSpan = name.Span
					restNode.Span = span.Join(rest.Span, name.Span)
				}
				n.AddChild(restNode)
			} else {
				n.AddChild(p.parsePattern())
			}
			if p.at(token.Comma) {
				p.advance()
			}
		}
		end, _ := p.expect(token.RBracket)
		n.Span = span.Join(start.Span, end.Span)
		return n
	case token.Number:
		t := p.advance()
		return &Node{Kind: KindNumberLit, Span: t.Span, Number: t.Number}
	default:
		name, _ := p.expect(token.Ident)
		return &Node{Kind: KindPatName, Span: name.Span, DefSpan: name.Span, Ident: name.Ident}
	}
}
