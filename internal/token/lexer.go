package token

import (
	"math/big"
	"unicode/utf8"

	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/intern"
	"github.com/sodigy-lang/sodigy/internal/span"
)

// Lexer turns a byte slice into a flat Token stream. It does not attempt
// recovery within a malformed token, but resumes scanning at the next
// whitespace.
type Lexer struct {
	src    []byte
	file   span.FileID
	pos    int
	strs   *intern.Table
	bus    *diag.Bus
	tokens []Token
}

// NewLexer returns a Lexer over src, tagging every emitted span with file.
func NewLexer(src []byte, file span.FileID, strs *intern.Table, bus *diag.Bus) *Lexer {
	return &Lexer{src: src, file: file, strs: strs, bus: bus}
}

// Lex runs the lexer to completion and returns the flat token stream,
// always terminated with an EOF token. Errors are accumulated in the
// Lexer's Bus; Lex itself never fails, so one bad token never prevents
// the rest of the file from being scanned.
func (l *Lexer) Lex() []Token {
	for {
		l.skipTrivia()
		if l.pos >= len(l.src) {
			break
		}
		start := l.pos
		c := l.src[l.pos]
		switch {
		case c == 'b' && l.peekIs(l.pos+1, '"'):
			l.pos++
			l.lexString(start, PrefixBytes)
		case c == 'f' && l.peekIs(l.pos+1, '"'):
			l.pos++
			l.lexString(start, PrefixFormat)
		case c == 'r' && l.peekIs(l.pos+1, '"'):
			l.pos++
			l.lexString(start, PrefixRaw)
		case isIdentStart(c):
			l.lexIdent(start)
		case c >= '0' && c <= '9':
			l.lexNumber(start)
		case c == '"':
			l.lexString(start, PrefixNone)
		case c == '\'':
			l.lexChar(start)
		default:
			l.lexOperatorOrDelim(start)
		}
	}
	l.emit(Token{Kind: EOF, Span: span.Eof(l.file)})
	return l.tokens
}

func (l *Lexer) peekIs(i int, want byte) bool {
	return i < len(l.src) && l.src[i] == want
}

func (l *Lexer) emit(t Token) { l.tokens = append(l.tokens, t) }

func (l *Lexer) sp(start int) span.Span { return span.Range(l.file, start, l.pos) }

// skipTrivia discards whitespace, line comments and nested block comments.
// Doc comments (`///`) are not trivia: they are emitted as DocComment
// tokens for the parser to attach to the following item.
func (l *Lexer) skipTrivia() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.pos++
		case c == '/' && l.peekIs(l.pos+1, '/'):
			if l.peekIs(l.pos+2, '/') {
				l.lexDocComment()
				return
			}
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case c == '/' && l.peekIs(l.pos+1, '*'):
			l.skipBlockComment()
		default:
			return
		}
	}
}

func (l *Lexer) lexDocComment() {
	start := l.pos
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.pos++
	}
	s, _ := l.strs.Intern(l.src[start:l.pos])
	l.emit(Token{Kind: DocComment, Span: l.sp(start), Str: s})
}

// skipBlockComment handles nested block comments.
func (l *Lexer) skipBlockComment() {
	start := l.pos
	l.pos += 2
	depth := 1
	for l.pos < len(l.src) && depth > 0 {
		switch {
		case l.peekIs(l.pos, '/') && l.peekIs(l.pos+1, '*'):
			depth++
			l.pos += 2
		case l.peekIs(l.pos, '*') && l.peekIs(l.pos+1, '/'):
			depth--
			l.pos += 2
		default:
			l.pos++
		}
	}
	if depth > 0 {
		l.bus.Errorf(diag.KindUnterminatedComment, l.sp(start), "unterminated block comment")
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (l *Lexer) lexIdent(start int) {
	l.pos++
	for l.pos < len(l.src) && isIdentCont(l.src[l.pos]) {
		l.pos++
	}
	text := l.src[start:l.pos]
	if !utf8.Valid(text) {
		l.bus.Errorf(diag.KindInvalidUTF8, l.sp(start), "invalid utf-8 in identifier")
	}
	if kw, ok := LookupKeyword(string(text)); ok {
		l.emit(Token{Kind: kw, Span: l.sp(start)})
		return
	}
	s, _ := l.strs.Intern(text)
	l.emit(Token{Kind: Ident, Span: l.sp(start), Ident: s})
}

// lexNumber accepts decimal, 0b, 0o, 0x radices, `_` digit separators, and
// an exponent suffix valid only for real (non-integer) literals. The
// literal is interned as {digits, exp, is_integer}.
func (l *Lexer) lexNumber(start int) {
	radix := 10
	if l.src[l.pos] == '0' && l.pos+1 < len(l.src) {
		switch l.src[l.pos+1] {
		case 'b', 'B':
			radix, l.pos = 2, l.pos+2
		case 'o', 'O':
			radix, l.pos = 8, l.pos+2
		case 'x', 'X':
			radix, l.pos = 16, l.pos+2
		}
	}
	digitsStart := l.pos
	isReal := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '_' {
			l.pos++
			continue
		}
		if isDigitForRadix(c, radix) {
			l.pos++
			continue
		}
		if radix == 10 && c == '.' && l.pos+1 < len(l.src) && l.src[l.pos+1] >= '0' && l.src[l.pos+1] <= '9' {
			isReal = true
			l.pos++
			continue
		}
		if radix == 10 && (c == 'e' || c == 'E') {
			isReal = true
			l.pos++
			if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
				l.pos++
			}
			continue
		}
		break
	}
	if l.pos == digitsStart {
		l.bus.Errorf(diag.KindUnterminatedNumber, l.sp(start), "unterminated numeric literal")
		return
	}

	digits := stripUnderscores(l.src[digitsStart:l.pos])
	var n intern.Number
	if isReal {
		r, ok := new(big.Rat).SetString(digits)
		if !ok {
			l.bus.Errorf(diag.KindUnterminatedNumber, l.sp(start), "malformed real literal")
			return
		}
		n = intern.Ratio(r)
	} else {
		v, ok := new(big.Int).SetString(digits, radix)
		if !ok {
			l.bus.Errorf(diag.KindUnterminatedNumber, l.sp(start), "malformed integer literal")
			return
		}
		n = intern.BigInt(v)
	}
	l.emit(Token{Kind: Number, Span: l.sp(start), Number: n, IsReal: isReal})
}

func isDigitForRadix(c byte, radix int) bool {
	switch radix {
	case 2:
		return c == '0' || c == '1'
	case 8:
		return c >= '0' && c <= '7'
	case 16:
		return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
	default:
		return c >= '0' && c <= '9'
	}
}

func stripUnderscores(b []byte) string {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c != '_' {
			out = append(out, c)
		}
	}
	return string(out)
}

func (l *Lexer) lexString(start int, prefix StringPrefix) {
	l.pos++ // opening quote
	raw := prefix == PrefixRaw
	for {
		if l.pos >= len(l.src) {
			l.bus.Errorf(diag.KindUnterminatedString, l.sp(start), "unterminated string literal")
			l.pos = start + 1 // resume at the first whitespace after the opening quote
			l.resyncToWhitespace()
			return
		}
		c := l.src[l.pos]
		if c == '"' {
			l.pos++
			break
		}
		if c == '\\' && !raw {
			l.pos += 2
			continue
		}
		if c == '\n' {
			l.bus.Errorf(diag.KindUnterminatedString, l.sp(start), "unterminated string literal")
			return
		}
		l.pos++
	}
	text := l.src[start+1 : l.pos-1]
	s, _ := l.strs.Intern(text)
	l.emit(Token{Kind: String, Span: l.sp(start), Str: s, Prefix: prefix})
}

func (l *Lexer) lexChar(start int) {
	l.pos++ // opening quote
	for l.pos < len(l.src) && l.src[l.pos] != '\'' {
		if l.src[l.pos] == '\\' {
			l.pos++
		}
		l.pos++
		break // a char literal holds exactly one (possibly escaped) scalar
	}
	if l.pos >= len(l.src) || l.src[l.pos] != '\'' {
		l.bus.Errorf(diag.KindUnterminatedChar, l.sp(start), "unterminated char literal")
		l.resyncToWhitespace()
		return
	}
	text := l.src[start+1 : l.pos]
	l.pos++
	s, _ := l.strs.Intern(text)
	l.emit(Token{Kind: Char, Span: l.sp(start), Str: s})
}

// resyncToWhitespace recovers from a malformed token by resuming scanning
// at the next whitespace.
func (l *Lexer) resyncToWhitespace() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\n', '\r':
			return
		}
		l.pos++
	}
}

type op struct {
	text string
	kind Kind
}

// multiChar operators, longest match first.
var multiChar = []op{
	{"..~", DotDotTilde},
	{"|>", PipeGt},
	{"->", Arrow},
	{"=>", FatArrow},
	{"::", ColonColon},
	{"==", EqEq},
	{"!=", Ne},
	{"<=", Le},
	{">=", Ge},
	{"&&", AndAnd},
	{"||", OrOr},
	{"..", DotDot},
	{".<", DotLt},
}

func (l *Lexer) lexOperatorOrDelim(start int) {
	for _, m := range multiChar {
		if l.pos+len(m.text) <= len(l.src) && string(l.src[l.pos:l.pos+len(m.text)]) == m.text {
			l.pos += len(m.text)
			l.emit(Token{Kind: m.kind, Span: l.sp(start)})
			return
		}
	}
	c := l.src[l.pos]
	l.pos++
	var kind Kind
	switch c {
	case '+':
		kind = Plus
	case '-':
		kind = Minus
	case '*':
		kind = Star
	case '/':
		kind = Slash
	case '%':
		kind = Percent
	case '=':
		kind = Eq
	case '<':
		kind = Lt
	case '>':
		kind = Gt
	case '!':
		kind = Not
	case '|':
		kind = Pipe
	case '.':
		kind = Dot
	case ',':
		kind = Comma
	case ':':
		kind = Colon
	case ';':
		kind = Semi
	case '@':
		kind = At
	case '$':
		kind = Dollar
	case '(':
		kind = LParen
	case ')':
		kind = RParen
	case '{':
		kind = LBrace
	case '}':
		kind = RBrace
	case '[':
		kind = LBracket
	case ']':
		kind = RBracket
	default:
		l.bus.Errorf(diag.KindUnexpectedChar, l.sp(start), "unexpected character %q", c)
		l.resyncToWhitespace()
		return
	}
	l.emit(Token{Kind: kind, Span: l.sp(start)})
}
