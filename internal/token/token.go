// Package token defines Sodigy's flat token stream and the Kind taxonomy
// produced by the lexer.
package token

import (
	"github.com/sodigy-lang/sodigy/internal/intern"
	"github.com/sodigy-lang/sodigy/internal/span"
)

// Kind enumerates token kinds.
type Kind uint8

const (
	Ident Kind = iota
	Number
	String
	Char
	Byte
	DocComment

	// Keywords
	KwLet
	KwFn
	KwStruct
	KwEnum
	KwType
	KwModule
	KwUse
	KwAssert
	KwIf
	KwElse
	KwMatch
	KwAs

	// Punctuation / operators
	Plus
	Minus
	Star
	Slash
	Percent
	Eq
	EqEq
	Ne
	Lt
	Le
	Gt
	Ge
	AndAnd
	OrOr
	Not
	Pipe
	PipeGt // |>
	Arrow  // ->
	FatArrow
	Dot
	DotDot   // ..
	DotDotTilde // ..~
	DotLt // .<  (dotfish type annotation open)
	Comma
	Colon
	ColonColon
	Semi
	At // decorator sigil
	Dollar // pipeline placeholder $

	// Delimiters. The parser's delimiter pre-pass pairs them up for its
	// diagnostics; the pairing is not recorded on the tokens.
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket

	EOF
)

// StringPrefix records the optional b/f/r prefix on a string literal.
type StringPrefix uint8

const (
	PrefixNone StringPrefix = iota
	PrefixBytes
	PrefixFormat
	PrefixRaw
)

// DelimID is the type of Token.Delim, an id for pairing an opening
// delimiter with its closer. Neither the lexer nor the parser's delimiter
// pre-pass assigns it, so it is always zero.
type DelimID uint32

// Token is one entry in the flat token stream. Only the fields relevant to
// its Kind are populated; callers branch on Kind first, matching the
// discipline used throughout the pipeline for sum-type-shaped data.
type Token struct {
	Kind   Kind
	Span   span.Span
	Ident  intern.String
	Number intern.Number
	IsReal bool // numeric literal had an exponent/fractional part
	Str    intern.String
	Prefix StringPrefix
	Delim  DelimID
}

var keywords = map[string]Kind{
	"let": KwLet, "fn": KwFn, "struct": KwStruct, "enum": KwEnum,
	"type": KwType, "module": KwModule, "use": KwUse, "assert": KwAssert,
	"if": KwIf, "else": KwElse, "match": KwMatch, "as": KwAs,
}

// LookupKeyword returns the keyword Kind for ident, if any.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	return k, ok
}

// SameKind reports whether two tokens have equal Kind: pretty-printing and
// re-lexing a token stream must reproduce the same Kind sequence, not
// necessarily byte-identical spans.
func SameKind(a, b Token) bool { return a.Kind == b.Kind }
