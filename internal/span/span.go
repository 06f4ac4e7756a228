// Package span provides the compact source-location references used as
// both diagnostic anchors and cross-item identity keys by every later IR
// stage (see DESIGN.md).
package span

import "fmt"

// FileID identifies a source file within a compilation. Zero is reserved
// and never assigned to a real file.
type FileID uint32

// Kind discriminates the shapes a Span can anchor to.
type Kind uint8

const (
	// KindNone is the zero value: no source location at all (synthesized
	// items with no textual origin, e.g. compiler-generated prelude glue).
	KindNone Kind = iota
	// KindPrelude anchors a span to a named built-in, not a byte range.
	KindPrelude
	// KindFile anchors a span to an entire file (used for file-level
	// diagnostics such as "module file not found").
	KindFile
	// KindEof anchors a span to the end of a file (unterminated-token
	// diagnostics point here).
	KindEof
	// KindRange is the common case: a byte range within a file.
	KindRange
)

// DerivationKind records why a span was synthesized by a desugaring pass,
// for use in diagnostic notes only. It never participates in span ordering
// or equality.
type DerivationKind uint8

const (
	DerivationNone DerivationKind = iota
	DerivationPipeline
	DerivationLambdaLifting
	DerivationIfLet
	DerivationFStringConcat
)

func (d DerivationKind) String() string {
	switch d {
	case DerivationPipeline:
		return "pipeline desugaring"
	case DerivationLambdaLifting:
		return "lambda lifting"
	case DerivationIfLet:
		return "if-let desugaring"
	case DerivationFStringConcat:
		return "format-string concatenation"
	default:
		return "none"
	}
}

// Span is a tagged reference to a source location. The zero Span is
// KindNone, which compares smallest under Less.
//
// Span doubles as an item identity key: HIR/MIR/LIR items, and entries in
// the types table, are addressed by the Span of their defining name, never
// by pointer.
type Span struct {
	kind    Kind
	file    FileID
	start   int
	end     int
	name    string // KindPrelude payload
	derived DerivationKind
}

// None is the canonical no-location span.
var None = Span{kind: KindNone}

// Range builds a Range{file,start,end} span.
func Range(file FileID, start, end int) Span {
	return Span{kind: KindRange, file: file, start: start, end: end}
}

// File builds a whole-file span.
func File(file FileID) Span {
	return Span{kind: KindFile, file: file}
}

// Eof builds an end-of-file span.
func Eof(file FileID) Span {
	return Span{kind: KindEof, file: file}
}

// Prelude builds a span referring to a built-in by name.
func Prelude(name string) Span {
	return Span{kind: KindPrelude, name: name}
}

// WithDerivation returns a copy of s carrying the given derivation kind,
// for use in desugaring passes that must synthesize a new span for a
// rewritten expression (pipelines, if-let, lambda lifting, f-strings).
func (s Span) WithDerivation(d DerivationKind) Span {
	s.derived = d
	return s
}

func (s Span) Kind() Kind                     { return s.kind }
func (s Span) File() FileID                   { return s.file }
func (s Span) Start() int                     { return s.start }
func (s Span) End() int                       { return s.end }
func (s Span) PreludeName() string            { return s.name }
func (s Span) Derivation() DerivationKind     { return s.derived }
func (s Span) IsNone() bool                   { return s.kind == KindNone }

// Join returns the smallest span covering both a and b when they share a
// file and are both ranges; otherwise it returns a unchanged. Used by the
// parser to widen an expression's span as it consumes more tokens.
func Join(a, b Span) Span {
	if a.kind != KindRange || b.kind != KindRange || a.file != b.file {
		return a
	}
	start, end := a.start, a.end
	if b.start < start {
		start = b.start
	}
	if b.end > end {
		end = b.end
	}
	return Span{kind: KindRange, file: a.file, start: start, end: end}
}

// order assigns the total order required for diagnostic sorting:
// None < Prelude < Range/File/Eof ordered by (file, start, end).
func (s Span) order() (class int, file FileID, start, end int, name string) {
	switch s.kind {
	case KindNone:
		return 0, 0, 0, 0, ""
	case KindPrelude:
		return 1, 0, 0, 0, s.name
	default:
		return 2, s.file, s.start, s.end, ""
	}
}

// Less implements a total order over spans: a derived span compares equal
// in ordering to its undecorated counterpart, since DerivationKind is
// note-only metadata.
func (s Span) Less(o Span) bool {
	c1, f1, st1, e1, n1 := s.order()
	c2, f2, st2, e2, n2 := o.order()
	if c1 != c2 {
		return c1 < c2
	}
	switch c1 {
	case 0:
		return false
	case 1:
		return n1 < n2
	default:
		if f1 != f2 {
			return f1 < f2
		}
		if st1 != st2 {
			return st1 < st2
		}
		return e1 < e2
	}
}

// Key returns s stripped of its derivation kind, suitable for use as a map
// key (derivation metadata must never affect identity, only diagnostics).
func (s Span) Key() Span {
	s.derived = DerivationNone
	return s
}

func (s Span) String() string {
	switch s.kind {
	case KindNone:
		return "<no span>"
	case KindPrelude:
		return fmt.Sprintf("<prelude %s>", s.name)
	case KindFile:
		return fmt.Sprintf("file#%d", s.file)
	case KindEof:
		return fmt.Sprintf("file#%d:eof", s.file)
	default:
		return fmt.Sprintf("file#%d[%d:%d]", s.file, s.start, s.end)
	}
}

// Map tracks file names by FileID, mirroring the role token.FileSet plays
// for yaegi's AST (interp.Interpreter.fset): a single process-wide table
// that spans reference by small integer id rather than by string.
type Map struct {
	names []string
}

// NewMap returns an empty file map; id 0 is reserved so FileID zero values
// are recognizably invalid.
func NewMap() *Map {
	return &Map{names: []string{""}}
}

// AddFile registers name and returns its FileID.
func (m *Map) AddFile(name string) FileID {
	m.names = append(m.names, name)
	return FileID(len(m.names) - 1)
}

// Name returns the file name for id, or "" if unknown.
func (m *Map) Name(id FileID) string {
	if int(id) >= len(m.names) {
		return ""
	}
	return m.names[id]
}
