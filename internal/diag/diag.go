// Package diag implements Sodigy's per-stage error/warning bus and
// diagnostic rendering. Every compiler stage accumulates into a *Bus
// rather than returning an error directly, mirroring the
// scanner.ErrorList accumulate-then-report discipline yaegi leans on in
// Interpreter.REPL (see interp/interp.go, ignoreScannerError/REPL).
package diag

import (
	"fmt"
	"io"
	"sort"

	"github.com/mattn/go-isatty"

	"github.com/sodigy-lang/sodigy/internal/span"
)

// Kind enumerates the error/warning kinds, grouped by the stage that
// raises them.
type Kind string

const (
	// Lexical
	KindUnexpectedChar       Kind = "unexpected-char"
	KindUnterminatedString   Kind = "unterminated-string"
	KindUnterminatedChar     Kind = "unterminated-char"
	KindUnterminatedComment  Kind = "unterminated-block-comment"
	KindUnterminatedNumber   Kind = "unterminated-numeric-literal"
	KindInvalidUTF8          Kind = "invalid-utf8"

	// Parse
	KindUnexpectedToken Kind = "unexpected-token"
	KindUnexpectedEOF   Kind = "unexpected-eof"

	// Name
	KindNameCollision                   Kind = "name-collision"
	KindUndefinedName                   Kind = "undefined-name"
	KindAliasResolveRecursionLimit      Kind = "alias-resolve-recursion-limit-reached"
	KindUnusedBinding                   Kind = "unused-binding"

	// Type
	KindTypeMismatch       Kind = "type-mismatch"
	KindWrongNumberOfArg   Kind = "wrong-number-of-arg"
	KindNotCallable        Kind = "not-callable"
	KindCannotEvaluateConst Kind = "cannot-evaluate-const"

	// Pattern
	KindRefutablePatternInLet Kind = "refutable-pattern-in-let"
	KindUnmatchablePattern    Kind = "unmatchable-pattern"
	KindMultipleShorthands    Kind = "multiple-shorthands"

	// Module
	KindModuleFileNotFound   Kind = "module-file-not-found"
	KindMultipleModuleFiles  Kind = "multiple-module-files"

	// Poly
	KindNotPolyGeneric  Kind = "not-poly-generic"
	KindNoCandidates    Kind = "no-candidates"
	KindMultiCandidates Kind = "multi-candidates"

	// Internal
	KindTodo Kind = "todo"
)

// Severity distinguishes errors, warnings, and silent-by-default lints.
type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityLint
)

// Entry is one diagnostic: a kind, a primary span, auxiliary "defined
// here"-style spans, and an optional free-text note.
type Entry struct {
	Kind      Kind
	Severity  Severity
	Primary   span.Span
	Auxiliary []span.Span
	Message   string
	Note      string
}

// Bus is the per-session accumulator of diagnostics. Every stage function
// appends to the same Bus across its lifetime; nothing is ever thrown as a
// Go error for a user-facing mistake.
type Bus struct {
	entries []Entry
	// errCode and warnCode count the errors and warnings recorded; they do
	// not affect ordering, and the Renderer numbers its e-NNNN / w-NNNN
	// display codes on its own.
	errCode int
	warnCode int
}

// NewBus returns an empty diagnostic bus.
func NewBus() *Bus { return &Bus{} }

// Errorf records a fatal-to-the-next-stage error.
func (b *Bus) Errorf(kind Kind, primary span.Span, format string, args ...any) {
	b.errCode++
	b.entries = append(b.entries, Entry{
		Kind: kind, Severity: SeverityError, Primary: primary,
		Message: fmt.Sprintf(format, args...),
	})
}

// ErrorWithAux records a fatal error carrying auxiliary "defined here"
// spans, e.g. NameCollision's two name spans.
func (b *Bus) ErrorWithAux(kind Kind, primary span.Span, aux []span.Span, note, format string, args ...any) {
	b.errCode++
	b.entries = append(b.entries, Entry{
		Kind: kind, Severity: SeverityError, Primary: primary,
		Auxiliary: aux, Note: note,
		Message: fmt.Sprintf(format, args...),
	})
}

// Warnf records a non-fatal warning.
func (b *Bus) Warnf(kind Kind, primary span.Span, format string, args ...any) {
	b.warnCode++
	b.entries = append(b.entries, Entry{
		Kind: kind, Severity: SeverityWarning, Primary: primary,
		Message: fmt.Sprintf(format, args...),
	})
}

// Lintf records a silent-by-default lint; it is only surfaced when the
// user promotes it with #[warn]/#[deny].
func (b *Bus) Lintf(kind Kind, primary span.Span, format string, args ...any) {
	b.entries = append(b.entries, Entry{
		Kind: kind, Severity: SeverityLint, Primary: primary,
		Message: fmt.Sprintf(format, args...),
	})
}

// HasErrors reports whether any SeverityError entry has been recorded.
// The global driver checks this after every stage and halts before the
// next one runs.
func (b *Bus) HasErrors() bool {
	for _, e := range b.entries {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity entries.
func (b *Bus) Errors() []Entry { return b.filter(SeverityError) }

// Warnings returns only the warning-severity entries.
func (b *Bus) Warnings() []Entry { return b.filter(SeverityWarning) }

func (b *Bus) filter(sev Severity) []Entry {
	var out []Entry
	for _, e := range b.entries {
		if e.Severity == sev {
			out = append(out, e)
		}
	}
	return out
}

// Promote upgrades every lint of the given kind to warning (#[warn]) or
// error (#[deny]), or drops it (#[allow]).
func (b *Bus) Promote(kind Kind, to Severity) {
	for i := range b.entries {
		if b.entries[i].Kind == kind && b.entries[i].Severity == SeverityLint {
			b.entries[i].Severity = to
		}
	}
}

// Sorted returns every error and warning (lints excluded unless already
// promoted), warnings first then errors, each group sorted by primary
// span.
func (b *Bus) Sorted() []Entry {
	var warnings, errors []Entry
	for _, e := range b.entries {
		switch e.Severity {
		case SeverityError:
			errors = append(errors, e)
		case SeverityWarning:
			warnings = append(warnings, e)
		}
	}
	sort.SliceStable(warnings, func(i, j int) bool { return warnings[i].Primary.Less(warnings[j].Primary) })
	sort.SliceStable(errors, func(i, j int) bool { return errors[i].Primary.Less(errors[j].Primary) })
	return append(warnings, errors...)
}

// Merge appends every entry of other into b, used at the join points
// where per-file sessions are aggregated.
func (b *Bus) Merge(other *Bus) {
	b.entries = append(b.entries, other.entries...)
}

// Renderer prints diagnostics to an io.Writer, colorizing the title when
// the writer is a real terminal. The isatty gate matches the one yaegi
// uses for its REPL prompt (interp/interp.go, getPrompt).
type Renderer struct {
	w       io.Writer
	colored bool
	files   *span.Map
}

// NewRenderer returns a Renderer writing to w. If w wraps a file
// descriptor connected to a terminal, diagnostic titles are colorized.
func NewRenderer(w io.Writer, files *span.Map) *Renderer {
	colored := false
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		colored = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Renderer{w: w, colored: colored, files: files}
}

const (
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiReset  = "\x1b[0m"
)

func (r *Renderer) title(e Entry, code int) string {
	label := "error"
	color := ansiRed
	prefix := "e"
	if e.Severity != SeverityError {
		label = "warning"
		color = ansiYellow
		prefix = "w"
	}
	title := fmt.Sprintf("%s (%s-%04d)", label, prefix, code)
	if r.colored {
		return color + title + ansiReset
	}
	return title
}

// RenderAll writes every entry of entries (already Bus.Sorted()) in
// "title, message, optional note, annotated span" form.
func (r *Renderer) RenderAll(entries []Entry) {
	errCode, warnCode := 0, 0
	for _, e := range entries {
		var code int
		if e.Severity == SeverityError {
			errCode++
			code = errCode
		} else {
			warnCode++
			code = warnCode
		}
		fmt.Fprintf(r.w, "%s: %s\n", r.title(e, code), e.Message)
		if e.Note != "" {
			fmt.Fprintf(r.w, "  note: %s\n", e.Note)
		}
		fmt.Fprintf(r.w, "  --> %s\n", r.describe(e.Primary))
		for _, aux := range e.Auxiliary {
			fmt.Fprintf(r.w, "  defined here: %s\n", r.describe(aux))
		}
	}
}

func (r *Renderer) describe(s span.Span) string {
	if r.files == nil {
		return s.String()
	}
	switch s.Kind() {
	case span.KindRange, span.KindFile, span.KindEof:
	default:
		return s.String()
	}
	name := r.files.Name(s.File())
	if name == "" {
		return s.String()
	}
	switch s.Kind() {
	case span.KindRange:
		return fmt.Sprintf("%s[%d:%d]", name, s.Start(), s.End())
	default:
		return name
	}
}
