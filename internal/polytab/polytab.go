// Package polytab implements poly-dispatch candidate resolution: matching
// a generic-operator call site's concrete type bindings against the set
// of `#[poly]` impls registered for that generic, and caching the result
// per (generic, concrete-bindings-key) pair. It is grounded on the
// original inter-hir::resolve_poly/mir-type::poly::try_solve_poly pass,
// adapted from its HashMap-of-impls shape to an LRU-cached table so a hot
// call site does not re-walk every impl on every invocation.
package polytab

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/span"
	"github.com/sodigy-lang/sodigy/internal/types"
)

// Impl is one `#[poly]` implementation: the span of the impl itself and
// the concrete generic bindings it was registered under.
type Impl struct {
	ImplSpan span.Span
	Bindings map[span.Span]types.Type
}

// Poly is the full candidate set for one poly-generic function.
type Poly struct {
	NameSpan       span.Span
	Impls          []Impl
	HasDefaultImpl bool
	DefaultImpl    span.Span
}

// Table resolves poly-dispatch calls against a fixed set of Poly
// definitions, caching resolved candidate sets by (generic, bindings key).
type Table struct {
	bus   *diag.Bus
	polys map[span.Span]*Poly
	cache *lru.Cache[cacheKey, []span.Span]
}

type cacheKey struct {
	generic span.Span
	key     string
}

// NewTable returns a Table over polys, with an LRU cache of the given
// capacity for resolved candidate lists.
func NewTable(bus *diag.Bus, polys map[span.Span]*Poly, cacheSize int) *Table {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, _ := lru.New[cacheKey, []span.Span](cacheSize)
	return &Table{bus: bus, polys: polys, cache: cache}
}

// RegisterImpl adds an impl to the poly-generic named by generic, matching
// the original pass's accumulation of `#[poly(name)]`-decorated
// definitions before resolution runs.
func (t *Table) RegisterImpl(generic span.Span, impl Impl) {
	p, ok := t.polys[generic]
	if !ok {
		p = &Poly{NameSpan: generic}
		t.polys[generic] = p
	}
	p.Impls = append(p.Impls, impl)
}

// Resolution is the outcome of dispatching one call site.
type Resolution struct {
	NotPoly       bool
	DefaultImpl   span.Span
	UsedDefault   bool
	NoCandidates  bool
	Candidate     span.Span
	MultiCandidates []span.Span
}

// Solve resolves which impl (if any) serves a call to the poly-generic at
// generic with the concrete generic bindings observed at this call site.
// A result of zero matching impls falls back to the poly's default impl if
// it declared one, else is reported as NoCandidates; more than one match
// is reported as MultiCandidates. Both error conditions are also recorded
// to the diag.Bus at callSite.
func (t *Table) Solve(generic span.Span, bindings map[span.Span]types.Type, callSite span.Span) Resolution {
	p, ok := t.polys[generic]
	if !ok {
		return Resolution{NotPoly: true}
	}

	key := cacheKey{generic: generic, key: bindingsKey(bindings)}
	if cached, ok := t.cache.Get(key); ok {
		return t.classify(p, cached, callSite)
	}

	var matches []span.Span
	for _, impl := range p.Impls {
		if bindingsMatch(impl.Bindings, bindings) {
			matches = append(matches, impl.ImplSpan)
		}
	}
	t.cache.Add(key, matches)
	return t.classify(p, matches, callSite)
}

func (t *Table) classify(p *Poly, matches []span.Span, callSite span.Span) Resolution {
	switch len(matches) {
	case 0:
		if p.HasDefaultImpl {
			return Resolution{DefaultImpl: p.DefaultImpl, UsedDefault: true}
		}
		t.bus.Errorf(diag.KindNoCandidates, callSite, "no poly impl matches the concrete types at this call site")
		return Resolution{NoCandidates: true}
	case 1:
		return Resolution{Candidate: matches[0]}
	default:
		t.bus.Errorf(diag.KindMultiCandidates, callSite, "%d poly impls match the concrete types at this call site", len(matches))
		return Resolution{MultiCandidates: matches}
	}
}

// bindingsMatch reports whether every generic binding observed at a call
// site is compatible with an impl's own fixed bindings: the impl matches
// if, for every generic param it constrains, the call site's concrete
// type for that param is structurally identical.
func bindingsMatch(implBindings, callBindings map[span.Span]types.Type) bool {
	for g, want := range implBindings {
		got, ok := callBindings[g]
		if !ok || !typesEqual(want, got) {
			return false
		}
	}
	return true
}

func typesEqual(a, b types.Type) bool {
	return a.String() == b.String()
}

// bindingsKey renders bindings into a stable cache key; map iteration
// order is non-deterministic, so every generic span's rendering is
// collected and sorted before joining.
func bindingsKey(bindings map[span.Span]types.Type) string {
	keys := make([]string, 0, len(bindings))
	for g, t := range bindings {
		keys = append(keys, g.String()+"="+t.String())
	}
	sortStrings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ";"
		}
		out += k
	}
	return out
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
