package postmir

import (
	"fmt"

	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/mir"
	"github.com/sodigy-lang/sodigy/internal/span"
	"github.com/sodigy-lang/sodigy/internal/token"
)

// compileMatch rewrites a resolved Match node into a chain of plain If
// nodes, so internal/lir never has to lower Match, PatTuple, PatList, or
// any other pattern shape directly: by the time a tree reaches lir, every
// conditional is already an `if cond { then } else { else }`.
func (s *Session) compileMatch(n *mir.Node) *mir.Node {
	scrutinee := n.Child[0]
	arms := n.Child[1:]

	total := 0
	for _, arm := range arms {
		total += countExpansions(arm.Child[0])
	}
	if total > MaxOrPatternExpansion {
		s.bus.Errorf(diag.KindUnmatchablePattern, n.Span,
			"match has unmatchable complexity: or-pattern expansion exceeds the limit of %d", MaxOrPatternExpansion)
		return &mir.Node{Kind: mir.KindTuple, Span: n.Span}
	}

	return s.compileArms(scrutinee, arms)
}

func (s *Session) compileArms(scrutinee *mir.Node, arms []*mir.Node) *mir.Node {
	if len(arms) == 0 {
		// A resolved, exhaustive match never runs out of arms at runtime;
		// this is reached only when an earlier exhaustiveness diagnostic
		// has already fired, so the fallback value is never observed.
		return &mir.Node{Kind: mir.KindTuple}
	}

	arm := arms[0]
	pat, guard, body := arm.Child[0], arm.Child[1], arm.Child[2]

	test, bindings := s.compilePattern(pat, scrutinee)
	boundBody := wrapBindings(bindings, body, arm.Span)

	var cond *mir.Node
	if guard != nil {
		guardBound := wrapBindings(bindings, guard, arm.Span)
		cond = andNode(test, guardBound, arm.Span)
	} else {
		cond = test
	}

	if cond == nil {
		// An always-matching, unguarded arm: later arms are unreachable,
		// so the decision tree ends here.
		return boundBody
	}

	elseBranch := s.compileArms(scrutinee, arms[1:])
	return &mir.Node{Kind: mir.KindIf, Span: arm.Span, Child: []*mir.Node{cond, boundBody, elseBranch}}
}

// binding is one name a pattern binds, with the expression that computes
// its value out of the scrutinee.
type binding struct {
	name    string
	defSpan span.Span
	value   *mir.Node
}

// wrapBindings threads pat's bindings into body as nested lets, innermost
// binding first so earlier bindings are visible to later ones (relevant
// once nested patterns can reference a sibling's bound name, e.g. struct
// patterns binding fields used by a guard).
func wrapBindings(bindings []binding, body *mir.Node, at span.Span) *mir.Node {
	if len(bindings) == 0 {
		return body
	}
	block := &mir.Node{Kind: mir.KindBlock, Span: at}
	for _, b := range bindings {
		let := &mir.Node{Kind: mir.KindLetBinding, Span: at, Ident: b.name, DefSpan: b.defSpan}
		let.AddChild(b.value)
		block.AddChild(let)
	}
	block.AddChild(body)
	return block
}

func andNode(a, b *mir.Node, at span.Span) *mir.Node {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	out := &mir.Node{Kind: mir.KindInfixOp, Span: at, Callable: mir.Callable{IsGeneric: true, GenericInfixOp: "&&"}}
	out.AddChild(a)
	out.AddChild(b)
	return out
}

func numberLit(n int, at span.Span) *mir.Node {
	return &mir.Node{Kind: mir.KindNumberLit, Span: at, Number: fmt.Sprintf("%d", n)}
}

func fieldAt(access *mir.Node, field string, at span.Span) *mir.Node {
	out := &mir.Node{Kind: mir.KindFieldAccess, Span: at, Ident: field}
	out.AddChild(access)
	return out
}

func lenOf(access *mir.Node, at span.Span) *mir.Node {
	out := &mir.Node{Kind: mir.KindCall, Span: at, Callable: mir.Callable{IsGeneric: true, GenericInfixOp: "len"}}
	out.AddChild(access)
	return out
}

func eq(a, b *mir.Node, at span.Span) *mir.Node {
	out := &mir.Node{Kind: mir.KindInfixOp, Span: at, Callable: mir.Callable{IsGeneric: true, GenericInfixOp: "=="}}
	out.AddChild(a)
	out.AddChild(b)
	return out
}

func cmp(op string, a, b *mir.Node, at span.Span) *mir.Node {
	out := &mir.Node{Kind: mir.KindInfixOp, Span: at, Callable: mir.Callable{IsGeneric: true, GenericInfixOp: op}}
	out.AddChild(a)
	out.AddChild(b)
	return out
}

// compilePattern compiles pat against access (an expression that
// evaluates the scrutinee or a sub-part of it already extracted by a
// parent call) into an optional boolean test (nil means "always
// matches") plus the bindings it introduces.
func (s *Session) compilePattern(pat, access *mir.Node) (*mir.Node, []binding) {
	switch pat.Kind {
	case mir.KindPatWildcard:
		return nil, nil

	case mir.KindPatName:
		return nil, []binding{{name: pat.Ident, defSpan: pat.DefSpan, value: access}}

	case mir.KindNumberLit, mir.KindStringLit, mir.KindCharLit, mir.KindByteLit:
		return eq(access, litNode(pat), pat.Span), nil

	case mir.KindPatTuple:
		var test *mir.Node
		var bindings []binding
		for i, c := range pat.Child {
			sub := fieldAt(access, fmt.Sprintf("_%d", i), pat.Span)
			subTest, subBindings := s.compilePattern(c, sub)
			test = andNode(test, subTest, pat.Span)
			bindings = append(bindings, subBindings...)
		}
		return test, bindings

	case mir.KindPatList:
		return s.compileListPattern(pat, access)

	case mir.KindPatOr:
		return s.compileOrPattern(pat, access)

	case mir.KindPatRange:
		return s.compileRangePattern(pat, access)

	case mir.KindPatStruct:
		// Struct patterns are accepted by the parser's grammar shape but
		// have no concrete surface syntax yet (see DESIGN.md); treat as an
		// always-matching wildcard rather than silently miscompiling.
		s.bus.Lintf(diag.KindUnmatchablePattern, pat.Span, "struct patterns are not yet compiled; treating as a wildcard")
		return nil, nil

	default:
		return nil, nil
	}
}

// countExpansions computes how many leaf alternatives pat expands to once
// every nested or-pattern is multiplied out: an or-pattern sums its
// alternatives, a tuple/list multiplies its elements' counts (each slot's
// alternatives combine independently with every other slot's), and every
// other pattern shape contributes exactly one.
func countExpansions(pat *mir.Node) int {
	switch pat.Kind {
	case mir.KindPatOr:
		total := 0
		for _, c := range pat.Child {
			total += countExpansions(c)
		}
		if total == 0 {
			return 1
		}
		return total
	case mir.KindPatTuple, mir.KindPatList:
		total := 1
		for _, c := range pat.Child {
			if c.Kind == mir.KindPatRest {
				continue
			}
			total *= countExpansions(c)
		}
		return total
	default:
		return 1
	}
}

func litNode(pat *mir.Node) *mir.Node {
	return &mir.Node{Kind: pat.Kind, Span: pat.Span, Number: pat.Number, Str: pat.Str}
}

func (s *Session) compileListPattern(pat, access *mir.Node) (*mir.Node, []binding) {
	restIdx := -1
	for i, c := range pat.Child {
		if c.Kind == mir.KindPatRest {
			restIdx = i
			break
		}
	}

	if restIdx < 0 {
		test := eq(lenOf(access, pat.Span), numberLit(len(pat.Child), pat.Span), pat.Span)
		var bindings []binding
		for i, c := range pat.Child {
			sub := fieldAt(access, fmt.Sprintf("_%d", i), pat.Span)
			subTest, subBindings := s.compilePattern(c, sub)
			test = andNode(test, subTest, pat.Span)
			bindings = append(bindings, subBindings...)
		}
		return test, bindings
	}

	// Only a trailing rest is supported: `[a, b, ..rest]`. A rest in any
	// other position is rejected rather than silently mis-binding.
	if restIdx != len(pat.Child)-1 {
		s.bus.Errorf(diag.KindUnmatchablePattern, pat.Child[restIdx].Span, "a list pattern's `..` rest must be its last element")
		return nil, nil
	}

	before := pat.Child[:restIdx]
	test := cmp(">=", lenOf(access, pat.Span), numberLit(len(before), pat.Span), pat.Span)
	var bindings []binding
	for i, c := range before {
		sub := fieldAt(access, fmt.Sprintf("_%d", i), pat.Span)
		subTest, subBindings := s.compilePattern(c, sub)
		test = andNode(test, subTest, pat.Span)
		bindings = append(bindings, subBindings...)
	}

	rest := pat.Child[restIdx]
	if rest.Ident != "" {
		tail := &mir.Node{Kind: mir.KindCall, Span: rest.Span,
			Callable: mir.Callable{IsGeneric: true, GenericInfixOp: "list_tail"}}
		tail.AddChild(access)
		tail.AddChild(numberLit(len(before), rest.Span))
		bindings = append(bindings, binding{name: rest.Ident, defSpan: rest.DefSpan, value: tail})
	}
	return test, bindings
}

// compileOrPattern requires every alternative to bind no names: an
// or-pattern whose branches bind different variables (or the same
// variable to differently-typed values) has no single binding set a
// shared body could reference, so that case is rejected rather than
// picked arbitrarily.
func (s *Session) compileOrPattern(pat, access *mir.Node) (*mir.Node, []binding) {
	var test *mir.Node
	for _, alt := range pat.Child {
		altTest, altBindings := s.compilePattern(alt, access)
		if len(altBindings) > 0 {
			s.bus.Errorf(diag.KindUnmatchablePattern, alt.Span, "or-pattern alternatives may not bind names")
			return nil, nil
		}
		if altTest == nil {
			// This alternative always matches, so the whole or-pattern does.
			return nil, nil
		}
		if test == nil {
			test = altTest
		} else {
			or := &mir.Node{Kind: mir.KindInfixOp, Span: pat.Span, Callable: mir.Callable{IsGeneric: true, GenericInfixOp: "||"}}
			or.AddChild(test)
			or.AddChild(altTest)
			test = or
		}
	}
	return test, nil
}

func (s *Session) compileRangePattern(pat, access *mir.Node) (*mir.Node, []binding) {
	lo, hi := pat.Child[0], pat.Child[1]
	inclusive := pat.Op == token.DotDotTilde

	if inclusive {
		s.bus.Lintf(diag.KindUnmatchablePattern, pat.Span, "range pattern has an inclusive end")
	}
	if lo.Kind == mir.KindNumberLit && hi.Kind == mir.KindNumberLit && lo.Number == hi.Number {
		s.bus.Lintf(diag.KindUnmatchablePattern, pat.Span, "range pattern is a single point, consider a literal pattern instead")
	}

	var hiTest *mir.Node
	if inclusive {
		hiTest = cmp("<=", access, patternValueNode(hi), pat.Span)
	} else {
		hiTest = cmp("<", access, patternValueNode(hi), pat.Span)
	}
	loCmp := cmp(">=", access, patternValueNode(lo), pat.Span)
	return andNode(loCmp, hiTest, pat.Span), nil
}

// patternValueNode converts a range endpoint (a literal or a bare name
// parsed as a pattern primary) into the value expression it denotes: a
// name refers to an existing binding, never introduces a new one, so it
// lowers to an Ident read rather than through compilePattern's
// name-binds-here rule.
func patternValueNode(pat *mir.Node) *mir.Node {
	if pat.Kind == mir.KindPatName {
		return &mir.Node{Kind: mir.KindIdent, Span: pat.Span, Ident: pat.Ident, DefSpan: pat.DefSpan}
	}
	return litNode(pat)
}
