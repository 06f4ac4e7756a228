package hir

import (
	"github.com/sodigy-lang/sodigy/internal/ast"
	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/intern"
	"github.com/sodigy-lang/sodigy/internal/scope"
	"github.com/sodigy-lang/sodigy/internal/span"
)

// Resolver walks a parsed module and produces a resolved Session. It is
// the Sodigy analogue of yaegi's gta/cfg symbol-table walk, generalized
// from a single linked scope to the frame-kind stack of internal/scope.
type Resolver struct {
	bus    *diag.Bus
	strs   *intern.Table
	stack  *scope.Stack
	sess   *Session
	lambda map[*ast.Node]map[string]NameRef // captures per KindLambda node
}

// NewResolver returns a Resolver; strs must be the same intern.Table used
// by the lexer that produced the tokens the AST was parsed from.
func NewResolver(bus *diag.Bus, strs *intern.Table) *Resolver {
	return &Resolver{bus: bus, strs: strs, lambda: map[*ast.Node]map[string]NameRef{}}
}

func (r *Resolver) text(s intern.String) string {
	b, _ := r.strs.Lookup(s)
	return string(b)
}

// Resolve runs name resolution over a parsed module root and returns the
// resulting Session. Items are hoisted into the global frame first so
// that mutually-recursive functions and forward references resolve
// regardless of declaration order: recursion through functions is
// allowed, since a call resolves its callee by span lookup rather than
// requiring the callee to already be defined.
func (r *Resolver) Resolve(root *ast.Node) *Session {
	r.sess = newSession()
	r.stack = scope.NewStack(r.bus)

	for _, child := range root.Child {
		r.hoist(child)
	}
	for _, child := range root.Child {
		r.resolveItem(child)
	}
	r.checkLetCycles()
	return r.sess
}

func itemKindOf(n *ast.Node) (ItemKind, bool) {
	switch n.Kind {
	case ast.KindLet:
		return ItemLet, true
	case ast.KindFunc:
		return ItemFunc, true
	case ast.KindStruct:
		return ItemStruct, true
	case ast.KindEnum:
		return ItemEnum, true
	case ast.KindAlias:
		return ItemAlias, true
	case ast.KindAssert:
		return ItemAssert, true
	case ast.KindUse:
		return ItemUse, true
	case ast.KindModule:
		return ItemModule, true
	default:
		return 0, false
	}
}

func (r *Resolver) hoist(n *ast.Node) {
	kind, ok := itemKindOf(n)
	if !ok {
		return
	}
	it := &Item{Kind: kind, Node: n}
	r.sess.Items = append(r.sess.Items, it)
	r.sess.ByDefSpan[n.DefSpan] = it
	if kind == ItemAssert {
		return // asserts have no name to declare
	}
	r.stack.Declare(r.text(n.Ident), n.DefSpan, scope.OriginExternal, -1)
}

func (r *Resolver) resolveItem(n *ast.Node) {
	switch n.Kind {
	case ast.KindLet:
		r.resolveLet(n)
	case ast.KindFunc:
		r.resolveFunc(n)
	case ast.KindAssert:
		r.resolveExpr(n.Child[0])
	case ast.KindUse:
		r.resolveUse(n)
	case ast.KindModule:
		for _, c := range n.Child {
			r.resolveItem(c)
		}
	case ast.KindStruct:
		r.checkFields(n)
	case ast.KindEnum:
		for _, v := range n.Child {
			r.checkFields(v)
		}
	default:
		// Alias bodies are pure type expressions, resolved by internal/types.
	}
}

func (r *Resolver) checkFields(n *ast.Node) {
	// Struct/enum-variant field duplication is already caught by the
	// parser; nothing further to resolve here since field
	// types are resolved by internal/types against the struct's own
	// generics, not against value-level scope.
	_ = n
}

func (r *Resolver) resolveLet(n *ast.Node) {
	foreign := r.resolveItemBody(n, func() {
		value := n.Child[len(n.Child)-1]
		r.resolveExpr(value)
		if len(n.Child) == 2 {
			r.resolveTypeExpr(n.Child[0])
		}
	})
	r.attachForeign(n, foreign)
}

func (r *Resolver) resolveFunc(n *ast.Node) {
	generics := n.Child[0]
	params := n.Child[1]
	// retType := n.Child[2] (may be nil)
	body := n.Child[3]

	genericsFrame := r.stack.Push(scope.FrameGeneric)
	for i, g := range generics.Child {
		r.stack.Declare(r.text(g.Ident), g.DefSpan, scope.OriginGeneric, i)
	}

	argsFrame := r.stack.Push(scope.FrameFuncArgs)
	for i, p := range params.Child {
		if p.Child[0] != nil {
			r.resolveTypeExpr(p.Child[0])
		}
		if p.HasDefault {
			r.resolveExpr(p.Child[len(p.Child)-1])
		}
		r.stack.Declare(r.text(p.Ident), p.DefSpan, scope.OriginFuncArg, i)
	}

	r.resolveExpr(body)

	r.warnUnused(argsFrame)
	r.stack.Pop() // FuncArgs

	r.warnUnused(genericsFrame)
	r.stack.Pop() // Generic
}

// resolveItemBody is a small helper shared by Let-shaped items: it opens
// no frame of its own (a top-level let's value is resolved directly
// against the global scope) but exists to keep resolveLet symmetrical
// with resolveFunc's frame bookkeeping, and as the hook where a future
// inline-let foreign-name collector would attach.
func (r *Resolver) resolveItemBody(n *ast.Node, body func()) map[string]NameRef {
	body()
	return nil
}

func (r *Resolver) attachForeign(n *ast.Node, foreign map[string]NameRef) {
	if foreign == nil {
		return
	}
	it := r.sess.ByDefSpan[n.DefSpan]
	if it != nil {
		it.ForeignNames = foreign
	}
}

func (r *Resolver) warnUnused(f *scope.Frame) {
	for _, s := range f.UnusedIn() {
		r.bus.Warnf(diag.KindUnusedBinding, s, "unused binding")
	}
}

// resolveUse checks the one thing knowable about a use chain without the
// whole-module item table: whether its bound name is the same identifier
// as the root segment of the path it aliases. `use a as a;` (and its
// unaliased twin `use a;`, whose implicit name is just the root segment
// itself) can never resolve to anything but itself, so chasing the alias
// to find what it actually names never terminates. Everything else about
// a use chain — whether the root segment is bound locally or external,
// and `#[poly]` impl-target validation — needs the full item table and
// runs afterward in internal/interhir. Grounded on
// `_examples/original_source/crates/hir/src/use.rs`'s `Use::from_ast`,
// whose `root.id == ast_use.name` check is exactly this comparison.
func (r *Resolver) resolveUse(n *ast.Node) {
	path := n.Child[0]
	root := path.Child[0]
	rootName := r.text(root.Ident)
	aliasName := r.text(n.Ident)

	if rootName == aliasName {
		r.bus.ErrorWithAux(diag.KindAliasResolveRecursionLimit, n.DefSpan, []span.Span{root.Span}, "",
			"cannot resolve %q: it aliases a path rooted at a name identical to itself", aliasName)
	}
}

func (r *Resolver) resolveTypeExpr(n *ast.Node) {
	if n == nil {
		return
	}
	for _, c := range n.Child {
		r.resolveTypeExpr(c)
	}
}

// resolveExpr resolves identifier references within an expression/pattern
// subtree, pushing and popping scope frames as block/lambda/match-arm
// boundaries are entered.
func (r *Resolver) resolveExpr(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.KindIdent:
		name := r.text(n.Ident)
		origin, def, ok := r.stack.Lookup(name, false)
		if !ok {
			r.bus.Errorf(diag.KindUndefinedName, n.Span, "undefined name %q", name)
			return
		}
		r.sess.Refs[n.Span] = NameRef{Origin: origin, DefSpan: def}

	case ast.KindBlock:
		r.stack.Push(scope.FrameBlock)
		for _, c := range n.Child {
			if c.Kind == ast.KindLet {
				value := c.Child[len(c.Child)-1]
				r.resolveExpr(value)
				r.stack.Declare(r.text(c.Ident), c.DefSpan, scope.OriginLocal, -1)
			} else {
				r.resolveExpr(c)
			}
		}
		r.stack.Pop()

	case ast.KindIfLet:
		pat, scrut, then := n.Child[0], n.Child[1], n.Child[2]
		r.resolveExpr(scrut)
		patFrame := r.stack.Push(scope.FramePattern)
		r.resolvePattern(pat, map[string]bool{})
		r.resolveExpr(then)
		r.warnUnused(patFrame)
		r.stack.Pop()
		if len(n.Child) > 3 {
			r.resolveExpr(n.Child[3])
		}

	case ast.KindMatchArm:
		pat, guard, body := n.Child[0], n.Child[1], n.Child[2]
		patFrame := r.stack.Push(scope.FramePattern)
		r.resolvePattern(pat, map[string]bool{})
		if guard != nil {
			r.resolveExpr(guard)
		}
		r.resolveExpr(body)
		r.warnUnused(patFrame)
		r.stack.Pop()

	case ast.KindLambda:
		params := n.Child[0]
		body := n.Child[1]
		collector := r.stack.Push(scope.FrameForeignCollector)
		argsFrame := r.stack.Push(scope.FrameFuncArgs)
		for i, p := range params.Child {
			if p.Child[0] != nil {
				r.resolveTypeExpr(p.Child[0])
			}
			r.stack.Declare(r.text(p.Ident), p.DefSpan, scope.OriginFuncArg, i)
		}
		r.resolveExpr(body)
		r.warnUnused(argsFrame)
		r.stack.Pop() // FuncArgs
		r.stack.Pop() // ForeignCollector
		foreign := map[string]NameRef{}
		for name, c := range collector.Captures() {
			foreign[name] = NameRef{Origin: c.Origin(), DefSpan: c.DefSpan()}
		}
		r.lambda[n] = foreign

	default:
		for _, c := range n.Child {
			r.resolveExpr(c)
		}
	}
}

// resolvePattern resolves a pattern subtree, declaring each bound name in
// the current (innermost) frame and reporting a "name bound twice in one
// pattern" error when the same pattern tree binds a name more than once.
func (r *Resolver) resolvePattern(n *ast.Node, seen map[string]bool) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.KindPatName:
		name := r.text(n.Ident)
		if seen[name] {
			r.bus.Errorf(diag.KindMultipleShorthands, n.Span, "name %q bound twice in one pattern", name)
			return
		}
		seen[name] = true
		r.stack.Declare(name, n.DefSpan, scope.OriginLocal, -1)
	case ast.KindPatOr:
		// The arms of an or-pattern share one `seen` set, so a name bound
		// in more than one arm is reported as bound twice, the same as a
		// duplicate within one arm. Post-MIR pattern compilation rejects
		// or-pattern alternatives that bind any name at all.
		for _, c := range n.Child {
			r.resolvePattern(c, seen)
		}
	default:
		for _, c := range n.Child {
			r.resolvePattern(c, seen)
		}
	}
}

// LambdaForeignNames returns the foreign-name capture map recorded for a
// resolved KindLambda node.
func (r *Resolver) LambdaForeignNames(n *ast.Node) map[string]NameRef {
	return r.lambda[n]
}

// ResolveStandaloneExpr resolves n against r's current scope stack, used
// by MIR lowering to resolve expression fragments (f-string interpolation
// segments) parsed independently of the file they appear in. Since
// lowering runs after Resolve has returned, only the module-level global
// frame remains on the stack, so such a fragment can only reach
// module-scope names.
func (r *Resolver) ResolveStandaloneExpr(n *ast.Node) {
	r.resolveExpr(n)
}

// checkLetCycles rejects recursion through `let` value position: unlike
// functions, a let's value must already exist by the time anything
// depends on it, so a cycle through let bindings alone is unsatisfiable.
// Only Let items participate, since a Func reference is resolved lazily
// by span at call time and never needs its callee's value to already
// exist.
func (r *Resolver) checkLetCycles() {
	letRefs := map[span.Span][]span.Span{}
	for _, it := range r.sess.Items {
		if it.Kind != ItemLet {
			continue
		}
		var refs []span.Span
		value := it.Node.Child[len(it.Node.Child)-1]
		value.Walk(func(c *ast.Node) bool {
			if c.Kind == ast.KindIdent {
				if ref, ok := r.sess.Refs[c.Span]; ok {
					if target, ok := r.sess.ByDefSpan[ref.DefSpan]; ok && target.Kind == ItemLet {
						refs = append(refs, ref.DefSpan)
					}
				}
			}
			return true
		}, nil)
		letRefs[it.DefSpan()] = refs
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[span.Span]int{}
	var visit func(s span.Span) bool
	visit = func(s span.Span) bool {
		switch color[s] {
		case gray:
			return true
		case black:
			return false
		}
		color[s] = gray
		for _, dep := range letRefs[s] {
			if visit(dep) {
				return true
			}
		}
		color[s] = black
		return false
	}
	for s := range letRefs {
		if color[s] == white && visit(s) {
			r.bus.Errorf(diag.KindTodo, s, "recursive `let` value binding is not supported")
		}
	}
}
