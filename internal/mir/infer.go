package mir

import (
	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/span"
	"github.com/sodigy-lang/sodigy/internal/types"
)

// Inferrer runs Hindley-Milner inference over a lowered Program, recording
// every expression's inferred type into a span-keyed table. Call sites of
// a generic function each receive their own fresh instantiation of that
// function's generic parameters, so unifying one call's arguments never
// leaks constraints into another call of the same generic.
type Inferrer struct {
	bus   *diag.Bus
	prog  *Program
	subst *types.Subst
	uni   *types.Unifier
	Types map[span.Span]types.Type

	funcSig map[span.Span]types.Type // per-Func signature, keyed by Func.DefSpan
	env     map[span.Span]types.Type // per-binding DefSpan -> type, rebuilt per function
}

// NewInferrer returns an Inferrer over prog.
func NewInferrer(bus *diag.Bus, prog *Program) *Inferrer {
	subst := types.NewSubst()
	return &Inferrer{
		bus: bus, prog: prog, subst: subst, uni: types.NewUnifier(bus, subst),
		Types: map[span.Span]types.Type{}, funcSig: map[span.Span]types.Type{},
	}
}

// Infer runs inference over every function and top-level let in the
// program and returns the resolved types table (every Var resolved as far
// as unification could determine).
func (inf *Inferrer) Infer() map[span.Span]types.Type {
	for _, f := range inf.prog.Funcs {
		inf.declareFuncSig(f)
	}
	for _, f := range inf.prog.Funcs {
		inf.inferFunc(f)
	}
	for _, lt := range inf.prog.Lets {
		inf.env = map[span.Span]types.Type{}
		t := inf.inferExpr(lt.Value)
		inf.record(lt.DefSpan, t)
	}
	resolved := map[span.Span]types.Type{}
	for s, t := range inf.Types {
		resolved[s] = inf.subst.Resolve(t)
	}
	return resolved
}

func (inf *Inferrer) declareFuncSig(f *Func) {
	params := make([]types.Type, 0, len(f.Captures)+len(f.Params))
	for _, c := range f.Captures {
		params = append(params, types.Var(c))
	}
	for _, p := range f.Params {
		params = append(params, types.Var(p))
	}
	ret := types.Var(f.DefSpan)
	inf.funcSig[f.DefSpan.Key()] = types.Func(params, ret)
}

func (inf *Inferrer) inferFunc(f *Func) {
	inf.env = map[span.Span]types.Type{}
	sig := inf.funcSig[f.DefSpan.Key()]
	i := 0
	for _, c := range f.Captures {
		inf.env[c.Key()] = sig.FuncParams[i]
		i++
	}
	for _, p := range f.Params {
		inf.env[p.Key()] = sig.FuncParams[i]
		i++
	}
	bodyType := inf.inferExpr(f.Body)
	inf.uni.Unify(bodyType, *sig.FuncReturn, f.Body.Span, f.DefSpan)
	inf.record(f.DefSpan, sig)
}

func (inf *Inferrer) record(s span.Span, t types.Type) {
	inf.Types[s] = t
}

// inferExpr infers n's type, recording it for every node (not only
// identifiers), since post-MIR field lowering and LIR bytecode selection
// both need an expression's type, not only a binding's.
func (inf *Inferrer) inferExpr(n *Node) types.Type {
	if n == nil {
		return types.Never
	}
	var t types.Type
	switch n.Kind {
	case KindIdent:
		if bound, ok := inf.env[n.DefSpan.Key()]; ok {
			t = bound
		} else if sig, ok := inf.funcSig[n.DefSpan.Key()]; ok {
			t = sig
		} else {
			t = types.Var(n.Span)
		}

	case KindNumberLit:
		t = types.Path("Int")

	case KindStringLit:
		t = types.Path("Str")

	case KindCharLit:
		t = types.Path("Char")

	case KindByteLit:
		t = types.Path("Byte")

	case KindTuple:
		elems := make([]types.Type, len(n.Child))
		for i, c := range n.Child {
			elems[i] = inf.inferExpr(c)
		}
		t = types.TupleOf(elems...)

	case KindList:
		elemVar := types.Var(n.Span)
		for _, c := range n.Child {
			inf.uni.Unify(elemVar, inf.inferExpr(c), c.Span, n.Span)
		}
		t = types.Param("List", n.Span, elemVar)

	case KindBlock:
		t = inf.inferBlock(n)

	case KindLetBinding:
		v := inf.inferExpr(n.Child[0])
		inf.env[n.DefSpan.Key()] = v
		t = v

	case KindIf:
		inf.uni.Unify(inf.inferExpr(n.Child[0]), types.Path("Bool"), n.Child[0].Span, n.Span)
		thenT := inf.inferExpr(n.Child[1])
		if len(n.Child) > 2 {
			elseT := inf.inferExpr(n.Child[2])
			inf.uni.Unify(thenT, elseT, n.Child[2].Span, n.Child[1].Span)
		}
		t = thenT

	case KindMatch:
		scrutT := inf.inferExpr(n.Child[0])
		result := types.Var(n.Span)
		for _, arm := range n.Child[1:] {
			inf.bindPattern(arm.Child[0], scrutT)
			if arm.Child[1] != nil {
				inf.uni.Unify(inf.inferExpr(arm.Child[1]), types.Path("Bool"), arm.Child[1].Span, arm.Span)
			}
			bodyT := inf.inferExpr(arm.Child[2])
			inf.uni.Unify(result, bodyT, arm.Child[2].Span, n.Span)
		}
		t = result

	case KindInfixOp:
		lhsT := inf.inferExpr(n.Child[0])
		rhsT := inf.inferExpr(n.Child[1])
		switch n.Callable.GenericInfixOp {
		case "==", "!=", "<", "<=", ">", ">=", "&&", "||":
			t = types.Path("Bool")
		case "++":
			inf.uni.Unify(lhsT, types.Path("Str"), n.Child[0].Span, n.Span)
			inf.uni.Unify(rhsT, types.Path("Str"), n.Child[1].Span, n.Span)
			t = types.Path("Str")
		default:
			inf.uni.Unify(lhsT, rhsT, n.Child[0].Span, n.Child[1].Span)
			t = lhsT
		}

	case KindPrefixOp:
		t = inf.inferExpr(n.Child[0])

	case KindPostfixOp:
		t = inf.inferExpr(n.Child[0])

	case KindCall:
		t = inf.inferCall(n)

	case KindClosure:
		sig, ok := inf.funcSig[n.ClosureFunc.Key()]
		if !ok {
			t = types.Var(n.Span)
			break
		}
		// Captures are already bound in the enclosing environment; the
		// Closure's own type is the function type over its declared
		// (non-capture) parameters only, captures having been partially
		// applied at lift time.
		t = types.Func(sig.FuncParams[len(n.ClosureCaptures):], *sig.FuncReturn)

	case KindFieldAccess:
		// Struct field types are resolved once internal/postmir lowers
		// field names to numeric indices against a known struct type;
		// until then a field access's type is an unconstrained variable.
		inf.inferExpr(n.Child[0])
		t = types.Var(n.Span)

	case KindIndexAccess:
		inf.inferExpr(n.Child[0])
		for _, c := range n.Child[1:] {
			inf.inferExpr(c)
		}
		t = types.Var(n.Span)

	case KindKeywordArg:
		t = inf.inferExpr(n.Child[0])

	case KindPatWildcard:
		t = types.Wildcard

	default:
		t = types.Var(n.Span)
	}
	inf.record(n.Span, t)
	return t
}

func (inf *Inferrer) inferBlock(n *Node) types.Type {
	var last types.Type = types.TupleOf()
	for _, c := range n.Child {
		last = inf.inferExpr(c)
	}
	return last
}

// inferCall infers a call's argument and result types. A call to a known
// static function instantiates that function's signature fresh for this
// call site; a call through a dynamic (non-static) callee only infers its
// arguments, leaving the result an unconstrained variable for poly
// dispatch to later resolve.
func (inf *Inferrer) inferCall(n *Node) types.Type {
	args := n.Child[1:]
	argTypes := make([]types.Type, len(args))
	for i, a := range args {
		argTypes[i] = inf.inferExpr(a)
	}
	inf.inferExpr(n.Child[0])

	if n.Callable.DefSpan.IsNone() {
		return types.Var(n.Span)
	}
	sig, ok := inf.funcSig[n.Callable.DefSpan.Key()]
	if !ok {
		return types.Var(n.Span)
	}
	f := inf.prog.FuncByDefSpan(n.Callable.DefSpan)
	if f != nil && len(f.Generics) > 0 {
		sig = types.Instantiate(sig, f.Generics, n.Span)
	}
	if len(sig.FuncParams) != len(argTypes) {
		inf.bus.Errorf(diag.KindWrongNumberOfArg, n.Span,
			"call takes %d arguments, found %d", len(sig.FuncParams), len(argTypes))
		return types.Var(n.Span)
	}
	for i, a := range args {
		inf.uni.Unify(sig.FuncParams[i], argTypes[i], a.Span, n.Callable.DefSpan)
	}
	return *sig.FuncReturn
}

// bindPattern unifies scrutT against pat's shape, binding every KindPatName
// leaf into the current environment.
func (inf *Inferrer) bindPattern(pat *Node, scrutT types.Type) {
	if pat == nil {
		return
	}
	switch pat.Kind {
	case KindPatName:
		inf.env[pat.DefSpan.Key()] = scrutT
	case KindPatWildcard:
	case KindPatTuple:
		elems := make([]types.Type, len(pat.Child))
		for i := range pat.Child {
			elems[i] = types.Var(pat.Child[i].Span)
		}
		inf.uni.Unify(scrutT, types.TupleOf(elems...), pat.Span, pat.Span)
		for i, c := range pat.Child {
			inf.bindPattern(c, elems[i])
		}
	case KindPatOr:
		for _, c := range pat.Child {
			inf.bindPattern(c, scrutT)
		}
	case KindPatList:
		elemVar := types.Var(pat.Span)
		inf.uni.Unify(scrutT, types.Param("List", pat.Span, elemVar), pat.Span, pat.Span)
		for _, c := range pat.Child {
			inf.bindPattern(c, elemVar)
		}
	default:
		for _, c := range pat.Child {
			inf.bindPattern(c, types.Var(c.Span))
		}
	}
}
