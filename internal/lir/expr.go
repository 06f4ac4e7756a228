package lir

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/mir"
	"github.com/sodigy-lang/sodigy/internal/value"
)

// lowerExpr lowers n, appending instructions to *code, leaving n's
// value in Register::Return. If isTailCall, it additionally pops this
// item's argument registers and exits (either a plain Return, or for a
// Call node, a tail-jump straight to the callee instead of a
// call/return round-trip) rather than falling through to whatever the
// caller emits next.
//
// Directly grounded on
// _examples/original_source/crates/lir/src/expr.rs's lower_mir_expr:
// the Identifier/If/Block/Call cases follow it closely; the remaining
// cases (literals, Tuple/List, FieldAccess/IndexAccess, the three
// operator kinds, Closure) generalize the same pattern to MIR node
// shapes expr.rs left as `todo!()`.
func (s *session) lowerExpr(n *mir.Node, code *[]Bytecode, isTailCall bool) {
	switch n.Kind {
	case mir.KindIdent:
		reg, ok := s.localRegisters[n.DefSpan]
		if !ok {
			// A top-level reference (not a local/param/capture): invoke it
			// the same way a zero-arg function call is lowered below, since
			// a top-level let is lowered as a zero-arg thunk. This assumes
			// the identifier denotes a value binding rather than a
			// multi-arg function passed around as a first-class value;
			// the latter is not yet supported (see DESIGN.md).
			s.lowerExpr(&mir.Node{Kind: mir.KindCall, Span: n.Span,
				Callable: mir.Callable{DefSpan: n.DefSpan}, Child: []*mir.Node{n}}, code, isTailCall)
			return
		}
		*code = append(*code, Bytecode{Op: OpPush, Src: reg, Dst: Return})
		s.exitIfTail(code, isTailCall)

	case mir.KindNumberLit, mir.KindStringLit, mir.KindCharLit, mir.KindByteLit:
		*code = append(*code, Bytecode{Op: OpPushConst, Const: s.lowerConst(n), Dest: Return})
		s.exitIfTail(code, isTailCall)

	case mir.KindIf:
		s.lowerIf(n, code, isTailCall)

	case mir.KindBlock:
		s.lowerBlock(n, code, isTailCall)

	case mir.KindCall:
		s.lowerCall(n, code, isTailCall)

	case mir.KindInfixOp, mir.KindPrefixOp, mir.KindPostfixOp:
		s.lowerOpCall(n, code, isTailCall)

	case mir.KindTuple:
		s.lowerBuiltinCall("make_tuple", n.Child, code, isTailCall)

	case mir.KindList:
		s.lowerBuiltinCall("make_list", n.Child, code, isTailCall)

	case mir.KindFieldAccess:
		s.lowerFieldAccess(n, code, isTailCall)

	case mir.KindIndexAccess:
		s.lowerBuiltinCall("index_get", n.Child, code, isTailCall)

	case mir.KindClosure:
		s.lowerClosure(n, code, isTailCall)

	case mir.KindMatch:
		// internal/postmir compiles every Match into nested Ifs before
		// lir ever runs; reaching this means a lowering pass upstream of
		// lir was skipped.
		s.bus.Errorf(diag.KindTodo, n.Span, "internal error: an uncompiled match reached bytecode lowering")
		*code = append(*code, Bytecode{Op: OpPushConst, Const: value.Compound(), Dest: Return})
		s.exitIfTail(code, isTailCall)

	default:
		s.bus.Errorf(diag.KindTodo, n.Span, "internal error: %v has no bytecode lowering", n.Kind)
		*code = append(*code, Bytecode{Op: OpPushConst, Const: value.Compound(), Dest: Return})
		s.exitIfTail(code, isTailCall)
	}
}

// exitIfTail emits the epilogue every tail position shares once its
// value already sits in Register::Return: pop every Call(_) argument
// register this item was entered with, then Return to whichever
// Goto(PushCallStack(_)) pair called it.
func (s *session) exitIfTail(code *[]Bytecode, isTailCall bool) {
	if !isTailCall {
		return
	}
	for i := 0; i < s.funcArgCount; i++ {
		*code = append(*code, Bytecode{Op: OpPop, Pop: Call(uint32(i))})
	}
	*code = append(*code, Bytecode{Op: OpReturn})
}

func (s *session) lowerIf(n *mir.Node, code *[]Bytecode, isTailCall bool) {
	cond, trueValue, falseValue := n.Child[0], n.Child[1], n.Child[2]
	trueLabel := s.tmpLabel()
	endLabel := s.tmpLabel()

	s.lowerExpr(cond, code, false)
	*code = append(*code, Bytecode{Op: OpJumpIf, Cond: Return, Target: trueLabel})

	// If isTailCall, false_value's lowering already exits the item, so
	// skipping past it is unnecessary; it's only needed to avoid
	// falling through into true_value's code in the non-tail case.
	s.lowerExpr(falseValue, code, isTailCall)
	if !isTailCall {
		*code = append(*code, Bytecode{Op: OpGoto, Target: endLabel})
	}

	*code = append(*code, Bytecode{Op: OpLabel, Target: trueLabel})
	s.lowerExpr(trueValue, code, isTailCall)
	if !isTailCall {
		*code = append(*code, Bytecode{Op: OpLabel, Target: endLabel})
	}
}

func (s *session) lowerBlock(n *mir.Node, code *[]Bytecode, isTailCall bool) {
	if len(n.Child) == 0 {
		*code = append(*code, Bytecode{Op: OpPushConst, Const: value.Compound(), Dest: Return})
		s.exitIfTail(code, isTailCall)
		return
	}
	for _, stmt := range n.Child[:len(n.Child)-1] {
		if stmt.Kind != mir.KindLetBinding {
			// A non-binding statement kept only for a side effect (an
			// assertion, a call whose result is discarded); its value
			// still has to be computed, just not retained anywhere.
			s.lowerExpr(stmt, code, false)
			continue
		}
		s.lowerExpr(stmt.Child[0], code, false)
		reg := s.allocLocal(stmt.DefSpan)
		*code = append(*code, Bytecode{Op: OpPush, Src: Return, Dst: reg})
	}
	s.lowerExpr(n.Child[len(n.Child)-1], code, isTailCall)
}

func (s *session) lowerCall(n *mir.Node, code *[]Bytecode, isTailCall bool) {
	callee, args := n.Child[0], n.Child[1:]

	switch {
	case n.Callable.IsGeneric:
		s.lowerArgsAndJump(IntrinsicLabel(n.Callable.GenericInfixOp), args, code, isTailCall)
	case !n.Callable.DefSpan.IsNone():
		s.lowerArgsAndJump(GlobalLabel(n.Callable.DefSpan), args, code, isTailCall)
	default:
		// The callee isn't a statically-known function or poly-resolved
		// operator: it's a value (e.g. a closure bound to a parameter),
		// so dispatch through the "call_closure" intrinsic, passing the
		// callee's own runtime value as the leading argument alongside
		// make_closure's func-pointer+captures encoding.
		s.lowerArgsAndJump(IntrinsicLabel("call_closure"), append([]*mir.Node{callee}, args...), code, isTailCall)
	}
}

func (s *session) lowerOpCall(n *mir.Node, code *[]Bytecode, isTailCall bool) {
	target := IntrinsicLabel(n.Callable.GenericInfixOp)
	s.lowerArgsAndJump(target, n.Child, code, isTailCall)
}

func (s *session) lowerBuiltinCall(name string, args []*mir.Node, code *[]Bytecode, isTailCall bool) {
	s.lowerArgsAndJump(IntrinsicLabel(name), args, code, isTailCall)
}

// lowerArgsAndJump evaluates each arg (in order, non-tail, since an
// argument is never itself in tail position) into Register::Call(i),
// then either tail-jumps straight to target (popping this item's own
// argument registers first) or performs a nested call: push a resume
// label, Goto target, Label(resume), PopCallStack.
func (s *session) lowerArgsAndJump(target Label, args []*mir.Node, code *[]Bytecode, isTailCall bool) {
	for i, arg := range args {
		s.lowerExpr(arg, code, false)
		*code = append(*code, Bytecode{Op: OpPush, Src: Return, Dst: Call(uint32(i))})
	}

	if isTailCall {
		for i := 0; i < s.funcArgCount; i++ {
			*code = append(*code, Bytecode{Op: OpPop, Pop: Call(uint32(i))})
		}
		*code = append(*code, Bytecode{Op: OpGoto, Target: target})
		return
	}

	resume := s.tmpLabel()
	*code = append(*code, Bytecode{Op: OpPushCallStack, Target: resume})
	*code = append(*code, Bytecode{Op: OpGoto, Target: target})
	*code = append(*code, Bytecode{Op: OpLabel, Target: resume})
	*code = append(*code, Bytecode{Op: OpPopCallStack})
}

// lowerFieldAccess reads field "_N" off a compound value by numeric
// index. internal/postmir rewrites every field access it can resolve to
// this numeric form; a field name it left unresolved is reported here as
// an internal error.
func (s *session) lowerFieldAccess(n *mir.Node, code *[]Bytecode, isTailCall bool) {
	idxStr := strings.TrimPrefix(n.Ident, "_")
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		s.bus.Errorf(diag.KindTodo, n.Span, "internal error: unresolved field access %q reached bytecode lowering", n.Ident)
		idx = 0
	}
	indexLit := &mir.Node{Kind: mir.KindNumberLit, Span: n.Span, Number: fmt.Sprintf("%d", idx)}
	s.lowerBuiltinCall("field_get", []*mir.Node{n.Child[0], indexLit}, code, isTailCall)
}

// lowerClosure builds a runtime closure value: the lifted func's
// (unlinked) function pointer followed by each captured binding's
// current value, passed to the "make_closure" intrinsic. The func
// pointer's program counter is left unresolved here; internal/link
// fills it in from func_pointer_map the same way it resolves every
// other Value::FuncPointer constant.
func (s *session) lowerClosure(n *mir.Node, code *[]Bytecode, isTailCall bool) {
	*code = append(*code, Bytecode{Op: OpPushConst, Const: value.FuncPointer(n.ClosureFunc), Dest: Return})
	*code = append(*code, Bytecode{Op: OpPush, Src: Return, Dst: Call(0)})
	for i, c := range n.ClosureCaptures {
		reg, ok := s.localRegisters[c]
		if !ok {
			// A capture that isn't itself a local/param in this scope is
			// an internal inconsistency between lambda-lifting and lir;
			// fall back to an uninitialized Local(0) rather than a
			// register index that was never assigned.
			s.bus.Errorf(diag.KindTodo, n.Span, "internal error: closure capture has no assigned register")
			reg = Local(0)
		}
		*code = append(*code, Bytecode{Op: OpPush, Src: reg, Dst: Call(uint32(i + 1))})
	}

	target := IntrinsicLabel("make_closure")
	if isTailCall {
		for i := 0; i < s.funcArgCount; i++ {
			*code = append(*code, Bytecode{Op: OpPop, Pop: Call(uint32(i))})
		}
		*code = append(*code, Bytecode{Op: OpGoto, Target: target})
		return
	}
	resume := s.tmpLabel()
	*code = append(*code, Bytecode{Op: OpPushCallStack, Target: resume})
	*code = append(*code, Bytecode{Op: OpGoto, Target: target})
	*code = append(*code, Bytecode{Op: OpLabel, Target: resume})
	*code = append(*code, Bytecode{Op: OpPopCallStack})
}

func (s *session) lowerConst(n *mir.Node) value.Value {
	switch n.Kind {
	case mir.KindNumberLit:
		i, ok := new(big.Int).SetString(n.Number, 10)
		if ok {
			return value.IntValue(i)
		}
		// A ratio literal ("3/4"): no first-class rational runtime value
		// exists yet, so represent it as a 2-element compound of its
		// numerator and denominator rather than losing precision to a
		// float, until internal/value grows dedicated ratio support.
		parts := strings.SplitN(n.Number, "/", 2)
		if len(parts) == 2 {
			num, _ := new(big.Int).SetString(parts[0], 10)
			den, _ := new(big.Int).SetString(parts[1], 10)
			if num == nil {
				num = big.NewInt(0)
			}
			if den == nil {
				den = big.NewInt(1)
			}
			return value.Compound(value.IntValue(num), value.IntValue(den))
		}
		return value.IntValue(big.NewInt(0))
	case mir.KindStringLit:
		return value.StringValue(n.Str)
	case mir.KindCharLit:
		r := []rune(n.Str)
		if len(r) == 0 {
			return value.Scalar(0)
		}
		return value.Scalar(uint32(r[0]))
	case mir.KindByteLit:
		if len(n.Str) == 0 {
			return value.Scalar(0)
		}
		return value.Scalar(uint32(n.Str[0]))
	default:
		return value.Compound()
	}
}
