// Package lir lowers a post-MIR mir.Program into linear bytecode: the
// last IR stage before internal/link concatenates every item's code into
// one address space. It is directly grounded on
// _examples/original_source/crates/lir's Bytecode/Register/Label/Const
// shapes (lib.rs) and its Identifier/If/Block/Call lowering (expr.rs),
// generalized to cover the rest of the MIR node shapes
// (FieldAccess/IndexAccess/Tuple/List/InfixOp/PrefixOp/PostfixOp/Closure)
// that expr.rs left as `todo!()`/`panic!("TODO: ...")`.
package lir

import (
	"github.com/sodigy-lang/sodigy/internal/span"
	"github.com/sodigy-lang/sodigy/internal/value"
)

// Op enumerates bytecode instruction shapes.
type Op uint8

const (
	OpPush Op = iota
	OpPushConst
	OpPop
	OpPushCallStack
	OpPopCallStack
	OpGoto
	OpLabel // creates a label; no-op at runtime, only used to flatten Jump/Goto targets at link time
	OpReturn
	OpJumpIf
)

// RegKind distinguishes the three register files a function body reads
// and writes: Local and Call are stacks (pushed once per live binding,
// popped once it's no longer needed), Return is a single slot the
// previous instruction's result always lands in.
type RegKind uint8

const (
	RegLocal RegKind = iota
	RegCall
	RegReturn
)

type Register struct {
	Kind  RegKind
	Index uint32
}

func Local(i uint32) Register { return Register{Kind: RegLocal, Index: i} }
func Call(i uint32) Register  { return Register{Kind: RegCall, Index: i} }

var Return = Register{Kind: RegReturn}

// LabelKind distinguishes a jump target not yet resolved to an absolute
// instruction index (Local, scoped to one item's own bytecode; Global,
// naming another item's entry point by its definition span; Intrinsic,
// naming a runtime builtin by name) from one internal/link has already
// resolved (Flatten).
type LabelKind uint8

const (
	LabelLocal LabelKind = iota
	LabelGlobal
	LabelIntrinsic
	LabelFlatten
)

type Label struct {
	Kind      LabelKind
	Index     uint32    // LabelLocal
	DefSpan   span.Span // LabelGlobal
	Intrinsic string    // LabelIntrinsic
	Flat      int       // LabelFlatten
}

func LocalLabel(i uint32) Label        { return Label{Kind: LabelLocal, Index: i} }
func GlobalLabel(s span.Span) Label    { return Label{Kind: LabelGlobal, DefSpan: s} }
func IntrinsicLabel(name string) Label { return Label{Kind: LabelIntrinsic, Intrinsic: name} }

// Bytecode is one instruction. Only the fields relevant to Op are
// meaningful, the same tagged-union-as-struct discipline mir.Node and
// ast.Node already use.
type Bytecode struct {
	Op Op

	Src, Dst Register // OpPush
	Pop      Register // OpPop

	Const value.Value // OpPushConst
	Dest  Register     // OpPushConst's destination

	Target Label // OpGoto, OpPushCallStack, OpJumpIf, OpLabel

	Cond Register // OpJumpIf
}

// Item is one top-level def's bytecode: a function, or a top-level let
// lowered as a zero-argument body that every reference to it calls.
type Item struct {
	DefSpan span.Span
	Name    string
	Code    []Bytecode
}

// Program is every item lowered to bytecode, ready for internal/link to
// concatenate into one Executable.
type Program struct {
	Funcs []*Item
	Lets  []*Item
}
