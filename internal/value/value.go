// Package value implements the runtime representation bytecode operates
// over: a small Scalar/Compound/FuncPointer/Span sum type, with integers
// represented as tagged sign+magnitude compounds rather than a native
// machine integer. This mirrors the original bytecode::Value enum
// (Scalar(u32), Compound(Vec<Value>), FuncPointer{def_span,pc}, Span(_)).
package value

import (
	"math/big"

	"github.com/sodigy-lang/sodigy/internal/span"
)

// Kind tags a Value's variant.
type Kind uint8

const (
	KindScalar Kind = iota
	KindCompound
	KindFuncPointer
	KindSpan
)

// Value is a single runtime value. Only the field matching Kind is
// meaningful.
type Value struct {
	Kind Kind

	Scalar uint32

	Compound []Value

	FuncDefSpan span.Span
	FuncPC      int
	FuncPCKnown bool

	SpanValue span.Span
}

func Scalar(v uint32) Value { return Value{Kind: KindScalar, Scalar: v} }

func Compound(elems ...Value) Value { return Value{Kind: KindCompound, Compound: elems} }

// FuncPointer returns an unlinked function pointer; the linker fills in
// its program counter once every item's code has been flattened into one
// address space.
func FuncPointer(defSpan span.Span) Value {
	return Value{Kind: KindFuncPointer, FuncDefSpan: defSpan}
}

func SpanValue(s span.Span) Value { return Value{Kind: KindSpan, SpanValue: s} }

// List wraps elems as a length-prefixed compound, the runtime shape every
// Sodigy list/string value takes. The length prefix is itself encoded
// through IntValue, the same tagged sign+magnitude scheme every integer
// uses, so a short list's prefix is typically a 2-element nested compound.
func List(elems []Value) Value {
	out := make([]Value, 0, len(elems)+1)
	out = append(out, IntValue(big.NewInt(int64(len(elems)))))
	out = append(out, elems...)
	return Compound(out...)
}

// StringValue converts s into the runtime list-of-char-scalar
// representation; BytesValue does the same over raw bytes instead of
// runes.
func StringValue(s string) Value {
	runes := []rune(s)
	elems := make([]Value, len(runes))
	for i, r := range runes {
		elems[i] = Scalar(uint32(r))
	}
	return List(elems)
}

func BytesValue(b []byte) Value {
	elems := make([]Value, len(b))
	for i, c := range b {
		elems[i] = Scalar(uint32(c))
	}
	return List(elems)
}

// IntValue encodes an arbitrary-precision signed integer as a tagged
// sign+magnitude compound: a leading scalar whose low bits count the
// number of 32-bit limbs that follow and whose top bit records the sign,
// followed by the limbs themselves in little-endian order.
func IntValue(n *big.Int) Value {
	neg := n.Sign() < 0
	mag := new(big.Int).Abs(n)
	if mag.Sign() == 0 {
		tag := uint32(0)
		return Compound(Scalar(tag))
	}
	words := mag.Bits()
	limbs := wordsToUint32Limbs(words)
	tag := uint32(len(limbs))
	if neg {
		tag |= 0x8000_0000
	}
	elems := make([]Value, 0, len(limbs)+1)
	elems = append(elems, Scalar(tag))
	for _, l := range limbs {
		elems = append(elems, Scalar(l))
	}
	return Compound(elems...)
}

func wordsToUint32Limbs(words []big.Word) []uint32 {
	const wordBits = 32 << (^big.Word(0) >> 63)
	if wordBits == 32 {
		out := make([]uint32, len(words))
		for i, w := range words {
			out[i] = uint32(w)
		}
		return out
	}
	var out []uint32
	for _, w := range words {
		out = append(out, uint32(w), uint32(w>>32))
	}
	for len(out) > 1 && out[len(out)-1] == 0 {
		out = out[:len(out)-1]
	}
	return out
}
