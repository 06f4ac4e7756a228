// Package types implements Sodigy's Hindley-Milner-flavored type
// representation: unification, generic instantiation, and the per-session
// types table MIR lowering populates. The Type sum type and its Endec
// shape are modeled on yaegi's itype (interp/interp.go), generalized from
// yaegi's dynamic reflect.Type wrapping to an explicit, span-addressed
// variant set.
package types

import "github.com/sodigy-lang/sodigy/internal/span"

// Kind tags a Type's variant.
type Kind uint8

const (
	KindPath Kind = iota
	KindParam
	KindTuple
	KindFunc
	KindWildcard
	KindNever
	KindVar
	KindGenericInstance
	KindStatic
)

// Type is the single representation for every type-level value: a
// qualified path, a parameterized constructor application, a tuple, a
// function type, the open/bottom markers, a unification variable, a
// pending generic-instantiation placeholder, or a resolved nominal type.
type Type struct {
	Kind Kind

	// Path / Static / Var / GenericInstance all anchor to a def-span:
	// Path's is the referenced declaration, Static's is the nominal type's
	// own declaration, Var's is the call site that introduced the
	// variable, GenericInstance's DefSpan is the call site and GenericDef
	// the generic item being instantiated.
	DefSpan   span.Span
	GenericDef span.Span

	Path string // qualified name, for KindPath

	// Param: a constructor applied to argument types, e.g. List(Int).
	Constructor string
	Args        []Type
	GroupSpan   span.Span

	Tuple []Type

	FuncParams []Type
	FuncReturn *Type
}

// Path returns a Type referencing a qualified name, e.g. "Int" or
// "std.List".
func Path(name string) Type { return Type{Kind: KindPath, Path: name} }

// Param returns a Type applying constructor to args, e.g. List(Int).
func Param(constructor string, groupSpan span.Span, args ...Type) Type {
	return Type{Kind: KindParam, Constructor: constructor, Args: args, GroupSpan: groupSpan}
}

// TupleOf returns a tuple type over elems.
func TupleOf(elems ...Type) Type { return Type{Kind: KindTuple, Tuple: elems} }

// Func returns a function type.
func Func(params []Type, ret Type) Type {
	return Type{Kind: KindFunc, FuncParams: params, FuncReturn: &ret}
}

// Wildcard is the "don't care, anything unifies" type used for `_` type
// annotations.
var Wildcard = Type{Kind: KindWildcard}

// Never is the bottom type: it unifies with anything, used for the type of
// `panic`/unreachable branches.
var Never = Type{Kind: KindNever}

// Var returns a fresh unification variable anchored at defSpan (typically
// the def-span of the let/func/param that introduced it).
func Var(defSpan span.Span) Type { return Type{Kind: KindVar, DefSpan: defSpan} }

// GenericInstance returns a placeholder for an as-yet-unconcretized
// instantiation of a generic item, to be resolved by monomorphization once
// inference has filled in the call site's binding.
func GenericInstance(callSite, genericDef span.Span) Type {
	return Type{Kind: KindGenericInstance, DefSpan: callSite, GenericDef: genericDef}
}

// Static returns a Type naming a resolved nominal declaration (a struct or
// enum's own type, post-resolution).
func Static(defSpan span.Span) Type { return Type{Kind: KindStatic, DefSpan: defSpan} }

// IsVar reports whether t is a unification variable.
func (t Type) IsVar() bool { return t.Kind == KindVar }

// String renders t for diagnostics; it is not a parser round-trip format.
func (t Type) String() string {
	switch t.Kind {
	case KindPath:
		return t.Path
	case KindParam:
		s := t.Constructor + "("
		for i, a := range t.Args {
			if i > 0 {
				s += ", "
			}
			s += a.String()
		}
		return s + ")"
	case KindTuple:
		s := "("
		for i, a := range t.Tuple {
			if i > 0 {
				s += ", "
			}
			s += a.String()
		}
		return s + ")"
	case KindFunc:
		s := "fn("
		for i, p := range t.FuncParams {
			if i > 0 {
				s += ", "
			}
			s += p.String()
		}
		s += ")"
		if t.FuncReturn != nil {
			s += " -> " + t.FuncReturn.String()
		}
		return s
	case KindWildcard:
		return "_"
	case KindNever:
		return "!"
	case KindVar:
		return "?" + t.DefSpan.String()
	case KindGenericInstance:
		return "<instance of " + t.GenericDef.String() + ">"
	case KindStatic:
		return "<static " + t.DefSpan.String() + ">"
	default:
		return "<unknown type>"
	}
}
