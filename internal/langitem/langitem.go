// Package langitem names the handful of identifiers the compiler
// synthesizes for itself rather than accepting from user source: a
// struct's constructor body, an enum variant's constructor body, the
// `Type` of a type-level binding, and a placeholder value used where an
// expression is expected but none is meaningful yet. Grounded on
// `_examples/original_source/crates/sodigy_lang_item/src/lib.rs`'s
// `LangItem` enum.
package langitem

// Prefix marks a name as compiler-reserved: no user identifier can start
// with it, since Sodigy identifiers don't begin with `@`.
const Prefix = "@@lang_item_"

// Kind enumerates the lang items the compiler registers for itself.
type Kind uint8

const (
	// Type names the type of a type-level binding (`let T: Type = ...;`).
	Type Kind = iota
	// EnumBody names the synthesized function body backing an enum
	// variant's constructor.
	EnumBody
	// StructBody names the synthesized function body backing a struct's
	// constructor.
	StructBody
	// Dummy fills an expression position that is never meant to be
	// evaluated, e.g. a type alias's placeholder value.
	Dummy
)

// name is the un-prefixed identifier for each Kind, matching
// LangItem::into_sodigy_name.
func (k Kind) name() string {
	switch k {
	case Type:
		return "type"
	case EnumBody:
		return "enum_variant_body"
	case StructBody:
		return "struct_body"
	case Dummy:
		return "dummy"
	default:
		return "unknown"
	}
}

// String returns the full reserved name for k, e.g. "@@lang_item_type".
func (k Kind) String() string {
	return Prefix + k.name()
}

// IsLangItem reports whether name carries the reserved lang-item prefix.
func IsLangItem(name string) bool {
	return len(name) >= len(Prefix) && name[:len(Prefix)] == Prefix
}
