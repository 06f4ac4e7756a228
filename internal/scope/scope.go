// Package scope implements Sodigy's lexical namespace stack: frames for
// module-level items, function parameters, generics, pattern bindings, and
// the foreign-name collector boundary that powers closure capture.
package scope

import (
	"github.com/dolthub/swiss"

	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/span"
)

// FrameKind tags a namespace-stack frame.
type FrameKind uint8

const (
	FrameGlobal FrameKind = iota
	FrameGeneric
	FrameFuncArgs
	FramePattern
	FrameForeignCollector
	FrameBlock
)

// Origin classifies how a resolved identifier relates to the scope it was
// looked up from.
type Origin uint8

const (
	OriginLocal Origin = iota
	OriginFuncArg
	OriginGeneric
	OriginForeign
	OriginExternal
	OriginPrelude
)

// binding is one entry in a frame: the def-span identity of the name plus
// its per-context use counters. Separate "always" and "debug-only"
// counters exist so that assertions do not silence unused-name warnings.
type binding struct {
	defSpan    span.Span
	origin     Origin
	index      int // FuncArg/Generic positional index, else -1
	usesAlways int
	usesDebug  int
}

// Frame is one level of the namespace stack.
type Frame struct {
	kind FrameKind
	syms *swiss.Map[string, *binding]
	// captures, populated only for FrameForeignCollector frames, records
	// every name resolved past this boundary: (name, origin, def_span)
	// triples forming the closure's foreign-name map.
	captures map[string]capture
}

type capture struct {
	origin  Origin
	defSpan span.Span
}

// Origin returns the origin the captured name had before it was crossed
// into a closure boundary.
func (c capture) Origin() Origin { return c.origin }

// DefSpan returns the def-span identity of the captured name.
func (c capture) DefSpan() span.Span { return c.defSpan }

func newFrame(kind FrameKind) *Frame {
	f := &Frame{kind: kind, syms: swiss.NewMap[string, *binding](8)}
	if kind == FrameForeignCollector {
		f.captures = map[string]capture{}
	}
	return f
}

// Captures returns the (name, origin, def_span) triples recorded at a
// FrameForeignCollector boundary.
func (f *Frame) Captures() map[string]capture { return f.captures }

// Stack is the full lexical scope stack used while resolving one item
// (and its nested blocks/lambdas) to HIR.
type Stack struct {
	frames []*Frame
	bus    *diag.Bus
}

// NewStack returns a Stack seeded with a single FrameGlobal frame holding
// the module's top-level items.
func NewStack(bus *diag.Bus) *Stack {
	s := &Stack{bus: bus}
	s.frames = append(s.frames, newFrame(FrameGlobal))
	return s
}

// Push opens a new frame of the given kind.
func (s *Stack) Push(kind FrameKind) *Frame {
	f := newFrame(kind)
	s.frames = append(s.frames, f)
	return f
}

// Pop closes the innermost frame. Unused-binding warnings for that frame
// are the caller's responsibility (via Frame iteration) before Pop, since
// the frame's bindings are discarded here.
func (s *Stack) Pop() {
	if len(s.frames) > 1 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// Declare introduces name at the innermost frame, reporting a
// NameCollision if the frame already defines it: two params, two
// generics, or duplicate top-level item names all go through this path
// (duplicate struct field names are checked by the parser instead).
func (s *Stack) Declare(name string, defSpan span.Span, origin Origin, index int) {
	f := s.frames[len(s.frames)-1]
	if prev, ok := f.syms.Get(name); ok {
		s.bus.ErrorWithAux(diag.KindNameCollision, defSpan, []span.Span{prev.defSpan}, "",
			"name %q is already defined in this scope", name)
		return
	}
	f.syms.Put(name, &binding{defSpan: defSpan, origin: origin, index: index})
}

// Lookup walks the stack top-down; the first frame defining name wins. It
// returns the binding's Origin and def-span, and reclassifies
// OriginLocal/FuncArg/Generic results found below a ForeignNameCollector
// boundary as OriginForeign, recording the capture in every such boundary
// crossed on the way up: nested closures propagate captures outward
// without double-foreign-ing a name that is local to an intermediate
// closure.
func (s *Stack) Lookup(name string, debugOnly bool) (Origin, span.Span, bool) {
	crossedCollectors := []*Frame{}
	for i := len(s.frames) - 1; i >= 0; i-- {
		f := s.frames[i]
		if b, ok := f.syms.Get(name); ok {
			origin := b.origin
			if debugOnly {
				b.usesDebug++
			} else {
				b.usesAlways++
			}
			if len(crossedCollectors) > 0 && origin != OriginExternal && origin != OriginPrelude {
				for _, c := range crossedCollectors {
					if _, already := c.captures[name]; !already {
						c.captures[name] = capture{origin: origin, defSpan: b.defSpan}
					}
				}
				origin = OriginForeign
			}
			return origin, b.defSpan, true
		}
		if f.kind == FrameForeignCollector {
			crossedCollectors = append(crossedCollectors, f)
		}
	}
	return 0, span.None, false
}

// UnusedIn returns the names declared directly in f that were never used
// in either context, for the unused-binding warning pass.
func (f *Frame) UnusedIn() []span.Span {
	var out []span.Span
	f.syms.Iter(func(_ string, b *binding) bool {
		if b.usesAlways == 0 && b.usesDebug == 0 {
			out = append(out, b.defSpan)
		}
		return false
	})
	return out
}
