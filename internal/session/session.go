// Package session wires the compiler's stages into one pipeline: lex,
// parse, resolve names, resolve use chains and poly impls (Inter-HIR),
// lower to MIR, infer types, rewrite fields and patterns, lower to
// bytecode, and link. It is the single entry point cmd/sodigy calls;
// everything upstream of it is usable standalone (each stage has its own
// tests), but a real compile always goes through here so that every
// stage shares one diag.Bus and one intern.Table.
package session

import (
	"github.com/google/uuid"

	"github.com/sodigy-lang/sodigy/internal/ast"
	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/hir"
	"github.com/sodigy-lang/sodigy/internal/intern"
	"github.com/sodigy-lang/sodigy/internal/interhir"
	"github.com/sodigy-lang/sodigy/internal/link"
	"github.com/sodigy-lang/sodigy/internal/lir"
	"github.com/sodigy-lang/sodigy/internal/mir"
	"github.com/sodigy-lang/sodigy/internal/postmir"
	"github.com/sodigy-lang/sodigy/internal/span"
	"github.com/sodigy-lang/sodigy/internal/token"
)

// Result holds everything a single Compile call produced: the linked
// executable (nil if compilation failed before linking), the
// diagnostics raised along the way, and the build id this run was
// tagged with.
type Result struct {
	BuildID    string
	Executable *link.Executable
	Bus        *diag.Bus
	InterHIR   *interhir.Result
}

// Compile runs the full pipeline over src and returns the linked
// executable. Compilation stops at the first stage that raises an error
// on bus, matching the original session driver's fail-fast behavior: a
// module with a name-resolution error is never handed to the type
// checker, and a module that doesn't type-check is never lowered to
// bytecode. strs is the intern.Table shared by every stage; callers that
// compile several modules into one program should reuse the same Table
// across calls so that identical identifiers intern to the same handle.
func Compile(src []byte, file span.FileID, strs *intern.Table) *Result {
	bus := diag.NewBus()
	res := &Result{BuildID: uuid.NewString(), Bus: bus}

	toks := token.NewLexer(src, file, strs, bus).Lex()
	if bus.HasErrors() {
		return res
	}

	root := ast.NewParser(toks, file, strs, bus).ParseFile()
	if bus.HasErrors() {
		return res
	}

	resolver := hir.NewResolver(bus, strs)
	hirSess := resolver.Resolve(root)
	if bus.HasErrors() {
		return res
	}

	res.InterHIR = interhir.NewSession(bus, strs).Run(hirSess)
	if bus.HasErrors() {
		return res
	}

	prog := mir.NewLowerer(bus, strs, hirSess, resolver).Lower()
	if bus.HasErrors() {
		return res
	}

	inferrer := mir.NewInferrer(bus, prog)
	typeTable := inferrer.Infer()
	if bus.HasErrors() {
		return res
	}

	shapes := structShapes(hirSess, strs)
	prog = postmir.NewSession(bus, typeTable, shapes).Lower(prog)
	if bus.HasErrors() {
		return res
	}

	lirProg := lir.Lower(bus, prog)
	if bus.HasErrors() {
		return res
	}

	res.Executable = link.Link(lirProg)
	return res
}

// structShapes extracts every struct item's field order out of a resolved
// Session, the shape postmir.Session needs to rewrite named field access
// into numeric index access.
func structShapes(sess *hir.Session, strs *intern.Table) []postmir.StructShape {
	var shapes []postmir.StructShape
	for _, item := range sess.Items {
		if item.Kind != hir.ItemStruct {
			continue
		}
		n := item.Node
		fields := make([]string, 0, len(n.Child))
		for _, field := range n.Child {
			b, _ := strs.Lookup(field.Ident)
			fields = append(fields, string(b))
		}
		shapes = append(shapes, postmir.StructShape{DefSpan: n.DefSpan, Fields: fields})
	}
	return shapes
}
