// Package modpath resolves a dotted module path (e.g. "collections.list")
// to the source file that defines it, the same two-candidate lookup
// original_source/crates/file/src/module_path.rs's ModulePath::get_file_path
// implements: a leaf module is either `src/<path>.sdg` or
// `src/<path>/mod.sdg`, and finding both or neither is an error. Each
// segment is validated with golang.org/x/mod/module.CheckFilePath before
// it's joined into a file path, since a segment is interned text off a
// source token and nothing upstream guarantees it's safe to use as a
// path component (no "..", no path separators, no reserved names).
package modpath

import (
	"fmt"
	"os"
	"path"
	"strings"

	"golang.org/x/mod/module"
)

// Path is a module's dotted path, rooted at the project's lib module.
// Lib() returns the empty path, matching ModulePath::lib's `path: vec![]`.
type Path struct {
	segments []string
}

// Lib returns the project's root module path.
func Lib() Path { return Path{} }

// IsLib reports whether p is the project root.
func (p Path) IsLib() bool { return len(p.segments) == 0 }

// Join returns the path naming the child module segment nested under p.
func (p Path) Join(segment string) Path {
	joined := make([]string, len(p.segments), len(p.segments)+1)
	copy(joined, p.segments)
	joined = append(joined, segment)
	return Path{segments: joined}
}

// String renders p as the project's own identifier convention,
// "lib.<segments dot-joined>" (empty segments render as bare "lib").
func (p Path) String() string {
	if p.IsLib() {
		return "lib"
	}
	return "lib." + strings.Join(p.segments, ".")
}

// ResolveError reports that a module path's source file could not be
// found unambiguously: either neither candidate file exists, or both do.
type ResolveError struct {
	Path       Path
	Candidates []string
	Found      []string
}

func (e *ResolveError) Error() string {
	if len(e.Found) == 0 {
		return fmt.Sprintf("no source file for module %q: tried %s", e.Path, strings.Join(e.Candidates, ", "))
	}
	return fmt.Sprintf("ambiguous source file for module %q: found both %s", e.Path, strings.Join(e.Found, " and "))
}

// Resolve finds the single source file defining p, rooted at dir (the
// project's root directory, the one containing "src/"). The project
// root module resolves to "src/lib.sdg"; any other module resolves to
// either "src/<path>.sdg" or "src/<path>/mod.sdg", and it is an error
// for both or neither to exist.
func Resolve(dir string, p Path) (string, error) {
	if p.IsLib() {
		candidate := path.Join(dir, "src", "lib.sdg")
		if fileExists(candidate) {
			return candidate, nil
		}
		return "", &ResolveError{Path: p, Candidates: []string{candidate}}
	}

	for _, seg := range p.segments {
		if err := module.CheckFilePath(seg); err != nil {
			return "", fmt.Errorf("module path %q: segment %q is not safe to use as a file path: %w", p, seg, err)
		}
	}

	joined := strings.Join(p.segments, "/")
	candidate1 := path.Join(dir, "src", joined+".sdg")
	candidate2 := path.Join(dir, "src", joined, "mod.sdg")

	exists1, exists2 := fileExists(candidate1), fileExists(candidate2)
	switch {
	case exists1 && exists2:
		return "", &ResolveError{Path: p, Candidates: []string{candidate1, candidate2}, Found: []string{candidate1, candidate2}}
	case !exists1 && !exists2:
		return "", &ResolveError{Path: p, Candidates: []string{candidate1, candidate2}}
	case exists1:
		return candidate1, nil
	default:
		return candidate2, nil
	}
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
