// Package pool compiles a project's modules concurrently: each module's
// source is independent of every other (cross-module references resolve
// by already-interned name, not by walking another module's AST), so
// the whole project compiles in module-count/workers wall-clock time
// rather than serially. golang.org/x/sync/errgroup was already an
// indirect dependency of this module's pack (pulled in transitively by
// other tooling); this package is its first direct use.
package pool

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sodigy-lang/sodigy/internal/cache"
	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/intern"
	"github.com/sodigy-lang/sodigy/internal/link"
	"github.com/sodigy-lang/sodigy/internal/modpath"
	"github.com/sodigy-lang/sodigy/internal/session"
	"github.com/sodigy-lang/sodigy/internal/span"
)

// Module is one source file queued for compilation.
type Module struct {
	Path modpath.Path
	File span.FileID
	Src  []byte
}

// Outcome is one module's compile result.
type Outcome struct {
	Module     Module
	Executable *link.Executable
	Bus        *diag.Bus
	FromCache  bool
}

// Compile compiles every module in mods concurrently, up to workers at a
// time (0 means errgroup.SetLimit's "no limit", letting the Go runtime's
// own scheduler bound concurrency by GOMAXPROCS). Every module gets its
// own intern.Table: tables are single-writer (see internal/intern), so
// sharing one across goroutines would serialize every Intern call and
// defeat the pool entirely. store may be nil, in which case caching is
// skipped. Compile never returns an error itself — per-module failures
// surface as diagnostics on that module's own Outcome.Bus — matching
// internal/session.Compile's own fail-fast-per-stage, error-via-bus
// convention rather than a Go error return.
func Compile(ctx context.Context, mods []Module, workers int, store *cache.Store) []Outcome {
	outcomes := make([]Outcome, len(mods))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	var mu sync.Mutex // guards store; *sql.DB is safe for concurrent use, but Get-then-Put isn't atomic without it
	for i, mod := range mods {
		i, mod := i, mod
		g.Go(func() error {
			hash := cache.Hash(mod.Src)

			if store != nil {
				mu.Lock()
				exe, ok, err := store.Get(ctx, hash)
				mu.Unlock()
				if err == nil && ok {
					outcomes[i] = Outcome{Module: mod, Executable: exe, Bus: diag.NewBus(), FromCache: true}
					return nil
				}
			}

			strs := intern.NewTable("")
			res := session.Compile(mod.Src, mod.File, strs)
			outcomes[i] = Outcome{Module: mod, Executable: res.Executable, Bus: res.Bus}

			if store != nil && res.Executable != nil {
				mu.Lock()
				_ = store.Put(ctx, hash, res.Executable) // best-effort: a cache write failure shouldn't fail the compile
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	return outcomes
}
