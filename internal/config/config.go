// Package config loads compiler-wide settings from a project's
// sodigy.toml (if one exists) and then lets environment variables
// override any field, the same two-layer precedence
// _examples/other_examples's retrieved manifests (mna-nenuphar,
// MadAppGang-dingo) pull in `BurntSushi/toml` and `caarlos0/env` to
// implement: file defaults first, environment last.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"
)

// Config holds every setting internal/session, internal/cache and
// internal/pool need to run a compile. Zero values are valid defaults:
// a Config built with no sodigy.toml and no environment overrides still
// compiles, just with no on-disk cache and no limit on concurrent workers.
type Config struct {
	// IntermediateDir is the directory cmd/sodigy opens internal/cache's
	// SQLite IR cache in. Empty means no on-disk cache. The intern tables
	// internal/pool creates are in-memory only whatever this is set to.
	IntermediateDir string `toml:"intermediate_dir" env:"SODIGY_INTERMEDIATE_DIR"`

	// CacheDB is the SQLite file internal/cache opens; relative to
	// IntermediateDir unless absolute. Defaults to "cache.db".
	CacheDB string `toml:"cache_db" env:"SODIGY_CACHE_DB"`

	// Workers is the number of modules internal/pool compiles
	// concurrently. 0 means "let internal/pool pick", which defaults to
	// GOMAXPROCS.
	Workers int `toml:"workers" env:"SODIGY_WORKERS"`

	// MaxOrPatternExpansion is loaded from the file and environment, but no
	// compiler stage reads it: internal/postmir always applies its fixed
	// postmir.MaxOrPatternExpansion limit.
	MaxOrPatternExpansion int `toml:"max_or_pattern_expansion" env:"SODIGY_MAX_OR_PATTERN_EXPANSION"`

	// Verbose is loaded from the file and environment, but cmd/sodigy does
	// not read it; its log level comes from the --debug, --quiet and
	// --log-level flags.
	Verbose bool `toml:"verbose" env:"SODIGY_VERBOSE"`
}

// Default returns a Config with package defaults filled in, before any
// file or environment layer is applied.
func Default() Config {
	return Config{CacheDB: "cache.db"}
}

// Load reads path (a sodigy.toml) into a Config seeded with Default,
// then applies environment-variable overrides on top. A missing path is
// not an error: it's treated as an empty file, so a project with no
// sodigy.toml still gets Default() plus any environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, err
			}
		} else if !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
