// Package main implements the sodigy CLI: compile a single source file,
// or a whole project's modules, to a linked executable.
//
// Grounded on _examples/playbymail-ottomap/cmd/parser/main.go's cobra
// shape: a root command carrying persistent logging flags resolved in
// PersistentPreRunE, a version subcommand, and RunE returning a plain
// error rather than calling os.Exit directly.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sodigy-lang/sodigy/internal/cache"
	"github.com/sodigy-lang/sodigy/internal/config"
	"github.com/sodigy-lang/sodigy/internal/diag"
	"github.com/sodigy-lang/sodigy/internal/modpath"
	"github.com/sodigy-lang/sodigy/internal/pool"
	"github.com/sodigy-lang/sodigy/internal/span"
)

var (
	version = "0.1.0"
	logger  *slog.Logger
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	root := newRootCmd()
	if err := root.Execute(); err != nil {
		logger.Error("sodigy", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "sodigy",
		Short:         "sodigy compiler",
		Long:          "Compile Sodigy source to linked bytecode.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Root().PersistentFlags()
			logLevel, err := flags.GetString("log-level")
			if err != nil {
				return err
			}
			debug, err := flags.GetBool("debug")
			if err != nil {
				return err
			}
			quiet, err := flags.GetBool("quiet")
			if err != nil {
				return err
			}
			if debug && quiet {
				return fmt.Errorf("--debug and --quiet are mutually exclusive")
			}

			var lvl slog.Level
			switch {
			case debug:
				lvl = slog.LevelDebug
			case quiet:
				lvl = slog.LevelError
			default:
				switch strings.ToLower(logLevel) {
				case "debug":
					lvl = slog.LevelDebug
				case "info":
					lvl = slog.LevelInfo
				case "warn", "warning":
					lvl = slog.LevelWarn
				case "error":
					lvl = slog.LevelError
				default:
					return fmt.Errorf("log-level: unknown value %q", logLevel)
				}
			}
			logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
			return nil
		},
	}

	root.PersistentFlags().Bool("debug", false, "enable debug logging (same as --log-level=debug)")
	root.PersistentFlags().Bool("quiet", false, "only log errors (same as --log-level=error)")
	root.PersistentFlags().String("log-level", "error", "logging level (debug|info|warn|error)")
	root.PersistentFlags().StringVar(&configPath, "config", "sodigy.toml", "path to the project's config file")

	root.AddCommand(newBuildCmd(&configPath))
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "display the compiler's version number",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	}
}

func newBuildCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <path>...",
		Short: "compile one or more source files to a linked executable",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			var store *cache.Store
			if cfg.IntermediateDir != "" {
				dbPath := cfg.CacheDB
				if !filepath.IsAbs(dbPath) {
					dbPath = filepath.Join(cfg.IntermediateDir, dbPath)
				}
				store, err = cache.Open(dbPath)
				if err != nil {
					return fmt.Errorf("open cache: %w", err)
				}
				defer store.Close()
			}

			files := span.NewMap()
			mods := make([]pool.Module, 0, len(args))
			for _, path := range args {
				src, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				fid := files.AddFile(path)
				mods = append(mods, pool.Module{
					Path: modpath.Lib().Join(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))),
					File: fid,
					Src:  src,
				})
			}

			started := time.Now()
			outcomes := pool.Compile(context.Background(), mods, cfg.Workers, store)
			logger.Info("build", "modules", len(mods), "elapsed", time.Since(started).String())

			renderer := diag.NewRenderer(os.Stderr, files)
			failed := false
			for _, o := range outcomes {
				if len(o.Bus.Sorted()) > 0 {
					renderer.RenderAll(o.Bus.Sorted())
				}
				if o.Bus.HasErrors() {
					failed = true
					continue
				}
				logger.Info("build", "module", o.Module.Path.String(), "instructions", len(o.Executable.Bytecode), "cached", o.FromCache)
			}
			if failed {
				return fmt.Errorf("build failed")
			}
			return nil
		},
	}
	return cmd
}
