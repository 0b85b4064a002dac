package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/strata"
	"github.com/aretw0/strata/internal/platform"
	"github.com/aretw0/strata/pkg/adapters/fs"
)

var (
	verbose bool
	dataDir string
	unsafe  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Inspect and manage save data written by the Strata persistence engine",
	Long: `Strata stores tagged fields of a live object graph as one file per group.
This tool lists, prints, watches and purges those group files without running the program
that wrote them.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "dir", "d", "", "Data directory (default: from strata.yaml, else the current directory)")
	rootCmd.PersistentFlags().BoolVar(&unsafe, "unsafe", false, "Operate on the real directory even under go run")
}

// openStore resolves the data directory and opens the filesystem store.
//
// Resolution order: --dir, then the dir key of the nearest strata.yaml (relative to
// that file), then the project root itself, then the working directory.
func openStore(readOnly bool) (*fs.Store, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	var cfg platform.FileConfig
	dir := dataDir
	if root, err := strata.FindRoot(wd); err == nil {
		cfg, err = platform.LoadConfig(filepath.Join(root, platform.ConfigFile))
		if err != nil {
			return nil, err
		}
		if dir == "" {
			dir = root
			if cfg.Dir != "" {
				dir = filepath.Join(root, cfg.Dir)
			}
		}
	}
	if dir == "" {
		dir = wd
	}

	opts := append(cfg.Options(),
		strata.WithLogger(slog.Default()),
		strata.WithMustExist(true),
		strata.WithDevSafety(!unsafe),
	)
	if readOnly {
		opts = append(opts, strata.WithReadOnly(true))
	}

	store, err := strata.Open(dir, opts...)
	if err != nil {
		return nil, err
	}
	fsStore, ok := store.(*fs.Store)
	if !ok {
		return nil, fmt.Errorf("unexpected store type %T", store)
	}
	return fsStore, nil
}
