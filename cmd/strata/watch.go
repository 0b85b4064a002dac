package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/strata/pkg/adapters/lifecycle"
	"github.com/aretw0/strata/pkg/core"
)

var watchOnly []string

var watchCmd = &cobra.Command{
	Use:   "watch [pattern]",
	Short: "Print group changes as they happen",
	Long: `Watch reports group files created, modified or deleted under the data directory
until interrupted. Bursts of writes to the same group are coalesced.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pattern := ""
		if len(args) == 1 {
			pattern = args[0]
		}

		store, err := openStore(true)
		if err != nil {
			fatal("Error opening store", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		events, err := store.Watch(ctx, pattern)
		if err != nil {
			fatal("Error starting watcher", err)
		}

		var opts []lifecycle.SourceOption
		if len(watchOnly) > 0 {
			types := make([]core.EventType, 0, len(watchOnly))
			for _, t := range watchOnly {
				types = append(types, core.EventType(strings.ToUpper(t)))
			}
			opts = append(opts, lifecycle.WithTypes(types...))
		}
		src := lifecycle.NewSource(events, opts...)
		if err := src.Start(ctx); err != nil {
			fatal("Error starting event source", err)
		}

		fmt.Fprintf(os.Stderr, "watching %s (Ctrl+C to stop)\n", store.Dir())
		for e := range src.Events() {
			fmt.Printf("%s %s\n", time.Now().Format(time.TimeOnly), e)
		}
	},
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchOnly, "only", nil, "Only report these event types (create, modify, delete)")
	rootCmd.AddCommand(watchCmd)
}
