package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var purgeDryRun bool

var purgeCmd = &cobra.Command{
	Use:   "purge [pattern]",
	Short: "Delete stored groups matching a pattern",
	Long: `Purge permanently removes every group file matching a doublestar pattern.
Use "**" to clear the whole data directory.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, err := openStore(purgeDryRun)
		if err != nil {
			fatal("Error opening store", err)
		}

		ctx := context.Background()
		if purgeDryRun {
			groups, err := store.List(ctx, args[0])
			if err != nil {
				fatal("Error listing groups", err)
			}
			for _, g := range groups {
				fmt.Printf("would delete: %s\n", g)
			}
			return
		}

		removed, err := store.Delete(ctx, args[0])
		for _, g := range removed {
			fmt.Printf("deleted: %s\n", g)
		}
		if err != nil {
			fatal("Error deleting groups", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(purgeCmd)
	purgeCmd.Flags().BoolVarP(&purgeDryRun, "dry-run", "n", false, "Only print what would be deleted")
}
