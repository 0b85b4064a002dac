package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

var (
	listJSON bool
	listLong bool
)

var listCmd = &cobra.Command{
	Use:     "ls [pattern]",
	Aliases: []string{"list"},
	Short:   "List stored groups",
	Long: `List the group files of the data directory.
An optional doublestar pattern filters them, e.g. "saves/**/*.json".`,
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

		ctx := context.Background()
		if !listLong && !listJSON {
			groups, err := store.List(ctx, pattern)
			if err != nil {
				fatal("Error listing groups", err)
			}
			for _, g := range groups {
				fmt.Println(g)
			}
			return
		}

		infos, err := store.Describe(ctx, pattern)
		if err != nil {
			fatal("Error listing groups", err)
		}

		if listJSON {
			out, err := sonic.ConfigStd.MarshalIndent(infos, "", "  ")
			if err != nil {
				fatal("Error encoding JSON", err)
			}
			fmt.Println(string(out))
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "GROUP\tRECORDS\tMODIFIED\tOWNERS")
		for _, info := range infos {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
				info.Group, info.Records, info.LastModified.Format("2006-01-02 15:04:05"), strings.Join(info.Owners, ","))
		}
		_ = w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().BoolVarP(&listLong, "long", "l", false, "Show record counts and owners")
}
