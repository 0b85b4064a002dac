package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/ordered"
)

var (
	showJSON bool
	showYAML bool
	showRaw  bool
)

var showCmd = &cobra.Command{
	Use:   "show [group]",
	Short: "Print the fields stored in a group",
	Long: `Show prints the effective value of every field stored in a group, keyed by
owner/component.field. When a field is stored more than once the last record wins, as it
does on load; --raw prints every record instead.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, err := openStore(true)
		if err != nil {
			fatal("Error opening store", err)
		}

		records, err := store.Load(context.Background(), args[0])
		if err != nil {
			fatal("Error loading group", err)
		}

		if showRaw {
			out, err := sonic.ConfigStd.MarshalIndent(records, "", "  ")
			if err != nil {
				fatal("Error encoding JSON", err)
			}
			fmt.Println(string(out))
			return
		}

		fields := effectiveFields(records)
		if shadowed := len(records) - fields.Len(); shadowed > 0 {
			fmt.Fprintf(os.Stderr, "note: %d record(s) overridden by later ones\n", shadowed)
		}

		switch {
		case showJSON:
			out, err := sonic.ConfigStd.MarshalIndent(fields, "", "  ")
			if err != nil {
				fatal("Error encoding JSON", err)
			}
			fmt.Println(string(out))
		case showYAML:
			out, err := yaml.Marshal(fields)
			if err != nil {
				fatal("Error encoding YAML", err)
			}
			fmt.Print(string(out))
		default:
			fields.ForEach(func(k, v string) {
				fmt.Printf("%s = %s\n", k, v)
			})
		}
	},
}

// effectiveFields keys each record by owner and field. Set keeps the first position of a
// key and the last value, which is what a load would leave on the graph.
func effectiveFields(records []core.Record) *ordered.Map[string, string] {
	fields := ordered.New[string, string]()
	for _, r := range records {
		owner := r.Owner
		if r.OwnerID != "" {
			owner = r.Owner + "#" + r.OwnerID
		}
		fields.Set(owner+"/"+r.Component+"."+r.Field, r.Payload)
	}
	return fields
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output in JSON format")
	showCmd.Flags().BoolVar(&showYAML, "yaml", false, "Output in YAML format")
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "Print every stored record")
}
