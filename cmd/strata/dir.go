package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dirCmd = &cobra.Command{
	Use:   "dir",
	Short: "Print the resolved data directory",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		store, err := openStore(true)
		if err != nil {
			fatal("Error opening store", err)
		}
		fmt.Println(store.Dir())
	},
}

func init() {
	rootCmd.AddCommand(dirCmd)
}
