package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/libopenstorage/lockbox"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List the available backends",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSELECTED")
		for _, name := range lockbox.Backends() {
			selected := ""
			if name == cfg.Backend {
				selected = "*"
			}
			fmt.Fprintf(w, "%s\t%s\n", name, selected)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(backendsCmd)
}
