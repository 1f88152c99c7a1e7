package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"aiagents/internal/modeldata"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the supported models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := modeldata.Embedded()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDISPLAY NAME\tMAX TOKENS\tRECOMMENDED FOR")
			for _, s := range catalog.Summaries() {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.Name, s.DisplayName, catalog.MaxTokens(s.Name), s.RecommendedFor)
			}
			return w.Flush()
		},
	}
}
