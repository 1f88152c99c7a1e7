package main

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"aiagents/internal/core"
	"aiagents/internal/modeldata"
)

func newEstimateCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "estimate TEXT...",
		Short: "Estimate the token count of a text",
		Long:  "Estimate tokens the same way the service does: one token per four characters, rounded down.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			tokens := core.EstimateTokens(text)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "characters: %d\n", utf8.RuneCountInString(text))
			fmt.Fprintf(out, "words:      %d\n", len(strings.Fields(text)))
			fmt.Fprintf(out, "tokens:     %d\n", tokens)

			if model == "" {
				return nil
			}
			catalog, err := modeldata.Embedded()
			if err != nil {
				return err
			}
			entry, ok := catalog.Resolve(model)
			if !ok {
				return core.NewModelNotFoundError(model)
			}
			limit := catalog.MaxTokens(entry.ID)
			fits := "yes"
			if tokens > limit {
				fits = "no"
			}
			fmt.Fprintf(out, "model:      %s (limit %d, fits: %s)\n", entry.ID, limit, fits)
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "check the estimate against a model's token limit")
	return cmd
}
