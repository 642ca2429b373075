package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Search the library by text similarity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := ctx.openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			query := strings.Join(args, " ")
			results, err := env.search.Query(cmd.Context(), query, limitFlag)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No results.")
				return nil
			}

			rows := make([][]string, 0, len(results))
			for _, result := range results {
				year := ""
				if result.Year > 0 {
					year = strconv.Itoa(result.Year)
				}
				rows = append(rows, []string{
					result.Title,
					year,
					string(result.Type),
					fmt.Sprintf("%.4f", result.Score),
					result.MediaID,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Title", "Year", "Type", "Score", "Media ID"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limitFlag, "limit", "k", 10, "Maximum number of results")
	return cmd
}
