package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"bitharbor/internal/ingest"
	"bitharbor/internal/media"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Search external catalogs and ingest matches",
	}

	catalogCmd.AddCommand(newCatalogSearchCommand(ctx))
	catalogCmd.AddCommand(newCatalogIngestCommand(ctx))

	return catalogCmd
}

func newCatalogSearchCommand(ctx *commandContext) *cobra.Command {
	var yearFlag int

	cmd := &cobra.Command{
		Use:   "search <title>...",
		Short: "Search the Internet Archive movie catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := ctx.openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			title := strings.Join(args, " ")
			matches, err := env.catalog.Search(cmd.Context(), title, yearFlag)
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matches.")
				return nil
			}

			rows := make([][]string, 0, len(matches))
			for _, match := range matches {
				year := ""
				if match.Year > 0 {
					year = strconv.Itoa(match.Year)
				}
				rows = append(rows, []string{
					match.Title,
					year,
					strconv.FormatInt(match.Downloads, 10),
					fmt.Sprintf("%.1f", match.AvgRating),
					fmt.Sprintf("%.2f", match.Score),
					match.MatchID,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Title", "Year", "Downloads", "Rating", "Score", "Match ID"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintln(out, "Run 'bitharbor catalog ingest <match-id>' to download and ingest a match.")
			return nil
		},
	}

	cmd.Flags().IntVar(&yearFlag, "year", 0, "Restrict results to a release year")
	return cmd
}

func newCatalogIngestCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <match-id>",
		Short: "Download a cached catalog match and ingest it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := ctx.openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			acquisition, err := env.catalog.Acquire(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			outcome, err := env.orchestrator.Ingest(cmd.Context(), ingest.Request{
				Path:            acquisition.LocalPath,
				Type:            media.TypeMovie,
				SourceType:      media.SourceCatalog,
				CatalogMetadata: acquisition.Metadata,
				PosterPath:      acquisition.PosterPath,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outcome.Duplicate {
				fmt.Fprintf(out, "%s: already in library as %s\n", acquisition.Match.Identifier, outcome.MediaID)
				return nil
			}
			fmt.Fprintf(out, "%s: committed media_id=%s row_id=%d\n", acquisition.Match.Identifier, outcome.MediaID, outcome.RowID)
			return nil
		},
	}
	return cmd
}
