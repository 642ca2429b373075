package main

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"bitharbor/internal/ingest"
	"bitharbor/internal/media"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var typeFlag string
	var sourceFlag string
	var titleFlag string
	var yearFlag int
	var parallelFlag int

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Ingest media files into the library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mediaType, err := media.ParseType(typeFlag)
			if err != nil {
				return err
			}
			sourceType := media.SourceHome
			if sourceFlag == string(media.SourceCatalog) {
				sourceType = media.SourceCatalog
			}
			if len(args) > 1 && titleFlag != "" {
				return fmt.Errorf("--title applies to a single file, got %d", len(args))
			}

			env, err := ctx.openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			if parallelFlag < 1 {
				parallelFlag = 1
			}

			var mu sync.Mutex
			outcomes := make(map[string]*ingest.Outcome, len(args))

			group, groupCtx := errgroup.WithContext(cmd.Context())
			group.SetLimit(parallelFlag)
			for _, path := range args {
				group.Go(func() error {
					outcome, err := env.orchestrator.Ingest(groupCtx, ingest.Request{
						Path:       path,
						Type:       mediaType,
						SourceType: sourceType,
						Metadata:   media.Metadata{Title: titleFlag, Year: yearFlag},
					})
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					mu.Lock()
					outcomes[path] = outcome
					mu.Unlock()
					return nil
				})
			}
			if err := group.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, path := range args {
				outcome := outcomes[path]
				if outcome.Duplicate {
					fmt.Fprintf(out, "%s: duplicate of %s\n", path, outcome.MediaID)
					continue
				}
				fmt.Fprintf(out, "%s: committed media_id=%s row_id=%d\n", path, outcome.MediaID, outcome.RowID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeFlag, "type", "t", "video", "Media type (movie|tv|music|podcast|video|personal)")
	cmd.Flags().StringVar(&sourceFlag, "source", string(media.SourceHome), "Source type (catalog|home)")
	cmd.Flags().StringVar(&titleFlag, "title", "", "Explicit title (single file only)")
	cmd.Flags().IntVar(&yearFlag, "year", 0, "Explicit release year")
	cmd.Flags().IntVarP(&parallelFlag, "parallel", "p", 2, "Concurrent ingestions")
	return cmd
}
