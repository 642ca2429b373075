package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show library and index counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := ctx.openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			files, err := env.store.CountFileRecords(cmd.Context())
			if err != nil {
				return err
			}
			vectors, err := env.store.CountVectorRecords(cmd.Context())
			if err != nil {
				return err
			}
			tombstones, err := env.store.ListTombstones(cmd.Context())
			if err != nil {
				return err
			}
			intents, err := env.store.ListIntents(cmd.Context())
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Pooled files", strconv.FormatInt(files, 10)},
				{"Mapped vectors", strconv.FormatInt(vectors, 10)},
				{"Indexed rows", strconv.FormatInt(env.index.Count(), 10)},
				{"Tombstoned rows", strconv.Itoa(len(tombstones))},
				{"Pending intents", strconv.Itoa(len(intents))},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Counter", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}
