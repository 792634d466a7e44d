package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"inkcast/internal/runstate"
)

func newPruneCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Drop processed-article records older than the retention window",
		Long: `Drop processed-article records older than the retention window.

The retention window must stay comfortably longer than any watermark override
you might use: a pruned article that the source still reports as updated would
be processed again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if days == 0 {
				days = cfg.Pipeline.RetentionDays
			}
			if days <= 0 {
				return fmt.Errorf("retention days must be positive, got %d", days)
			}

			store := runstate.NewStore(cfg.Paths.StateFile)
			state, err := store.Load()
			if err != nil {
				return err
			}

			cutoff := time.Now().AddDate(0, 0, -days)
			removed := state.PurgeProcessed(cutoff)
			if removed > 0 {
				if err := store.Save(state); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d processed records older than %d days (%d remain)\n",
				removed, days, len(state.Processed))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Retention window in days (defaults to pipeline.retention_days)")
	return cmd
}
