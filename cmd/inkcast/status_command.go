package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"inkcast/internal/catalog"
	"inkcast/internal/deps"
	"inkcast/internal/runstate"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show run state, pending jobs, and tool availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			state, err := runstate.NewStore(cfg.Paths.StateFile).Load()
			if err != nil {
				return err
			}
			episodes, err := catalog.NewStore(cfg.Paths.EpisodesFile).Load()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if state.LastRun == nil {
				fmt.Fprintln(out, "Watermark: never run")
			} else {
				fmt.Fprintf(out, "Watermark: %s\n", state.LastRun.Local().Format(time.RFC1123))
			}
			fmt.Fprintf(out, "Processed articles: %d\n", len(state.Processed))
			fmt.Fprintf(out, "Published episodes: %d\n", len(episodes))

			if len(state.Pending) == 0 {
				fmt.Fprintln(out, "Pending jobs: none")
			} else {
				now := time.Now()
				rows := make([]table.Row, 0, len(state.Pending))
				for _, job := range state.Pending {
					rows = append(rows, table.Row{
						job.ArticleID,
						job.Title,
						job.NotebookID,
						job.Age(now).Round(time.Minute).String(),
					})
				}
				fmt.Fprintln(out, renderTable(table.Row{"Article", "Title", "Notebook", "Age"}, rows))
			}

			for _, status := range deps.CheckBinaries(deps.Required()) {
				if status.Available {
					fmt.Fprintf(out, "%s: available (%s)\n", status.Name, status.Command)
				} else {
					fmt.Fprintf(out, "%s: MISSING (%s)\n", status.Name, status.Detail)
				}
			}
			return nil
		},
	}
}
