package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"inkcast/internal/catalog"
)

func newEpisodesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "episodes",
		Short: "List published episodes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			episodes, err := catalog.NewStore(cfg.Paths.EpisodesFile).Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(episodes) == 0 {
				fmt.Fprintln(out, "No episodes published yet")
				return nil
			}

			rows := make([]table.Row, 0, len(episodes))
			for _, ep := range catalog.Sorted(episodes) {
				rows = append(rows, table.Row{
					ep.PubDate.Local().Format("2006-01-02"),
					ep.Title,
					ep.Author,
					humanSize(ep.FileSize),
					ep.Key,
				})
			}
			fmt.Fprintln(out, renderTable(table.Row{"Published", "Title", "Author", "Size", "Key"}, rows))
			return nil
		},
	}
}

func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
