package main

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"inkcast/internal/catalog"
	"inkcast/internal/feed"
	"inkcast/internal/storage"
)

func newFeedCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Re-render the podcast feed and upload it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			episodes, err := catalog.NewStore(cfg.Paths.EpisodesFile).Load()
			if err != nil {
				return err
			}
			sorted := catalog.Sorted(episodes)
			now := time.Now().UTC()

			if dryRun {
				urlFor := func(key string) string {
					return strings.TrimRight(cfg.Storage.PublicURL, "/") + "/" + key
				}
				builder := feed.NewBuilder(cfg.Feed, urlFor)
				data, err := builder.Render(sorted, now, cfg.Feed.ArtworkKey != "")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			if err := cfg.ValidateCredentials(); err != nil {
				return err
			}
			store, err := storage.New(cmd.Context(), cfg.Storage)
			if err != nil {
				return err
			}

			withArtwork := false
			if cfg.Feed.ArtworkKey != "" {
				if exists, err := store.Exists(cmd.Context(), cfg.Feed.ArtworkKey); err == nil {
					withArtwork = exists
				}
			}

			builder := feed.NewBuilder(cfg.Feed, store.PublicURL)
			data, err := builder.Render(sorted, now, withArtwork)
			if err != nil {
				return err
			}
			if err := store.Put(cmd.Context(), cfg.Feed.FeedKey, bytes.NewReader(data), "application/rss+xml"); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Feed published: %s (%d episodes)\n", store.PublicURL(cfg.Feed.FeedKey), len(sorted))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the rendered feed instead of uploading it")
	return cmd
}
