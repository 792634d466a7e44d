package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"inkcast/internal/catalog"
	"inkcast/internal/feed"
	"inkcast/internal/logging"
	"inkcast/internal/runstate"
	"inkcast/internal/services"
	"inkcast/internal/services/notebooklm"
)

// errUndersized marks artifacts below the minimum size threshold. A
// near-zero result means generation failed even though the service reported
// success.
var errUndersized = errors.New("audio artifact below minimum size")

// resolveReady downloads, transcodes, validates, and uploads the artifact
// of a ready job, then commits the episode and ledger updates in order:
// catalog first, pending removal and state save after. On success the
// external notebook is deleted; on error the caller abandons the job, which
// performs the same cleanup. Temporary files are swept on every exit path.
func (r *run) resolveReady(ctx context.Context, job runstate.PendingJob, status notebooklm.AudioStatus) error {
	p := r.p

	rawPath := filepath.Join(r.workDir, job.ArticleID+".audio")
	mp3Path := filepath.Join(r.workDir, job.ArticleID+".mp3")
	defer os.Remove(rawPath)
	defer os.Remove(mp3Path)

	if err := p.generator.DownloadAudio(ctx, status.DownloadURL, rawPath); err != nil {
		return fmt.Errorf("download audio: %w", err)
	}
	if err := p.transcoder.ToMP3(ctx, rawPath, mp3Path); err != nil {
		return services.Wrap(services.ErrExternalTool, "pipeline", "transcode", "", err)
	}

	info, err := os.Stat(mp3Path)
	if err != nil {
		return fmt.Errorf("stat transcoded audio: %w", err)
	}
	if info.Size() < p.cfg.Pipeline.MinAudioBytes {
		return fmt.Errorf("%w: %d bytes", errUndersized, info.Size())
	}

	key := path.Join(p.cfg.Feed.EpisodePrefix, job.ArticleID+".mp3")
	if err := p.store.PutFile(ctx, key, mp3Path, "audio/mpeg"); err != nil {
		return fmt.Errorf("upload episode: %w", err)
	}

	now := p.now().UTC()
	episode := catalog.Episode{
		ArticleID:   job.ArticleID,
		Title:       job.Title,
		Author:      job.Author,
		Key:         key,
		Description: job.Summary,
		SourceURL:   job.SourceURL,
		PubDate:     now,
		FileSize:    info.Size(),
	}
	r.episodes = append(r.episodes, episode)
	if err := p.episodes.Save(r.episodes); err != nil {
		return err
	}
	r.catalogChanged = true

	r.state.MarkProcessed(job.ArticleID, now)
	r.state.RemovePending(job.NotebookID)
	if err := p.states.Save(r.state); err != nil {
		return err
	}

	r.deleteNotebook(ctx, job.NotebookID)
	r.report.Published++

	p.logger.Info("episode published",
		logging.String(logging.FieldArticleID, job.ArticleID),
		logging.String("key", key),
		logging.Int64("bytes", info.Size()))
	if err := p.notifier.NotifyEpisodePublished(ctx, job.Title, job.Author); err != nil {
		p.logger.Warn("episode notification failed", logging.Error(err))
	}
	return nil
}

// publish re-renders and uploads the feed document when the catalog changed
// this run. Runs that published nothing leave the feed untouched.
func (r *run) publish(ctx context.Context) error {
	if !r.catalogChanged {
		return nil
	}
	p := r.p

	withArtwork := false
	if p.cfg.Feed.ArtworkKey != "" {
		exists, err := p.store.Exists(ctx, p.cfg.Feed.ArtworkKey)
		if err != nil {
			p.logger.Warn("artwork lookup failed", logging.Error(err))
		} else {
			withArtwork = exists
		}
	}

	builder := feed.NewBuilder(p.cfg.Feed, p.store.PublicURL)
	data, err := builder.Render(catalog.Sorted(r.episodes), p.now().UTC(), withArtwork)
	if err != nil {
		return fmt.Errorf("render feed: %w", err)
	}
	if err := p.store.Put(ctx, p.cfg.Feed.FeedKey, bytes.NewReader(data), "application/rss+xml"); err != nil {
		return fmt.Errorf("upload feed: %w", err)
	}

	r.report.FeedPublished = true
	p.logger.Info("feed published", logging.Int("episodes", len(r.episodes)))
	return nil
}
