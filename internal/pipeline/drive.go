package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"inkcast/internal/logging"
	"inkcast/internal/runstate"
	"inkcast/internal/services"
	"inkcast/internal/services/notebooklm"
	"inkcast/internal/services/readwise"
)

// drive fetches newly eligible articles and starts a generation job for
// each, bounded by the per-run limit. Jobs are persisted as pending before
// their generation wait begins.
func (r *run) drive(ctx context.Context) error {
	if r.earlyExit {
		return nil
	}
	p := r.p

	var updatedAfter *time.Time
	if r.opts.Recent == 0 {
		updatedAfter = r.state.LastRun
	}

	fetchStart := p.now().UTC()
	articles, err := p.source.FetchNew(ctx, updatedAfter)
	if err != nil {
		// Rate limits and fetch failures hold the watermark; nothing new was
		// considered this run.
		p.logger.Error("article fetch failed", logging.Error(err))
		r.earlyExit = true
		r.sessionErr = err
		return nil
	}
	r.fetchStart = &fetchStart

	if r.opts.Recent > 0 {
		articles = mostRecent(articles, r.opts.Recent)
	}
	p.logger.Info("fetched articles", logging.Int("count", len(articles)))

	started := 0
	for _, article := range articles {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.earlyExit {
			break
		}
		if r.state.IsProcessed(article.ID) {
			r.report.Skipped++
			continue
		}
		if article.Content == "" && article.SourceURL == "" {
			p.logger.Warn("article has no content or source url, skipping",
				logging.String(logging.FieldArticleID, article.ID))
			r.report.Skipped++
			continue
		}
		if started >= p.cfg.Pipeline.MaxPerRun {
			// An eligible article remains, so the watermark must not move
			// past it.
			r.deferred = true
			p.logger.Info("per-run limit reached, deferring remaining articles",
				logging.Int("limit", p.cfg.Pipeline.MaxPerRun))
			break
		}
		started++

		if err := r.processArticle(ctx, article); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if services.SessionFatal(err) {
				p.logger.Error("generation service unavailable, stopping run",
					logging.String(logging.FieldArticleID, article.ID),
					logging.Error(err))
				r.earlyExit = true
				r.sessionErr = err
				break
			}
			// A single failed submission does not stop the rest of the run.
			p.logger.Warn("article skipped",
				logging.String(logging.FieldArticleID, article.ID),
				logging.Error(err))
		}
	}

	return nil
}

// processArticle submits one generation job and waits briefly for an inline
// completion. Jobs that outlast the poll window stay pending for the next
// run's reconciliation.
func (r *run) processArticle(ctx context.Context, article readwise.Article) error {
	p := r.p
	logger := p.logger.With(logging.String(logging.FieldArticleID, article.ID))

	notebookID, err := p.generator.CreateNotebook(ctx, article.Title)
	if err != nil {
		return err
	}
	if article.Content != "" {
		err = p.generator.AddTextSource(ctx, notebookID, article.Title, article.Content)
	} else {
		err = p.generator.AddURLSource(ctx, notebookID, article.SourceURL)
	}
	if err != nil {
		r.deleteNotebook(ctx, notebookID)
		return err
	}

	taskID, err := p.generator.GenerateAudio(ctx, notebookID, p.cfg.NotebookLM.Language)
	if err != nil {
		r.deleteNotebook(ctx, notebookID)
		return err
	}

	job := runstate.PendingJob{
		ArticleID:  article.ID,
		NotebookID: notebookID,
		TaskID:     taskID,
		Title:      article.Title,
		Author:     article.Author,
		Summary:    article.Summary,
		SourceURL:  article.SourceURL,
		StartedAt:  p.now().UTC(),
	}
	r.state.AddPending(job)
	// The job must be on disk before the generation wait: if the process
	// dies here, the next run finds and resumes it.
	if err := p.states.Save(r.state); err != nil {
		return err
	}
	logger.Info("generation started",
		logging.String(logging.FieldNotebook, notebookID),
		logging.String(logging.FieldTask, taskID))

	return r.awaitInline(ctx, job, logger)
}

// awaitInline polls a freshly started job for up to the configured window.
// Transient poll errors leave the job pending rather than abandoning work
// that may still complete.
func (r *run) awaitInline(ctx context.Context, job runstate.PendingJob, logger *slog.Logger) error {
	p := r.p

	if err := p.sleep(ctx, p.cfg.InitialWaitDuration()); err != nil {
		return err
	}
	deadline := p.now().Add(p.cfg.PollWindowDuration())

	for {
		status, err := p.generator.PollAudio(ctx, job.NotebookID, job.TaskID)
		if err != nil {
			if services.SessionFatal(err) {
				return err
			}
			logger.Warn("status poll failed, leaving job pending", logging.Error(err))
			return nil
		}

		switch status.State {
		case notebooklm.StateReady:
			return r.completeInline(ctx, job, status, logger)
		case notebooklm.StateFailed:
			logger.Warn("generation failed", logging.String("reason", status.Reason))
			return r.abandon(ctx, job)
		}

		if !p.now().Before(deadline) {
			logger.Info("still generating after poll window, leaving job pending")
			return nil
		}
		if err := p.sleep(ctx, p.cfg.PollIntervalDuration()); err != nil {
			return err
		}
	}
}

// completeInline finishes a job that turned ready during the inline wait.
// Undersized output abandons the job; any other completion failure leaves it
// pending so the next run's reconciler retries the finished audio.
func (r *run) completeInline(ctx context.Context, job runstate.PendingJob, status notebooklm.AudioStatus, logger *slog.Logger) error {
	err := r.resolveReady(ctx, job, status)
	if err == nil {
		return nil
	}
	if errors.Is(err, errUndersized) {
		logger.Warn("generated audio too small, abandoning job")
		return r.abandon(ctx, job)
	}
	if services.SessionFatal(err) {
		return err
	}
	logger.Warn("failed to complete ready job, leaving it pending", logging.Error(err))
	return nil
}

// mostRecent returns the n most recently updated articles, newest first.
func mostRecent(articles []readwise.Article, n int) []readwise.Article {
	out := make([]readwise.Article, len(articles))
	copy(out, articles)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
