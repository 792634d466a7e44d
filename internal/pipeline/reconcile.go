package pipeline

import (
	"context"

	"inkcast/internal/logging"
	"inkcast/internal/runstate"
	"inkcast/internal/services"
	"inkcast/internal/services/notebooklm"
)

// reconcile resolves every generation job left over from previous runs
// before any new work starts. Jobs are handled one at a time and the ledger
// is saved after each resolution, so a crash mid-pass leaves earlier jobs
// fully resolved and later ones untouched.
func (r *run) reconcile(ctx context.Context) error {
	if len(r.state.Pending) == 0 {
		return nil
	}

	p := r.p
	maxAge := p.cfg.MaxJobAge()
	p.logger.Info("reconciling pending jobs", logging.Int("count", len(r.state.Pending)))

	pending := append([]runstate.PendingJob(nil), r.state.Pending...)
	for _, job := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.earlyExit {
			break
		}

		jobLogger := p.logger.With(
			logging.String(logging.FieldArticleID, job.ArticleID),
			logging.String(logging.FieldNotebook, job.NotebookID))

		if age := job.Age(p.now()); age > maxAge {
			jobLogger.Warn("abandoning stale job", logging.Duration("age", age))
			if err := r.abandon(ctx, job); err != nil {
				return err
			}
			continue
		}

		status, err := p.generator.PollAudio(ctx, job.NotebookID, job.TaskID)
		if err != nil {
			if services.SessionFatal(err) {
				jobLogger.Error("generation service unavailable, stopping run", logging.Error(err))
				r.earlyExit = true
				r.sessionErr = err
				break
			}
			// An undeterminable job is not retried indefinitely.
			jobLogger.Warn("status poll failed, abandoning job", logging.Error(err))
			if err := r.abandon(ctx, job); err != nil {
				return err
			}
			continue
		}

		switch status.State {
		case notebooklm.StateReady:
			if err := r.finishReady(ctx, job, status); err != nil {
				return err
			}
		case notebooklm.StateFailed:
			jobLogger.Warn("generation failed, abandoning job", logging.String("reason", status.Reason))
			if err := r.abandon(ctx, job); err != nil {
				return err
			}
		default:
			jobLogger.Info("job still generating, keeping pending")
		}
	}

	return nil
}

// abandon drops a pending job without creating an episode: the external
// resource is deleted best-effort and the removal is committed durably.
func (r *run) abandon(ctx context.Context, job runstate.PendingJob) error {
	r.deleteNotebook(ctx, job.NotebookID)
	r.state.RemovePending(job.NotebookID)
	if err := r.p.states.Save(r.state); err != nil {
		return err
	}
	r.report.Abandoned++
	return nil
}

// finishReady completes a ready job, abandoning it when completion fails.
// The article stays unprocessed in that case so a later save can retry it.
func (r *run) finishReady(ctx context.Context, job runstate.PendingJob, status notebooklm.AudioStatus) error {
	err := r.resolveReady(ctx, job, status)
	if err == nil {
		return nil
	}
	if abandonErr := r.abandon(ctx, job); abandonErr != nil {
		return abandonErr
	}
	if services.SessionFatal(err) {
		r.earlyExit = true
		r.sessionErr = err
	}
	r.p.logger.Warn("failed to complete ready job",
		logging.String(logging.FieldArticleID, job.ArticleID),
		logging.Error(err))
	return nil
}
