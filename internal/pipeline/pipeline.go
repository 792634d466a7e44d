package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"inkcast/internal/catalog"
	"inkcast/internal/config"
	"inkcast/internal/logging"
	"inkcast/internal/notifications"
	"inkcast/internal/runstate"
)

// ErrRunActive reports that another run holds the exclusive lock.
var ErrRunActive = errors.New("another run is already active")

// Deps bundles the collaborators a Pipeline needs.
type Deps struct {
	Source     ArticleSource
	Generator  Generator
	Transcoder Transcoder
	Store      BlobStore
	Notifier   notifications.Service
	States     *runstate.Store
	Episodes   *catalog.Store
	Logger     *slog.Logger
}

// Pipeline executes batch runs against the configured collaborators.
type Pipeline struct {
	cfg        *config.Config
	source     ArticleSource
	generator  Generator
	transcoder Transcoder
	store      BlobStore
	notifier   notifications.Service
	states     *runstate.Store
	episodes   *catalog.Store
	logger     *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New constructs a pipeline. All collaborators except Notifier and Logger
// are required.
func New(cfg *config.Config, deps Deps) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if deps.Source == nil {
		return nil, errors.New("article source required")
	}
	if deps.Generator == nil {
		return nil, errors.New("generator required")
	}
	if deps.Transcoder == nil {
		return nil, errors.New("transcoder required")
	}
	if deps.Store == nil {
		return nil, errors.New("blob store required")
	}
	if deps.States == nil {
		return nil, errors.New("state store required")
	}
	if deps.Episodes == nil {
		return nil, errors.New("episode store required")
	}

	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(config.Notifications{})
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Pipeline{
		cfg:        cfg,
		source:     deps.Source,
		generator:  deps.Generator,
		transcoder: deps.Transcoder,
		store:      deps.Store,
		notifier:   notifier,
		states:     deps.States,
		episodes:   deps.Episodes,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
		now:        time.Now,
		sleep:      sleepContext,
	}, nil
}

// Options tunes a single run.
type Options struct {
	// Recent, when positive, processes the N most recently updated articles
	// regardless of the watermark. Such a run never advances the watermark.
	Recent int
}

// Report summarizes what one run did.
type Report struct {
	Seeded            bool
	Published         int
	Abandoned         int
	Skipped           int
	PendingRemaining  int
	FeedPublished     bool
	WatermarkAdvanced bool
	EarlyExit         bool
}

// Run executes one full pass: reconcile, drive, publish, advance watermark.
// A second concurrent invocation fails fast with ErrRunActive.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Report, error) {
	if err := os.MkdirAll(p.cfg.Paths.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}

	lock := flock.New(filepath.Join(p.cfg.Paths.WorkDir, "inkcast.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, ErrRunActive
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			p.logger.Warn("failed to release run lock", logging.Error(unlockErr))
		}
	}()

	state, err := p.states.Load()
	if err != nil {
		return nil, err
	}
	episodes, err := p.episodes.Load()
	if err != nil {
		return nil, err
	}

	workDir := filepath.Join(p.cfg.Paths.WorkDir, "run-"+uuid.NewString())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	r := &run{
		p:        p,
		opts:     opts,
		state:    state,
		episodes: episodes,
		workDir:  workDir,
	}

	start := p.now()
	if err := r.execute(ctx); err != nil {
		return &r.report, err
	}

	r.report.PendingRemaining = len(state.Pending)
	if r.report.Published > 0 || r.report.Abandoned > 0 {
		if err := p.notifier.NotifyRunCompleted(ctx, r.report.Published, r.report.Abandoned, len(state.Pending), p.now().Sub(start)); err != nil {
			p.logger.Warn("run notification failed", logging.Error(err))
		}
	}
	return &r.report, nil
}

// run carries the mutable state of a single pass.
type run struct {
	p        *Pipeline
	opts     Options
	state    *runstate.State
	episodes []catalog.Episode
	workDir  string

	catalogChanged bool
	earlyExit      bool
	deferred       bool
	sessionErr     error
	fetchStart     *time.Time
	report         Report
}

func (r *run) execute(ctx context.Context) error {
	p := r.p

	if err := r.reconcile(ctx); err != nil {
		return err
	}

	// A nil watermark on a normal run seeds it without processing the
	// backlog: the first activation should not retroactively podcast the
	// user's entire reading history.
	if r.state.LastRun == nil && r.opts.Recent == 0 {
		if err := r.publish(ctx); err != nil {
			return err
		}
		if !r.earlyExit && len(r.state.Pending) == 0 {
			now := p.now().UTC()
			r.state.LastRun = &now
			r.report.Seeded = true
			r.report.WatermarkAdvanced = true
			p.logger.Info("first run, seeded watermark without processing backlog", logging.Time("watermark", now))
		}
		r.report.EarlyExit = r.earlyExit
		return p.states.Save(r.state)
	}

	if err := r.drive(ctx); err != nil {
		return err
	}
	if err := r.publish(ctx); err != nil {
		return err
	}

	if !r.earlyExit && !r.deferred && len(r.state.Pending) == 0 && r.opts.Recent == 0 && r.fetchStart != nil {
		if r.state.LastRun == nil || r.fetchStart.After(*r.state.LastRun) {
			r.state.LastRun = r.fetchStart
			r.report.WatermarkAdvanced = true
			p.logger.Info("watermark advanced", logging.Time("watermark", *r.fetchStart))
		}
	} else if r.earlyExit || r.deferred || len(r.state.Pending) > 0 {
		p.logger.Info("watermark held",
			logging.Bool("early_exit", r.earlyExit),
			logging.Bool("deferred", r.deferred),
			logging.Int("pending", len(r.state.Pending)))
	}
	r.report.EarlyExit = r.earlyExit

	if r.sessionErr != nil {
		if err := p.notifier.NotifyError(ctx, r.sessionErr, "pipeline run"); err != nil {
			p.logger.Warn("error notification failed", logging.Error(err))
		}
	}

	return p.states.Save(r.state)
}

// deleteNotebook removes the external job resource. Failures are logged and
// never escalated.
func (r *run) deleteNotebook(ctx context.Context, notebookID string) {
	if notebookID == "" {
		return
	}
	if err := r.p.generator.DeleteNotebook(ctx, notebookID); err != nil {
		r.p.logger.Warn("notebook cleanup failed",
			logging.String(logging.FieldNotebook, notebookID),
			logging.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
