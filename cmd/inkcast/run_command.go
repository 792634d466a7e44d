package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"inkcast/internal/catalog"
	"inkcast/internal/config"
	"inkcast/internal/deps"
	"inkcast/internal/logging"
	"inkcast/internal/notifications"
	"inkcast/internal/pipeline"
	"inkcast/internal/runstate"
	"inkcast/internal/services/notebooklm"
	"inkcast/internal/services/readwise"
	"inkcast/internal/storage"
	"inkcast/internal/transcode"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var recent int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one pipeline pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, ctx, recent)
		},
	}

	cmd.Flags().IntVar(&recent, "recent", 0, "Process the N most recently updated articles regardless of the watermark")
	return cmd
}

func runPipeline(cmd *cobra.Command, cctx *commandContext, recent int) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := cctx.ensureConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateCredentials(); err != nil {
		return err
	}
	if missing := deps.MissingRequired(deps.CheckBinaries(deps.Required())); len(missing) > 0 {
		return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("inkcast-%s.log", runID))
	logger, err := logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	p, err := buildPipeline(signalCtx, cfg, logger)
	if err != nil {
		return err
	}

	report, err := p.Run(signalCtx, pipeline.Options{Recent: recent})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case report.Seeded:
		fmt.Fprintln(out, "First run: watermark seeded, no articles processed")
	default:
		fmt.Fprintf(out, "Run complete: %d published, %d abandoned, %d skipped, %d still pending\n",
			report.Published, report.Abandoned, report.Skipped, report.PendingRemaining)
		if report.EarlyExit {
			fmt.Fprintln(out, "Run stopped early; remaining work deferred to the next invocation")
		}
	}
	return nil
}

func buildPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, error) {
	source, err := readwise.New(cfg.Readwise.Token, cfg.Readwise.BaseURL,
		readwise.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Readwise.RequestTimeout) * time.Second}))
	if err != nil {
		return nil, fmt.Errorf("readwise client: %w", err)
	}

	generator, err := notebooklm.New(cfg.NotebookLM.BaseURL, cfg.NotebookLM.AuthToken,
		notebooklm.WithTimeout(time.Duration(cfg.NotebookLM.RequestTimeout)*time.Second))
	if err != nil {
		return nil, fmt.Errorf("notebooklm client: %w", err)
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}

	return pipeline.New(cfg, pipeline.Deps{
		Source:     source,
		Generator:  generator,
		Transcoder: transcode.NewCLI(),
		Store:      store,
		Notifier:   notifications.NewService(cfg.Notifications),
		States:     runstate.NewStore(cfg.Paths.StateFile),
		Episodes:   catalog.NewStore(cfg.Paths.EpisodesFile),
		Logger:     logger,
	})
}
