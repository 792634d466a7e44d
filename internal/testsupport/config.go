// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"inkcast/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateFile = filepath.Join(base, "state.json")
	cfgVal.Paths.EpisodesFile = filepath.Join(base, "episodes.json")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Readwise.Token = "test-token"
	cfgVal.NotebookLM.AuthToken = "test-token"
	cfgVal.NotebookLM.BaseURL = "http://127.0.0.1:0"
	cfgVal.Storage.AccountID = "testaccount"
	cfgVal.Storage.AccessKeyID = "testkey"
	cfgVal.Storage.SecretAccessKey = "testsecret"
	cfgVal.Storage.Bucket = "test-bucket"
	cfgVal.Storage.PublicURL = "https://cdn.test"
	cfgVal.Storage.Endpoint = "https://testaccount.r2.cloudflarestorage.com"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithoutInlineWaits zeroes the generation wait knobs so runs poll once and
// move on.
func WithoutInlineWaits() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.NotebookLM.InitialWait = 0
		b.cfg.NotebookLM.PollInterval = 0
		b.cfg.NotebookLM.PollWindow = 0
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}
