package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file and directory locations.
type Paths struct {
	StateFile    string `toml:"state_file"`
	EpisodesFile string `toml:"episodes_file"`
	WorkDir      string `toml:"work_dir"`
	LogDir       string `toml:"log_dir"`
}

// Readwise contains configuration for the Readwise Reader API.
type Readwise struct {
	Token          string `toml:"token"`
	BaseURL        string `toml:"base_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// NotebookLM contains configuration for the audio generation service.
type NotebookLM struct {
	BaseURL        string `toml:"base_url"`
	AuthToken      string `toml:"auth_token"`
	Language       string `toml:"language"`
	InitialWait    int    `toml:"initial_wait"`
	PollInterval   int    `toml:"poll_interval"`
	PollWindow     int    `toml:"poll_window"`
	MaxAge         int    `toml:"max_age"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Storage contains configuration for the R2 bucket episodes and the feed are
// published to.
type Storage struct {
	AccountID       string `toml:"account_id"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	Bucket          string `toml:"bucket"`
	PublicURL       string `toml:"public_url"`
	Endpoint        string `toml:"endpoint"`
}

// Feed contains podcast feed metadata.
type Feed struct {
	Title         string `toml:"title"`
	Description   string `toml:"description"`
	Language      string `toml:"language"`
	Author        string `toml:"author"`
	Email         string `toml:"email"`
	Category      string `toml:"category"`
	Explicit      bool   `toml:"explicit"`
	FeedKey       string `toml:"feed_key"`
	ArtworkKey    string `toml:"artwork_key"`
	EpisodePrefix string `toml:"episode_prefix"`
}

// Pipeline contains per-run processing limits and thresholds.
type Pipeline struct {
	MaxPerRun     int   `toml:"max_per_run"`
	MinAudioBytes int64 `toml:"min_audio_bytes"`
	RetentionDays int   `toml:"retention_days"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for inkcast.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Readwise      Readwise      `toml:"readwise"`
	NotebookLM    NotebookLM    `toml:"notebooklm"`
	Storage       Storage       `toml:"storage"`
	Feed          Feed          `toml:"feed"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/inkcast/config.toml")
}

// SampleConfig returns the embedded sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

// ExpandPath resolves ~ and returns an absolute, cleaned path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

// CreateSample writes the embedded sample configuration to the target path.
func CreateSample(target string) error {
	if err := os.WriteFile(target, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and credential fields backfilled from
// the environment.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("inkcast.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the work and log directories if missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir, filepath.Dir(c.Paths.StateFile), filepath.Dir(c.Paths.EpisodesFile)} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// InitialWaitDuration returns the delay before the first status poll of a
// freshly started generation job.
func (c *Config) InitialWaitDuration() time.Duration {
	return time.Duration(c.NotebookLM.InitialWait) * time.Second
}

// PollIntervalDuration returns the spacing between generation status polls.
func (c *Config) PollIntervalDuration() time.Duration {
	return time.Duration(c.NotebookLM.PollInterval) * time.Second
}

// PollWindowDuration returns how long the driver keeps polling a job within
// the same run before leaving it pending.
func (c *Config) PollWindowDuration() time.Duration {
	return time.Duration(c.NotebookLM.PollWindow) * time.Second
}

// MaxJobAge returns the staleness threshold for pending generation jobs.
func (c *Config) MaxJobAge() time.Duration {
	return time.Duration(c.NotebookLM.MaxAge) * time.Second
}
