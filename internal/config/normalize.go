package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeReadwise()
	c.normalizeNotebookLM()
	c.normalizeStorage()
	c.normalizeFeed()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StateFile, err = expandPath(c.Paths.StateFile); err != nil {
		return fmt.Errorf("paths.state_file: %w", err)
	}
	if c.Paths.EpisodesFile, err = expandPath(c.Paths.EpisodesFile); err != nil {
		return fmt.Errorf("paths.episodes_file: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeReadwise() {
	c.Readwise.Token = strings.TrimSpace(c.Readwise.Token)
	if c.Readwise.Token == "" {
		if value, ok := os.LookupEnv("READWISE_TOKEN"); ok {
			c.Readwise.Token = strings.TrimSpace(value)
		}
	}
	c.Readwise.BaseURL = strings.TrimRight(strings.TrimSpace(c.Readwise.BaseURL), "/")
	if c.Readwise.BaseURL == "" {
		c.Readwise.BaseURL = defaultReadwiseBaseURL
	}
	if c.Readwise.RequestTimeout <= 0 {
		c.Readwise.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeNotebookLM() {
	c.NotebookLM.AuthToken = strings.TrimSpace(c.NotebookLM.AuthToken)
	if c.NotebookLM.AuthToken == "" {
		if value, ok := os.LookupEnv("NOTEBOOKLM_TOKEN"); ok {
			c.NotebookLM.AuthToken = strings.TrimSpace(value)
		}
	}
	c.NotebookLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.NotebookLM.BaseURL), "/")
	c.NotebookLM.Language = strings.TrimSpace(c.NotebookLM.Language)
	if c.NotebookLM.Language == "" {
		c.NotebookLM.Language = defaultAudioLanguage
	}
	if c.NotebookLM.InitialWait < 0 {
		c.NotebookLM.InitialWait = 0
	}
	if c.NotebookLM.PollInterval <= 0 {
		c.NotebookLM.PollInterval = defaultPollInterval
	}
	if c.NotebookLM.PollWindow <= 0 {
		c.NotebookLM.PollWindow = defaultPollWindow
	}
	if c.NotebookLM.MaxAge <= 0 {
		c.NotebookLM.MaxAge = defaultJobMaxAge
	}
	if c.NotebookLM.RequestTimeout <= 0 {
		c.NotebookLM.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeStorage() {
	fromEnv := func(current *string, key string) {
		*current = strings.TrimSpace(*current)
		if *current == "" {
			if value, ok := os.LookupEnv(key); ok {
				*current = strings.TrimSpace(value)
			}
		}
	}
	fromEnv(&c.Storage.AccountID, "R2_ACCOUNT_ID")
	fromEnv(&c.Storage.AccessKeyID, "R2_ACCESS_KEY_ID")
	fromEnv(&c.Storage.SecretAccessKey, "R2_SECRET_ACCESS_KEY")
	fromEnv(&c.Storage.Bucket, "R2_BUCKET_NAME")
	fromEnv(&c.Storage.PublicURL, "R2_PUBLIC_URL")
	c.Storage.PublicURL = strings.TrimRight(c.Storage.PublicURL, "/")
	c.Storage.Endpoint = strings.TrimRight(strings.TrimSpace(c.Storage.Endpoint), "/")
	if c.Storage.Endpoint == "" && c.Storage.AccountID != "" {
		c.Storage.Endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.Storage.AccountID)
	}
}

func (c *Config) normalizeFeed() {
	if strings.TrimSpace(c.Feed.FeedKey) == "" {
		c.Feed.FeedKey = defaultFeedKey
	}
	if strings.TrimSpace(c.Feed.ArtworkKey) == "" {
		c.Feed.ArtworkKey = defaultArtworkKey
	}
	c.Feed.EpisodePrefix = strings.Trim(strings.TrimSpace(c.Feed.EpisodePrefix), "/")
	if c.Feed.EpisodePrefix == "" {
		c.Feed.EpisodePrefix = defaultEpisodePrefix
	}
	if strings.TrimSpace(c.Feed.Language) == "" {
		c.Feed.Language = defaultFeedLanguage
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
