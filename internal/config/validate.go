package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is structurally usable. Credential
// presence is checked separately by ValidateCredentials so read-only
// commands work without secrets.
func (c *Config) Validate() error {
	if c.Paths.StateFile == "" {
		return errors.New("paths.state_file must be set")
	}
	if c.Paths.EpisodesFile == "" {
		return errors.New("paths.episodes_file must be set")
	}
	if c.Paths.StateFile == c.Paths.EpisodesFile {
		return errors.New("paths.state_file and paths.episodes_file must differ")
	}
	if c.Pipeline.MaxPerRun <= 0 {
		return errors.New("pipeline.max_per_run must be positive")
	}
	if c.Pipeline.MinAudioBytes < 0 {
		return errors.New("pipeline.min_audio_bytes must not be negative")
	}
	if c.Pipeline.RetentionDays < 0 {
		return errors.New("pipeline.retention_days must not be negative")
	}
	if c.NotebookLM.MaxAge < c.NotebookLM.PollWindow {
		return errors.New("notebooklm.max_age must not be shorter than notebooklm.poll_window")
	}
	return nil
}

// ValidateCredentials checks the secrets and endpoints a processing run
// needs. Called by commands that talk to external services.
func (c *Config) ValidateCredentials() error {
	var missing []string
	if c.Readwise.Token == "" {
		missing = append(missing, "readwise.token (READWISE_TOKEN)")
	}
	if c.NotebookLM.BaseURL == "" {
		missing = append(missing, "notebooklm.base_url")
	}
	if c.NotebookLM.AuthToken == "" {
		missing = append(missing, "notebooklm.auth_token (NOTEBOOKLM_TOKEN)")
	}
	if c.Storage.AccessKeyID == "" {
		missing = append(missing, "storage.access_key_id (R2_ACCESS_KEY_ID)")
	}
	if c.Storage.SecretAccessKey == "" {
		missing = append(missing, "storage.secret_access_key (R2_SECRET_ACCESS_KEY)")
	}
	if c.Storage.Bucket == "" {
		missing = append(missing, "storage.bucket (R2_BUCKET_NAME)")
	}
	if c.Storage.Endpoint == "" {
		missing = append(missing, "storage.endpoint or storage.account_id (R2_ACCOUNT_ID)")
	}
	if c.Storage.PublicURL == "" {
		missing = append(missing, "storage.public_url (R2_PUBLIC_URL)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
