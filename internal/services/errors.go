package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAuthExpired marks failures caused by an expired or revoked session
	// on an external service. The run aborts remaining new work but keeps
	// all progress made so far.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrQuotaExceeded marks generation quota or rate exhaustion on the
	// audio service. Treated the same way as ErrAuthExpired by the run loop.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrRateLimited marks a retryable rate limit carrying a retry delay.
	ErrRateLimited = errors.New("rate limited")

	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// SessionFatal reports whether the error should end the current run's new
// work while preserving progress. Auth expiry and quota exhaustion qualify;
// everything else is handled per job.
func SessionFatal(err error) bool {
	return errors.Is(err, ErrAuthExpired) || errors.Is(err, ErrQuotaExceeded)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
