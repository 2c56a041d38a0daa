package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for failure classification. Stages wrap external errors
// with one of these so callers can decide between fail-fast and retry via
// errors.Is without inspecting provider-specific types.
var (
	// ErrAuth marks authentication or authorization failures. Never retried.
	ErrAuth = errors.New("authentication error")
	// ErrUnavailable marks content that is permanently gone: captions
	// disabled by the uploader, video withdrawn, no usable track. Never
	// retried, eligible for negative-result caching.
	ErrUnavailable = errors.New("permanently unavailable")
	// ErrRateLimited marks upstream throttling. Retried with backoff.
	ErrRateLimited = errors.New("rate limited")
	// ErrTimeout marks external call deadlines. Retried with backoff.
	ErrTimeout = errors.New("timeout")
	// ErrTransient marks any other failure expected to resolve on its own.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTerminal reports whether an error will not succeed on retry.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrAuth) || errors.Is(err, ErrUnavailable)
}

// IsTransient reports whether an error is worth retrying with backoff.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return !IsTerminal(err)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
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
