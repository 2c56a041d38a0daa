package transcript

import (
	"errors"
	"fmt"

	"tubedigest/internal/queue"
	"tubedigest/internal/services"
)

// Permanent refusal sentinels. Each wraps services.ErrUnavailable so the
// shared terminal/transient classification sees them as terminal.
var (
	ErrDisabled    = fmt.Errorf("captions disabled by uploader: %w", services.ErrUnavailable)
	ErrNotFound    = fmt.Errorf("no transcript in wanted languages: %w", services.ErrUnavailable)
	ErrUnavailable = fmt.Errorf("video unavailable: %w", services.ErrUnavailable)
)

// ErrCached reports a fetch short-circuited by a memoized permanent refusal.
var ErrCached = fmt.Errorf("transcript refusal memoized: %w", services.ErrUnavailable)

// cacheStatusFor maps a permanent refusal to its memo status. Unavailability
// dominates, then disabled captions, then plain absence.
func cacheStatusFor(errs []error) queue.CacheStatus {
	status := queue.CacheNotFound
	for _, err := range errs {
		if errors.Is(err, ErrUnavailable) {
			return queue.CacheVideoUnavailable
		}
		if errors.Is(err, ErrDisabled) {
			status = queue.CacheTranscriptsDisabled
		}
	}
	return status
}
