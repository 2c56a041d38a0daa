package transcript

import (
	"context"
	"fmt"
	"log/slog"

	"tubedigest/internal/logging"
	"tubedigest/internal/queue"
	"tubedigest/internal/services"
)

// Cache memoizes permanent transcript refusals between cycles.
type Cache interface {
	GetCacheEntry(ctx context.Context, videoID string) (*queue.CacheEntry, error)
	SetCacheEntry(ctx context.Context, videoID string, status queue.CacheStatus, reason string) error
	ClearCacheEntry(ctx context.Context, videoID string) error
}

// Service runs the provider cascade with per-provider retries and the
// refusal cache in front.
type Service struct {
	providers []Provider
	cache     Cache
	policy    services.RetryPolicy
	logger    *slog.Logger
}

// NewService wires the cascade. Providers are tried in slice order.
func NewService(providers []Provider, cache Cache, policy services.RetryPolicy, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{providers: providers, cache: cache, policy: policy, logger: logger}
}

// Fetch returns the first transcript any provider produces.
//
// A memoized refusal short-circuits without touching the network. When every
// provider refuses permanently in the same pass, the worst refusal is written
// to the cache; a transient failure anywhere leaves the cache alone so the
// result stays retryable.
func (s *Service) Fetch(ctx context.Context, videoID string) (Result, error) {
	logger := s.logger.With(logging.String(logging.FieldVideoID, videoID))

	if s.cache != nil {
		entry, err := s.cache.GetCacheEntry(ctx, videoID)
		if err != nil {
			logger.Warn("transcript cache read failed", logging.Error(err))
		} else if entry != nil {
			logger.Info("skipping transcript fetch, refusal memoized",
				logging.String("cache_status", string(entry.Status)))
			return Result{}, fmt.Errorf("%s (%s): %w", entry.Status, entry.Reason, ErrCached)
		}
	}

	allTerminal := true
	var refusals []error
	var lastErr error
	for _, provider := range s.providers {
		providerLogger := logger.With(logging.String(logging.FieldProvider, provider.Name()))

		var result Result
		err := services.Retry(ctx, s.policy, func(ctx context.Context) error {
			fetched, err := provider.Fetch(ctx, videoID)
			if err != nil {
				return err
			}
			result = fetched
			return nil
		})
		if err == nil {
			if s.cache != nil {
				if clearErr := s.cache.ClearCacheEntry(ctx, videoID); clearErr != nil {
					providerLogger.Warn("transcript cache clear failed", logging.Error(clearErr))
				}
			}
			providerLogger.Info("transcript acquired", logging.Int("chars", len(result.Text)))
			return result, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return Result{}, err
		}
		if services.IsTerminal(err) {
			refusals = append(refusals, err)
			providerLogger.Info("provider refused permanently", logging.Error(err))
			continue
		}
		allTerminal = false
		providerLogger.Warn("provider exhausted retries", logging.Error(err))
	}

	if allTerminal && len(refusals) == len(s.providers) && len(refusals) > 0 {
		status := cacheStatusFor(refusals)
		if s.cache != nil {
			if err := s.cache.SetCacheEntry(ctx, videoID, status, lastErr.Error()); err != nil {
				logger.Warn("transcript cache write failed", logging.Error(err))
			}
		}
		logger.Info("all providers refused, refusal memoized", logging.String("cache_status", string(status)))
	}
	if lastErr == nil {
		lastErr = ErrNotFound
	}
	return Result{}, lastErr
}
