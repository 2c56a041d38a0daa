package transcript

import "context"

// Result is a fetched transcript plus the duration estimated from caption
// timing when the provider exposes it. DurationSeconds of zero means unknown.
type Result struct {
	Text            string
	DurationSeconds int64
}

// Provider fetches a transcript from one source. Implementations return
// errors wrapping the package refusal sentinels for permanent failures and
// services.ErrTransient (or plain errors) for retryable ones.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, videoID string) (Result, error)
}
