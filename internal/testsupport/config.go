// Package testsupport provides shared helpers for package tests: seeded
// configs backed by per-test temp directories and store constructors that
// register cleanup.
package testsupport

import (
	"path/filepath"
	"testing"

	"tubedigest/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Summarizer.APIKey = "test"
	cfg.Email.Enabled = false

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithFeeds sets the monitored feeds on the test config.
func WithFeeds(feeds ...config.Feed) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Feeds = feeds
	}
}

// WithEmail enables delivery with the given recipient and a local SMTP target.
func WithEmail(recipient string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Email.Enabled = true
		cfg.Email.SMTPHost = "127.0.0.1"
		cfg.Email.SMTPPort = 2525
		cfg.Email.Username = "tester@example.com"
		cfg.Email.Password = "secret"
		cfg.Email.Recipient = recipient
	}
}
