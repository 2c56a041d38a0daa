package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tubedigest/internal/config"
	"tubedigest/internal/feeds"
	"tubedigest/internal/heartbeat"
	"tubedigest/internal/logging"
	"tubedigest/internal/mail"
	"tubedigest/internal/metadata"
	"tubedigest/internal/pipeline"
	"tubedigest/internal/queue"
	"tubedigest/internal/services"
	"tubedigest/internal/summarize"
	"tubedigest/internal/transcript"
)

// buildPipeline assembles the worker from configuration. The beacon is
// threaded through every retry policy so external call attempts refresh the
// liveness record.
func buildPipeline(ctx context.Context, cfg *config.Config, store *queue.Store, logger *slog.Logger) (*pipeline.Pipeline, *heartbeat.Beacon, error) {
	beacon := heartbeat.New(cfg.HeartbeatPath())
	beat := func(int) { _ = beacon.Beat() }

	discoveryTimeout := time.Duration(cfg.Discovery.TimeoutSeconds) * time.Second
	feedClient := feeds.NewClient(discoveryTimeout)
	metaClient := metadata.NewClient(discoveryTimeout)

	transcriptTimeout := time.Duration(cfg.Transcripts.TimeoutSeconds) * time.Second
	providers := []transcript.Provider{
		transcript.NewCaptionsProvider(transcriptTimeout, cfg.Transcripts.Languages, cfg.Transcripts.AllowAutoGenerated),
		transcript.NewTimedtextProvider(transcriptTimeout, cfg.Transcripts.Languages),
	}
	if cfg.Transcripts.HostedAPIKey != "" {
		providers = append(providers, transcript.NewHostedProvider(
			transcriptTimeout, cfg.Transcripts.HostedAPIKey, cfg.Transcripts.HostedBaseURL, cfg.Transcripts.Languages))
	}
	transcriptService := transcript.NewService(providers, store, services.RetryPolicy{
		MaxAttempts: cfg.Transcripts.MaxAttempts,
		BaseDelay:   time.Duration(cfg.Transcripts.BackoffBaseSeconds) * time.Second,
		MaxDelay:    time.Duration(cfg.Transcripts.BackoffCapSeconds) * time.Second,
		OnAttempt:   beat,
	}, logger)

	generator, err := summarize.NewGeminiGenerator(ctx, cfg.Summarizer.APIKey, cfg.Summarizer.Model, cfg.Summarizer.MaxOutputTokens)
	if err != nil {
		return nil, nil, fmt.Errorf("init generator: %w", err)
	}
	summarizer, err := summarize.New(generator, cfg.Summarizer.PromptTemplate, cfg.Summarizer.MaxTranscriptChars, services.RetryPolicy{
		MaxAttempts: cfg.Summarizer.MaxAttempts,
		BaseDelay:   time.Duration(cfg.Summarizer.BackoffBaseSeconds) * time.Second,
		OnAttempt:   beat,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init summarizer: %w", err)
	}

	var mailer pipeline.Deliverer
	if cfg.Email.Enabled {
		mailer = &retryingMailer{
			sender: mail.NewSender(cfg.Email, logger),
			policy: services.RetryPolicy{
				MaxAttempts: cfg.Email.MaxAttempts,
				BaseDelay:   time.Duration(cfg.Email.BackoffBaseSeconds) * time.Second,
				OnAttempt:   beat,
			},
			timeout: time.Duration(cfg.Email.TimeoutSeconds) * time.Second,
		}
	}

	return pipeline.New(pipeline.Options{
		Config:      cfg,
		Store:       store,
		Beacon:      beacon,
		Feeds:       feedClient,
		Meta:        metaClient,
		Transcripts: transcriptService,
		Summarizer:  summarizer,
		Mailer:      mailer,
		Logger:      logger,
	}), beacon, nil
}

// retryingMailer retries transient SMTP failures within one pipeline attempt
// and bounds each send with the configured timeout.
type retryingMailer struct {
	sender  *mail.Sender
	policy  services.RetryPolicy
	timeout time.Duration
}

func (m *retryingMailer) Send(ctx context.Context, item *queue.Item, summary string) error {
	return services.Retry(ctx, m.policy, func(ctx context.Context) error {
		if m.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, m.timeout)
			defer cancel()
		}
		return m.sender.Send(ctx, item, summary)
	})
}

func newLogger(cfg *config.Config, outputPaths []string) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputPaths,
	})
}
