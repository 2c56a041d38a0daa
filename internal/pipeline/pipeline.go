// Package pipeline drives videos from feed discovery through transcript
// acquisition, summary generation, and email delivery.
//
// A cycle is one full pass: recover stuck videos, discover new ones, then
// work the backlog oldest first. Every external call boundary refreshes the
// worker heartbeat so a crash between boundaries is detectable. Per-video
// failures annotate the video and never abort the cycle.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"tubedigest/internal/config"
	"tubedigest/internal/feeds"
	"tubedigest/internal/heartbeat"
	"tubedigest/internal/logging"
	"tubedigest/internal/metadata"
	"tubedigest/internal/queue"
	"tubedigest/internal/summarize"
	"tubedigest/internal/transcript"
)

// TranscriptFetcher acquires transcript text for a video.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID string) (transcript.Result, error)
}

// SummaryWriter turns a transcript into summary text.
type SummaryWriter interface {
	Summarize(ctx context.Context, input summarize.Input) (string, error)
}

// Deliverer sends a finished summary.
type Deliverer interface {
	Send(ctx context.Context, item *queue.Item, summary string) error
}

// FeedLister returns recent uploads for a channel.
type FeedLister interface {
	ListRecent(ctx context.Context, channelID string, max int, skipShorts bool) ([]feeds.Summary, error)
}

// MetadataFetcher scrapes watch-page metadata.
type MetadataFetcher interface {
	Fetch(ctx context.Context, videoID string) (metadata.Info, error)
}

// CycleStats summarizes one pipeline pass. Returned by value so callers
// aggregate however they like.
type CycleStats struct {
	Recovered  int
	Discovered int
	Processed  int
	Succeeded  int
	Failed     int
	Skipped    int
}

// Pipeline owns one worker's pass over the queue.
type Pipeline struct {
	cfg         *config.Config
	store       *queue.Store
	beacon      *heartbeat.Beacon
	feeds       FeedLister
	meta        MetadataFetcher
	transcripts TranscriptFetcher
	summarizer  SummaryWriter
	mailer      Deliverer
	logger      *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Options carries the pipeline collaborators. Mailer may be nil when email
// delivery is disabled; Meta may be nil to skip metadata enrichment.
type Options struct {
	Config      *config.Config
	Store       *queue.Store
	Beacon      *heartbeat.Beacon
	Feeds       FeedLister
	Meta        MetadataFetcher
	Transcripts TranscriptFetcher
	Summarizer  SummaryWriter
	Mailer      Deliverer
	Logger      *slog.Logger

	// Now and Sleep override the clock and pacing wait in tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// New assembles a pipeline from its collaborators.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		}
	}
	return &Pipeline{
		cfg:         opts.Config,
		store:       opts.Store,
		beacon:      opts.Beacon,
		feeds:       opts.Feeds,
		meta:        opts.Meta,
		transcripts: opts.Transcripts,
		summarizer:  opts.Summarizer,
		mailer:      opts.Mailer,
		logger:      logger.With(logging.String(logging.FieldComponent, "pipeline")),
		now:         now,
		sleep:       sleep,
	}
}

// Beat refreshes the worker liveness record. Failures are logged, never
// propagated; a missed beat only risks an early recovery reset.
func (p *Pipeline) Beat() {
	if p.beacon == nil {
		return
	}
	if err := p.beacon.Beat(); err != nil {
		p.logger.Warn("heartbeat write failed", logging.Error(err))
	}
}

// RunCycle executes one full pass and reports what happened.
func (p *Pipeline) RunCycle(ctx context.Context) (CycleStats, error) {
	stats := CycleStats{}

	// Recovery inspects the heartbeat left by the previous worker, so it
	// must run before this cycle's first beat overwrites it.
	recovered, err := p.recoverStuck(ctx)
	if err != nil {
		return stats, err
	}
	stats.Recovered = recovered
	p.Beat()

	discovered, err := p.discover(ctx)
	if err != nil {
		return stats, err
	}
	stats.Discovered = discovered

	backlog, err := p.store.Backlog(ctx)
	if err != nil {
		return stats, err
	}
	p.logger.Info("cycle backlog ready",
		logging.Int("backlog", len(backlog)),
		logging.Int("discovered", discovered),
		logging.Int("recovered", recovered))

	for _, item := range backlog {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		p.Beat()

		outcome := p.processItem(ctx, item)
		switch outcome {
		case outcomeSucceeded:
			stats.Processed++
			stats.Succeeded++
			pacing := time.Duration(p.cfg.Workflow.PacingDelaySeconds) * time.Second
			if pacing > 0 {
				if err := p.sleep(ctx, pacing); err != nil {
					return stats, err
				}
			}
		case outcomeFailed:
			stats.Processed++
			stats.Failed++
		case outcomeSkipped:
			stats.Skipped++
		}
	}

	p.Beat()
	p.logger.Info("cycle complete",
		logging.Int("processed", stats.Processed),
		logging.Int("succeeded", stats.Succeeded),
		logging.Int("failed", stats.Failed),
		logging.Int("skipped", stats.Skipped))
	return stats, nil
}
