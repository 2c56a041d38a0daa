package pipeline

import (
	"context"
	"log/slog"

	"tubedigest/internal/logging"
	"tubedigest/internal/metadata"
	"tubedigest/internal/queue"
	"tubedigest/internal/summarize"
)

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeSucceeded
	outcomeFailed
)

// processItem drives one video through its remaining stages. The claim is a
// conditional update, so a video another worker grabbed in the meantime is
// skipped without side effects.
func (p *Pipeline) processItem(ctx context.Context, item *queue.Item) outcome {
	logger := p.logger.With(logging.String(logging.FieldVideoID, item.VideoID))

	ceiling := p.cfg.Workflow.RetryCeiling
	if item.RetryCount >= ceiling {
		if err := p.store.MarkPermanent(ctx, item.VideoID, "retry limit reached"); err != nil {
			logger.Warn("retirement failed", logging.Error(err))
			return outcomeSkipped
		}
		logger.Info("video retired at retry ceiling", logging.Int("retry_count", item.RetryCount))
		return outcomeFailed
	}

	claimed, ok, err := p.store.Claim(ctx, item.VideoID, ceiling)
	if err != nil {
		logger.Warn("claim failed", logging.Error(err))
		return outcomeSkipped
	}
	if !ok {
		logger.Debug("claim lost", logging.String(logging.FieldStatus, string(claimed.Status)))
		return outcomeSkipped
	}
	logger = logger.With(logging.Int("attempt", claimed.RetryCount))

	// A summary from a prior attempt means only delivery is left.
	if claimed.HasSummary() {
		logger.Info("resuming at delivery, summary already generated")
		return p.deliver(ctx, claimed, logger)
	}

	p.enrichMetadata(ctx, claimed, logger)
	p.Beat()

	result, err := p.transcripts.Fetch(ctx, claimed.VideoID)
	if err != nil {
		return p.fail(ctx, claimed, queue.StatusFailedTranscript, err, logger)
	}
	if claimed.DurationSeconds == 0 && result.DurationSeconds > 0 {
		claimed.DurationSeconds = result.DurationSeconds
	}
	p.Beat()

	summary, err := p.summarizer.Summarize(ctx, summarize.Input{
		Title:      claimed.Title,
		Channel:    claimed.ChannelName,
		Duration:   metadata.FormatDuration(claimed.DurationSeconds),
		Transcript: result.Text,
	})
	if err != nil {
		return p.fail(ctx, claimed, queue.StatusFailedGeneration, err, logger)
	}
	claimed.SummaryText = summary
	claimed.SummaryLength = len(summary)
	p.Beat()

	return p.deliver(ctx, claimed, logger)
}

// deliver sends the summary when email is enabled and records the terminal
// state. The summary always survives a delivery failure.
func (p *Pipeline) deliver(ctx context.Context, item *queue.Item, logger *slog.Logger) outcome {
	if p.mailer != nil {
		if err := p.mailer.Send(ctx, item, item.SummaryText); err != nil {
			return p.fail(ctx, item, queue.StatusFailedDelivery, err, logger)
		}
		item.EmailSent = true
	}

	item.Status = queue.StatusSuccess
	item.LastError = ""
	if err := p.store.Update(ctx, item); err != nil {
		logger.Warn("success update failed", logging.Error(err))
		return outcomeFailed
	}
	logger.Info("video processed",
		logging.Int("summary_chars", item.SummaryLength),
		logging.Bool("email_sent", item.EmailSent))
	return outcomeSucceeded
}

// fail annotates the video with the stage failure and re-queues it for a
// later attempt. Fields from completed stages are kept.
func (p *Pipeline) fail(ctx context.Context, item *queue.Item, status queue.Status, cause error, logger *slog.Logger) outcome {
	item.Status = status
	item.LastError = cause.Error()
	if err := p.store.Update(ctx, item); err != nil {
		logger.Warn("failure update failed", logging.Error(err))
	}
	logger.Info("stage failed",
		logging.String(logging.FieldStatus, string(status)),
		logging.Error(cause))
	return outcomeFailed
}

// enrichMetadata fills duration, views, and upload date when absent. Purely
// best-effort.
func (p *Pipeline) enrichMetadata(ctx context.Context, item *queue.Item, logger *slog.Logger) {
	if p.meta == nil {
		return
	}
	if item.DurationSeconds > 0 && item.ViewCount > 0 && item.UploadDate != "" {
		return
	}
	info, err := p.meta.Fetch(ctx, item.VideoID)
	if err != nil {
		logger.Debug("metadata fetch failed", logging.Error(err))
		return
	}
	if item.DurationSeconds == 0 {
		item.DurationSeconds = info.DurationSeconds
	}
	if item.ViewCount == 0 {
		item.ViewCount = info.ViewCount
	}
	if item.UploadDate == "" {
		item.UploadDate = info.UploadDate
	}
}
