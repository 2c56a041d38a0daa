package pipeline

import (
	"context"

	"tubedigest/internal/logging"
)

// discover walks every enabled feed and enqueues uploads not yet tracked.
// A failing feed is logged and skipped so one dead channel never blocks the
// rest.
func (p *Pipeline) discover(ctx context.Context) (int, error) {
	if p.feeds == nil {
		return 0, nil
	}

	created := 0
	for _, feed := range p.cfg.EnabledFeeds() {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		logger := p.logger.With(logging.String(logging.FieldChannelID, feed.ChannelID))

		summaries, err := p.feeds.ListRecent(ctx, feed.ChannelID, p.cfg.Discovery.MaxVideosPerFeed, p.cfg.Discovery.SkipShorts)
		if err != nil {
			logger.Warn("feed fetch failed", logging.Error(err))
			continue
		}

		for _, summary := range summaries {
			channelName := summary.ChannelName
			if feed.Name != "" {
				channelName = feed.Name
			}
			uploadDate := ""
			if !summary.Published.IsZero() {
				uploadDate = summary.Published.Format("20060102")
			}

			isNew, err := p.store.NewFromFeed(ctx, summary.VideoID, summary.ChannelID, channelName, summary.Title, uploadDate)
			if err != nil {
				logger.Warn("enqueue failed",
					logging.String(logging.FieldVideoID, summary.VideoID),
					logging.Error(err))
				continue
			}
			if isNew {
				created++
				logger.Info("video discovered",
					logging.String(logging.FieldVideoID, summary.VideoID),
					logging.String("title", summary.Title))
			}
		}
	}
	return created, nil
}
