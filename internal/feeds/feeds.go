// Package feeds discovers recently published videos through channel RSS feeds.
package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"tubedigest/internal/services"
)

const feedURLBase = "https://www.youtube.com/feeds/videos.xml?channel_id="

var channelIDPattern = regexp.MustCompile(`^UC[\w-]{22}$`)
var channelURLPattern = regexp.MustCompile(`youtube\.com/channel/(UC[\w-]{22})`)

// Summary is one feed entry trimmed to the fields discovery needs.
type Summary struct {
	VideoID     string
	Title       string
	Link        string
	ChannelID   string
	ChannelName string
	Published   time.Time
}

// Client fetches and parses channel feeds.
type Client struct {
	parser *gofeed.Parser
}

// NewClient returns a feed client with the given fetch timeout.
func NewClient(timeout time.Duration) *Client {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = "tubedigest/1.0"
	return &Client{parser: parser}
}

// FeedURL returns the RSS feed address for a channel.
func FeedURL(channelID string) string {
	return feedURLBase + url.QueryEscape(channelID)
}

// NormalizeChannelID extracts the UC-prefixed channel identifier from a raw id
// or a channel URL. Handle-style inputs (@name) have no feed address and are
// rejected.
func NormalizeChannelID(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", fmt.Errorf("channel id is empty")
	}
	if channelIDPattern.MatchString(trimmed) {
		return trimmed, nil
	}
	if strings.HasPrefix(trimmed, "@") {
		return "", fmt.Errorf("handle %q has no feed address, use the UC channel id", trimmed)
	}
	if match := channelURLPattern.FindStringSubmatch(trimmed); match != nil {
		return match[1], nil
	}
	return "", fmt.Errorf("unrecognized channel id %q", trimmed)
}

// ListRecent fetches the newest entries for a channel, newest first as the
// feed publishes them. Shorts are filtered by link when skipShorts is set;
// the feed is scanned past max to compensate for filtered entries.
func (c *Client) ListRecent(ctx context.Context, channelID string, max int, skipShorts bool) ([]Summary, error) {
	id, err := NormalizeChannelID(channelID)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "discovery", "normalize channel", "", err)
	}

	summaries, err := c.ParseURL(ctx, FeedURL(id), max, skipShorts)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "discovery", "fetch feed", fmt.Sprintf("channel %s", id), err)
	}
	for i := range summaries {
		summaries[i].ChannelID = id
	}
	return summaries, nil
}

// ParseURL fetches an arbitrary feed address and extracts entries. Split out
// from ListRecent so tests can point it at a local server.
func (c *Client) ParseURL(ctx context.Context, feedURL string, max int, skipShorts bool) ([]Summary, error) {
	if max <= 0 {
		max = 5
	}
	feed, err := c.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	channelName := strings.TrimSpace(feed.Title)
	summaries := make([]Summary, 0, max)
	for _, item := range feed.Items {
		if skipShorts && strings.Contains(item.Link, "/shorts/") {
			continue
		}
		videoID := extractVideoID(item)
		if videoID == "" {
			continue
		}
		summary := Summary{
			VideoID:     videoID,
			Title:       strings.TrimSpace(item.Title),
			Link:        item.Link,
			ChannelName: channelName,
		}
		if item.PublishedParsed != nil {
			summary.Published = item.PublishedParsed.UTC()
		}
		summaries = append(summaries, summary)
		if len(summaries) >= max {
			break
		}
	}
	return summaries, nil
}

// extractVideoID reads the yt:videoId extension, falling back to the watch
// link's query parameter.
func extractVideoID(item *gofeed.Item) string {
	if ext, ok := item.Extensions["yt"]; ok {
		if values, ok := ext["videoId"]; ok && len(values) > 0 {
			if id := strings.TrimSpace(values[0].Value); id != "" {
				return id
			}
		}
	}
	parsed, err := url.Parse(item.Link)
	if err != nil {
		return ""
	}
	return parsed.Query().Get("v")
}
