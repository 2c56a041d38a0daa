// Package metadata enriches queued videos with duration, view count, and
// upload date scraped from the public watch page. Everything here is
// best-effort; a video with no metadata still flows through the pipeline.
package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://www.youtube.com/watch?v="

// maxBodyBytes bounds how much of a watch page is read. The player response
// fields sit well inside the first megabytes.
const maxBodyBytes = 4 << 20

var (
	lengthPattern  = regexp.MustCompile(`"lengthSeconds"\s*:\s*"(\d+)"`)
	viewsPattern   = regexp.MustCompile(`"viewCount"\s*:\s*"(\d+)"`)
	publishPattern = regexp.MustCompile(`"publishDate"\s*:\s*"(\d{4}-\d{2}-\d{2})`)
)

// Info holds the scraped fields. Zero values mean the field was absent.
type Info struct {
	DurationSeconds int64
	ViewCount       int64
	UploadDate      string // YYYYMMDD
}

// Client scrapes watch pages.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient returns a scraper with the given request timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
	}
}

// NewClientWithBaseURL points the scraper at an alternate watch-page host.
func NewClientWithBaseURL(timeout time.Duration, baseURL string) *Client {
	c := NewClient(timeout)
	c.baseURL = baseURL
	return c
}

// Fetch scrapes the watch page for a video. Missing fields stay zero; only a
// failed request or unreadable body is an error.
func (c *Client) Fetch(ctx context.Context, videoID string) (Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+videoID, nil)
	if err != nil {
		return Info{}, fmt.Errorf("build watch request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; tubedigest/1.0)")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Info{}, fmt.Errorf("fetch watch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Info{}, fmt.Errorf("watch page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Info{}, fmt.Errorf("read watch page: %w", err)
	}

	return Parse(string(body)), nil
}

// Parse extracts the metadata fields from raw watch-page HTML.
func Parse(page string) Info {
	info := Info{}
	if match := lengthPattern.FindStringSubmatch(page); match != nil {
		if seconds, err := strconv.ParseInt(match[1], 10, 64); err == nil {
			info.DurationSeconds = seconds
		}
	}
	if match := viewsPattern.FindStringSubmatch(page); match != nil {
		if views, err := strconv.ParseInt(match[1], 10, 64); err == nil {
			info.ViewCount = views
		}
	}
	if match := publishPattern.FindStringSubmatch(page); match != nil {
		info.UploadDate = strings.ReplaceAll(match[1], "-", "")
	}
	return info
}

// FormatDuration renders seconds as M:SS or H:MM:SS.
func FormatDuration(seconds int64) string {
	if seconds <= 0 {
		return ""
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

// FormatViews renders a view count in compact form: 987, 1.2K, 3.4M.
func FormatViews(views int64) string {
	switch {
	case views <= 0:
		return ""
	case views >= 1_000_000:
		return trimTrailingZero(fmt.Sprintf("%.1fM", float64(views)/1_000_000))
	case views >= 1_000:
		return trimTrailingZero(fmt.Sprintf("%.1fK", float64(views)/1_000))
	default:
		return strconv.FormatInt(views, 10)
	}
}

// FormatUploadDate renders a YYYYMMDD date as "Jan 2, 2006". Unparseable
// input is returned unchanged.
func FormatUploadDate(date string) string {
	parsed, err := time.Parse("20060102", date)
	if err != nil {
		return date
	}
	return parsed.Format("Jan 2, 2006")
}

func trimTrailingZero(value string) string {
	return strings.Replace(value, ".0", "", 1)
}
