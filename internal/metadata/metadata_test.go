package metadata_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tubedigest/internal/metadata"
)

const samplePage = `<html><script>var ytInitialPlayerResponse = {` +
	`"videoDetails":{"videoId":"abc123","lengthSeconds":"754","viewCount":"1234567"},` +
	`"microformat":{"playerMicroformatRenderer":{"publishDate":"2025-01-10T08:00:00-08:00"}}};</script></html>`

func TestParseExtractsFields(t *testing.T) {
	info := metadata.Parse(samplePage)
	if info.DurationSeconds != 754 {
		t.Fatalf("expected duration 754, got %d", info.DurationSeconds)
	}
	if info.ViewCount != 1234567 {
		t.Fatalf("expected views 1234567, got %d", info.ViewCount)
	}
	if info.UploadDate != "20250110" {
		t.Fatalf("expected upload date 20250110, got %q", info.UploadDate)
	}
}

func TestParseToleratesMissingFields(t *testing.T) {
	info := metadata.Parse("<html><body>nothing useful</body></html>")
	if info.DurationSeconds != 0 || info.ViewCount != 0 || info.UploadDate != "" {
		t.Fatalf("expected zero info, got %#v", info)
	}
}

func TestFetchScrapesWatchPage(t *testing.T) {
	var requestedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.String()
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	client := metadata.NewClientWithBaseURL(5*time.Second, server.URL+"/watch?v=")
	info, err := client.Fetch(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if info.DurationSeconds != 754 {
		t.Fatalf("unexpected info: %#v", info)
	}
	if requestedPath != "/watch?v=abc123" {
		t.Fatalf("unexpected request path: %s", requestedPath)
	}
}

func TestFetchRejectsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	client := metadata.NewClientWithBaseURL(5*time.Second, server.URL+"/watch?v=")
	if _, err := client.Fetch(context.Background(), "abc123"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds int64
		want    string
	}{
		{0, ""},
		{59, "0:59"},
		{754, "12:34"},
		{3661, "1:01:01"},
	}
	for _, tc := range cases {
		if got := metadata.FormatDuration(tc.seconds); got != tc.want {
			t.Fatalf("FormatDuration(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestFormatViews(t *testing.T) {
	cases := []struct {
		views int64
		want  string
	}{
		{0, ""},
		{987, "987"},
		{1200, "1.2K"},
		{1000, "1K"},
		{3_400_000, "3.4M"},
		{2_000_000, "2M"},
	}
	for _, tc := range cases {
		if got := metadata.FormatViews(tc.views); got != tc.want {
			t.Fatalf("FormatViews(%d) = %q, want %q", tc.views, got, tc.want)
		}
	}
}

func TestFormatUploadDate(t *testing.T) {
	if got := metadata.FormatUploadDate("20250110"); got != "Jan 10, 2025" {
		t.Fatalf("unexpected formatted date: %q", got)
	}
	if got := metadata.FormatUploadDate("garbage"); got != "garbage" {
		t.Fatalf("unparseable input must pass through, got %q", got)
	}
}
