package feeds_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tubedigest/internal/feeds"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns="http://www.w3.org/2005/Atom">
  <title>Example Channel</title>
  <entry>
    <id>yt:video:abc123defgh</id>
    <yt:videoId>abc123defgh</yt:videoId>
    <title>Latest Upload</title>
    <link rel="alternate" href="https://www.youtube.com/watch?v=abc123defgh"/>
    <published>2025-01-10T12:00:00+00:00</published>
  </entry>
  <entry>
    <id>yt:video:short001xyz</id>
    <yt:videoId>short001xyz</yt:videoId>
    <title>Quick Clip</title>
    <link rel="alternate" href="https://www.youtube.com/shorts/short001xyz"/>
    <published>2025-01-09T12:00:00+00:00</published>
  </entry>
  <entry>
    <id>yt:video:older456ijk</id>
    <yt:videoId>older456ijk</yt:videoId>
    <title>Older Upload</title>
    <link rel="alternate" href="https://www.youtube.com/watch?v=older456ijk"/>
    <published>2025-01-08T12:00:00+00:00</published>
  </entry>
</feed>`

func parseSample(t *testing.T, skipShorts bool, max int) []feeds.Summary {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	t.Cleanup(server.Close)

	client := feeds.NewClient(5 * time.Second)
	summaries, err := client.ParseURL(context.Background(), server.URL, max, skipShorts)
	if err != nil {
		t.Fatalf("ParseURL failed: %v", err)
	}
	return summaries
}

func TestListRecentSkipsShorts(t *testing.T) {
	summaries := parseSample(t, true, 5)
	if len(summaries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(summaries))
	}
	if summaries[0].VideoID != "abc123defgh" || summaries[1].VideoID != "older456ijk" {
		t.Fatalf("unexpected entries: %#v", summaries)
	}
	for _, s := range summaries {
		if strings.Contains(s.Link, "/shorts/") {
			t.Fatalf("short leaked through filter: %s", s.Link)
		}
	}
	if summaries[0].ChannelName != "Example Channel" {
		t.Fatalf("expected channel name from feed title, got %q", summaries[0].ChannelName)
	}
	if summaries[0].Published.IsZero() {
		t.Fatal("expected published timestamp")
	}
}

func TestListRecentKeepsShortsWhenConfigured(t *testing.T) {
	summaries := parseSample(t, false, 5)
	if len(summaries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(summaries))
	}
	if summaries[1].VideoID != "short001xyz" {
		t.Fatalf("expected short in second position, got %s", summaries[1].VideoID)
	}
}

func TestListRecentHonorsMax(t *testing.T) {
	summaries := parseSample(t, false, 1)
	if len(summaries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(summaries))
	}
	if summaries[0].VideoID != "abc123defgh" {
		t.Fatalf("expected newest entry, got %s", summaries[0].VideoID)
	}
}

func TestNormalizeChannelID(t *testing.T) {
	cases := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"UCAbCdEfGhIjKlMnOpQrStUv", "UCAbCdEfGhIjKlMnOpQrStUv", false},
		{"https://www.youtube.com/channel/UCAbCdEfGhIjKlMnOpQrStUv", "UCAbCdEfGhIjKlMnOpQrStUv", false},
		{"@somehandle", "", true},
		{"", "", true},
		{"not-a-channel", "", true},
	}
	for _, tc := range cases {
		got, err := feeds.NormalizeChannelID(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tc.input)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NormalizeChannelID(%q) failed: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("NormalizeChannelID(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestFeedURL(t *testing.T) {
	got := feeds.FeedURL("UCAbCdEfGhIjKlMnOpQrStUv")
	want := "https://www.youtube.com/feeds/videos.xml?channel_id=UCAbCdEfGhIjKlMnOpQrStUv"
	if got != want {
		t.Fatalf("FeedURL = %q, want %q", got, want)
	}
}
