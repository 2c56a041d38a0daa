package transcript

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExtractCaptionTracks(t *testing.T) {
	page := []byte(`...{"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[` +
		`{"baseUrl":"https://example.com/t?lang=en","languageCode":"en","name":{"simpleText":"English [CC]"}},` +
		`{"baseUrl":"https://example.com/t?lang=de\u0026kind=asr","languageCode":"de","kind":"asr"}` +
		`]}}}...`)

	tracks, ok := extractCaptionTracks(page)
	if !ok {
		t.Fatal("expected tracks to be found")
	}
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}
	if tracks[0].LanguageCode != "en" || tracks[0].auto() {
		t.Fatalf("unexpected first track: %#v", tracks[0])
	}
	if !tracks[1].auto() {
		t.Fatalf("expected asr track: %#v", tracks[1])
	}
	if tracks[1].BaseURL != "https://example.com/t?lang=de&kind=asr" {
		t.Fatalf("escaped ampersand not decoded: %s", tracks[1].BaseURL)
	}
}

func TestExtractCaptionTracksAbsent(t *testing.T) {
	if _, ok := extractCaptionTracks([]byte(`{"playabilityStatus":{"status":"OK"}}`)); ok {
		t.Fatal("expected no tracks")
	}
}

func TestPickTrackPrefersManualOverAuto(t *testing.T) {
	tracks := []captionTrack{
		{BaseURL: "u1", LanguageCode: "en", Kind: "asr"},
		{BaseURL: "u2", LanguageCode: "en"},
	}
	picked, ok := pickTrack(tracks, parseWanted([]string{"en"}), true)
	if !ok || picked.BaseURL != "u2" {
		t.Fatalf("expected manual track, got %#v ok=%v", picked, ok)
	}
}

func TestPickTrackHonorsLanguagePriority(t *testing.T) {
	tracks := []captionTrack{
		{BaseURL: "u-de", LanguageCode: "de"},
		{BaseURL: "u-en", LanguageCode: "en-US"},
	}
	picked, ok := pickTrack(tracks, parseWanted([]string{"en", "de"}), false)
	if !ok || picked.BaseURL != "u-en" {
		t.Fatalf("expected en-US track for wanted en, got %#v ok=%v", picked, ok)
	}
}

func TestPickTrackRespectsAllowAuto(t *testing.T) {
	tracks := []captionTrack{{BaseURL: "u", LanguageCode: "en", Kind: "asr"}}
	if _, ok := pickTrack(tracks, parseWanted([]string{"en"}), false); ok {
		t.Fatal("auto track must be rejected when auto is disallowed")
	}
	if _, ok := pickTrack(tracks, parseWanted([]string{"en"}), true); !ok {
		t.Fatal("auto track must be accepted when auto is allowed")
	}
}

func TestPickTrackFallsBackWhenNoLanguageMatches(t *testing.T) {
	tracks := []captionTrack{
		{BaseURL: "u-fr-auto", LanguageCode: "fr", Kind: "asr"},
		{BaseURL: "u-fr", LanguageCode: "fr"},
	}
	picked, ok := pickTrack(tracks, parseWanted([]string{"en"}), true)
	if !ok || picked.BaseURL != "u-fr" {
		t.Fatalf("expected manual fr fallback, got %#v ok=%v", picked, ok)
	}
}

func TestPickTrackFallbackStillRejectsAuto(t *testing.T) {
	tracks := []captionTrack{{BaseURL: "u-fr-auto", LanguageCode: "fr", Kind: "asr"}}
	if _, ok := pickTrack(tracks, parseWanted([]string{"en"}), false); ok {
		t.Fatal("auto-only fallback must be rejected when auto is disallowed")
	}
	picked, ok := pickTrack(tracks, parseWanted([]string{"en"}), true)
	if !ok || picked.BaseURL != "u-fr-auto" {
		t.Fatalf("expected auto fallback when allowed, got %#v ok=%v", picked, ok)
	}
}

func TestParseJSON3(t *testing.T) {
	body := []byte(`{"events":[` +
		`{"tStartMs":0,"dDurationMs":2000,"segs":[{"utf8":"hello"}]},` +
		`{"tStartMs":2000,"dDurationMs":3500,"segs":[{"utf8":"world"},{"utf8":"again"}]}` +
		`]}`)
	result, err := parseJSON3(body)
	if err != nil {
		t.Fatalf("parseJSON3 failed: %v", err)
	}
	if result.Text != "hello world again" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
	if result.DurationSeconds != 5 {
		t.Fatalf("expected 5s duration, got %d", result.DurationSeconds)
	}
}

func TestCaptionsProviderEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		page := `{"captionTracks":[{"baseUrl":"` + server.URL + `/track?lang=en","languageCode":"en"}]}`
		_, _ = w.Write([]byte(page))
	})
	mux.HandleFunc("/track", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"events":[{"tStartMs":0,"dDurationMs":1000,"segs":[{"utf8":"transcript text"}]}]}`))
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	provider := NewCaptionsProviderWithBaseURL(5*time.Second, []string{"en"}, true, server.URL+"/watch?v=")
	result, err := provider.Fetch(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if result.Text != "transcript text" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
}

func TestCaptionsProviderDisabledWhenNoTracks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"playabilityStatus":{"status":"OK"}}`))
	}))
	defer server.Close()

	provider := NewCaptionsProviderWithBaseURL(5*time.Second, []string{"en"}, true, server.URL+"/watch?v=")
	_, err := provider.Fetch(context.Background(), "abc123")
	if err == nil {
		t.Fatal("expected refusal")
	}
	if err != ErrDisabled {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestCaptionsProviderUnavailableVideo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"playabilityStatus":{"status":"ERROR","reason":"Video unavailable"}}`))
	}))
	defer server.Close()

	provider := NewCaptionsProviderWithBaseURL(5*time.Second, []string{"en"}, true, server.URL+"/watch?v=")
	_, err := provider.Fetch(context.Background(), "abc123")
	if err != ErrUnavailable {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestCaptionsProviderFallsBackToOtherLanguage(t *testing.T) {
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		page := `{"captionTracks":[{"baseUrl":"` + server.URL + `/track?lang=fr","languageCode":"fr"}]}`
		_, _ = w.Write([]byte(page))
	})
	mux.HandleFunc("/track", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"events":[{"tStartMs":0,"dDurationMs":1000,"segs":[{"utf8":"texte francais"}]}]}`))
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	provider := NewCaptionsProviderWithBaseURL(5*time.Second, []string{"en"}, true, server.URL+"/watch?v=")
	result, err := provider.Fetch(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if result.Text != "texte francais" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
}
