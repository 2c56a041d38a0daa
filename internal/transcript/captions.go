package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"

	"tubedigest/internal/services"
)

const watchURLBase = "https://www.youtube.com/watch?v="

// maxPageBytes bounds how much of a watch page is read; the player response
// sits well inside the first megabytes.
const maxPageBytes = 4 << 20

// CaptionsProvider scrapes the caption track list embedded in the watch page
// and downloads the best matching track in json3 form.
type CaptionsProvider struct {
	httpClient *http.Client
	baseURL    string
	languages  []string
	allowAuto  bool
}

// NewCaptionsProvider builds the watch-page caption provider.
func NewCaptionsProvider(timeout time.Duration, languages []string, allowAuto bool) *CaptionsProvider {
	return &CaptionsProvider{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    watchURLBase,
		languages:  languages,
		allowAuto:  allowAuto,
	}
}

// NewCaptionsProviderWithBaseURL points the provider at an alternate host.
func NewCaptionsProviderWithBaseURL(timeout time.Duration, languages []string, allowAuto bool, baseURL string) *CaptionsProvider {
	p := NewCaptionsProvider(timeout, languages, allowAuto)
	p.baseURL = baseURL
	return p
}

func (p *CaptionsProvider) Name() string { return "captions" }

// Fetch scrapes the watch page, picks a caption track, and downloads it.
func (p *CaptionsProvider) Fetch(ctx context.Context, videoID string) (Result, error) {
	page, err := p.get(ctx, p.baseURL+videoID)
	if err != nil {
		return Result{}, err
	}

	if pageReportsUnplayable(page) {
		return Result{}, ErrUnavailable
	}

	tracks, ok := extractCaptionTracks(page)
	if !ok || len(tracks) == 0 {
		return Result{}, ErrDisabled
	}

	track, found := pickTrack(tracks, parseWanted(p.languages), p.allowAuto)
	if !found {
		return Result{}, ErrNotFound
	}

	body, err := p.get(ctx, track.BaseURL+"&fmt=json3")
	if err != nil {
		return Result{}, err
	}
	result, err := parseJSON3(body)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "transcript", "parse captions", track.LanguageCode, err)
	}
	if result.Text == "" {
		return Result{}, ErrNotFound
	}
	return result, nil
}

func (p *CaptionsProvider) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; tubedigest/1.0)")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcript", "fetch", "", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, services.Wrap(services.ErrRateLimited, "transcript", "fetch", "", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, ErrUnavailable
	default:
		return nil, services.Wrap(services.ErrTransient, "transcript", "fetch", "", fmt.Errorf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcript", "read body", "", err)
	}
	return body, nil
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

func (t captionTrack) auto() bool { return t.Kind == "asr" }

// pickTrack prefers manually authored tracks over auto-generated ones, and
// within each group the earliest configured language that a track serves.
// When no track serves a configured language the first usable track wins
// anyway: a transcript in the wrong language still beats none at all.
func pickTrack(tracks []captionTrack, wanted []language.Tag, allowAuto bool) (captionTrack, bool) {
	ranked := func(auto bool) (captionTrack, bool) {
		best := -1
		bestRank := len(wanted)
		for i, track := range tracks {
			if track.auto() != auto || track.BaseURL == "" {
				continue
			}
			rank := matchRank(track.LanguageCode, wanted)
			if rank >= 0 && rank < bestRank {
				best = i
				bestRank = rank
			}
		}
		if best < 0 {
			return captionTrack{}, false
		}
		return tracks[best], true
	}
	first := func(auto bool) (captionTrack, bool) {
		for _, track := range tracks {
			if track.auto() == auto && track.BaseURL != "" {
				return track, true
			}
		}
		return captionTrack{}, false
	}

	for _, pick := range []func(bool) (captionTrack, bool){ranked, first} {
		for _, auto := range []bool{false, true} {
			if auto && !allowAuto {
				continue
			}
			if track, ok := pick(auto); ok {
				return track, true
			}
		}
	}
	return captionTrack{}, false
}

func pageReportsUnplayable(page []byte) bool {
	for _, status := range []string{`"status":"ERROR"`, `"status":"UNPLAYABLE"`, `"status":"LOGIN_REQUIRED"`} {
		if idx := strings.Index(string(page), `"playabilityStatus"`); idx >= 0 {
			window := string(page[idx:min(idx+400, len(page))])
			if strings.Contains(window, status) {
				return true
			}
		}
	}
	return false
}

// extractCaptionTracks locates the captionTracks array in the player response
// with a balanced-bracket scan; a naive non-greedy regexp would stop at a
// bracket inside a track name.
func extractCaptionTracks(page []byte) ([]captionTrack, bool) {
	const key = `"captionTracks":`
	text := string(page)
	idx := strings.Index(text, key)
	if idx < 0 {
		return nil, false
	}
	rest := text[idx+len(key):]
	if len(rest) == 0 || rest[0] != '[' {
		return nil, false
	}

	depth := 0
	inString := false
	escaped := false
	end := -1
scan:
	for i, r := range rest {
		switch {
		case escaped:
			escaped = false
		case inString:
			if r == '\\' {
				escaped = true
			} else if r == '"' {
				inString = false
			}
		case r == '"':
			inString = true
		case r == '[':
			depth++
		case r == ']':
			depth--
			if depth == 0 {
				end = i + 1
				break scan
			}
		}
	}
	if end < 0 {
		return nil, false
	}

	var tracks []captionTrack
	if err := json.Unmarshal([]byte(rest[:end]), &tracks); err != nil {
		return nil, false
	}
	return tracks, true
}

type json3Doc struct {
	Events []struct {
		StartMs    int64 `json:"tStartMs"`
		DurationMs int64 `json:"dDurationMs"`
		Segs       []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

func parseJSON3(body []byte) (Result, error) {
	var doc json3Doc
	if err := json.Unmarshal(body, &doc); err != nil {
		return Result{}, fmt.Errorf("decode json3: %w", err)
	}

	var segments []string
	var endMs int64
	for _, event := range doc.Events {
		if last := event.StartMs + event.DurationMs; last > endMs {
			endMs = last
		}
		for _, seg := range event.Segs {
			segments = append(segments, seg.UTF8)
		}
	}
	return Result{
		Text:            JoinSegments(segments),
		DurationSeconds: endMs / 1000,
	}, nil
}
