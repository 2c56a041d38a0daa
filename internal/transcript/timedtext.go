package transcript

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tubedigest/internal/services"
)

const timedtextURLBase = "https://www.youtube.com/api/timedtext"

// TimedtextProvider hits the public timedtext endpoint directly, one request
// per configured language. The endpoint answers an empty body for videos it
// has no track for, so absence is cheap to detect.
type TimedtextProvider struct {
	httpClient *http.Client
	baseURL    string
	languages  []string
}

// NewTimedtextProvider builds the timedtext provider.
func NewTimedtextProvider(timeout time.Duration, languages []string) *TimedtextProvider {
	return &TimedtextProvider{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    timedtextURLBase,
		languages:  languages,
	}
}

// NewTimedtextProviderWithBaseURL points the provider at an alternate host.
func NewTimedtextProviderWithBaseURL(timeout time.Duration, languages []string, baseURL string) *TimedtextProvider {
	p := NewTimedtextProvider(timeout, languages)
	p.baseURL = baseURL
	return p
}

func (p *TimedtextProvider) Name() string { return "timedtext" }

// Fetch tries each configured language in order and returns the first
// non-empty track.
func (p *TimedtextProvider) Fetch(ctx context.Context, videoID string) (Result, error) {
	for _, lang := range p.languages {
		result, err := p.fetchLanguage(ctx, videoID, lang)
		if err != nil {
			return Result{}, err
		}
		if result.Text != "" {
			return result, nil
		}
	}
	return Result{}, ErrNotFound
}

func (p *TimedtextProvider) fetchLanguage(ctx context.Context, videoID, lang string) (Result, error) {
	endpoint := fmt.Sprintf("%s?v=%s&lang=%s", p.baseURL, url.QueryEscape(videoID), url.QueryEscape(lang))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build timedtext request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "transcript", "fetch timedtext", lang, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return Result{}, services.Wrap(services.ErrRateLimited, "transcript", "fetch timedtext", lang, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return Result{}, ErrUnavailable
	default:
		return Result{}, services.Wrap(services.ErrTransient, "transcript", "fetch timedtext", lang, fmt.Errorf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "transcript", "read timedtext", lang, err)
	}
	if !strings.Contains(string(body), "<transcript") {
		return Result{}, nil
	}
	return parseTimedtext(body)
}

type timedtextDoc struct {
	XMLName xml.Name        `xml:"transcript"`
	Lines   []timedtextLine `xml:"text"`
}

type timedtextLine struct {
	Start float64 `xml:"start,attr"`
	Dur   float64 `xml:"dur,attr"`
	Value string  `xml:",chardata"`
}

func parseTimedtext(body []byte) (Result, error) {
	var doc timedtextDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "transcript", "parse timedtext", "", err)
	}

	segments := make([]string, 0, len(doc.Lines))
	var end float64
	for _, line := range doc.Lines {
		segments = append(segments, line.Value)
		if last := line.Start + line.Dur; last > end {
			end = last
		}
	}
	return Result{
		Text:            JoinSegments(segments),
		DurationSeconds: int64(end),
	}, nil
}
