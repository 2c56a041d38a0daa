package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tubedigest/internal/services"
)

const defaultHostedBaseURL = "https://api.supadata.ai/v1"

// HostedProvider calls a hosted transcript API as the last rung of the
// cascade. Only constructed when an API key is configured.
type HostedProvider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	language   string
}

// NewHostedProvider builds the hosted provider. The first configured language
// is requested; the service resolves variants itself.
func NewHostedProvider(timeout time.Duration, apiKey, baseURL string, languages []string) *HostedProvider {
	if baseURL == "" {
		baseURL = defaultHostedBaseURL
	}
	lang := "en"
	if len(languages) > 0 {
		lang = languages[0]
	}
	return &HostedProvider{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		language:   lang,
	}
}

func (p *HostedProvider) Name() string { return "hosted" }

type hostedResponse struct {
	Content string `json:"content"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Fetch requests the plain-text transcript from the hosted API.
func (p *HostedProvider) Fetch(ctx context.Context, videoID string) (Result, error) {
	// baseURL already carries the API version segment.
	endpoint := fmt.Sprintf("%s/youtube/transcript?videoId=%s&lang=%s&text=true&mode=native",
		p.baseURL, url.QueryEscape(videoID), url.QueryEscape(p.language))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build hosted request: %w", err)
	}
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "transcript", "fetch hosted", "", err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if readErr != nil {
		return Result{}, services.Wrap(services.ErrTransient, "transcript", "read hosted", "", readErr)
	}

	var payload hostedResponse
	_ = json.Unmarshal(body, &payload)

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Result{}, services.Wrap(services.ErrAuth, "transcript", "fetch hosted", "", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return Result{}, services.Wrap(services.ErrRateLimited, "transcript", "fetch hosted", "", fmt.Errorf("status %d", resp.StatusCode))
	default:
		if refusal := classifyHostedError(payload); refusal != nil {
			return Result{}, refusal
		}
		return Result{}, services.Wrap(services.ErrTransient, "transcript", "fetch hosted", "", fmt.Errorf("status %d", resp.StatusCode))
	}

	if refusal := classifyHostedError(payload); refusal != nil {
		return Result{}, refusal
	}
	text := JoinSegments([]string{payload.Content})
	if text == "" {
		return Result{}, ErrNotFound
	}
	return Result{Text: text}, nil
}

func classifyHostedError(payload hostedResponse) error {
	code := strings.ToLower(payload.Error)
	switch {
	case code == "":
		return nil
	case strings.Contains(code, "transcript-unavailable") || strings.Contains(code, "transcript_not_available"):
		return ErrNotFound
	case strings.Contains(code, "transcript-disabled") || strings.Contains(code, "transcript_disabled"):
		return ErrDisabled
	case strings.Contains(code, "video-unavailable") || strings.Contains(code, "video_unavailable"):
		return ErrUnavailable
	default:
		return nil
	}
}
