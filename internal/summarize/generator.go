// Package summarize turns transcripts into digest summaries through the
// Gemini API.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"tubedigest/internal/services"
)

// Generator produces text for a prompt. The Gemini client satisfies it; tests
// substitute fakes.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator calls the Gemini API.
type GeminiGenerator struct {
	client          *genai.Client
	model           string
	maxOutputTokens int32
}

// NewGeminiGenerator builds the live client.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, maxOutputTokens int) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiGenerator{
		client:          client,
		model:           model,
		maxOutputTokens: int32(maxOutputTokens),
	}, nil
}

// Generate sends the prompt and returns the response text.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.3),
	}
	if g.maxOutputTokens > 0 {
		config.MaxOutputTokens = g.maxOutputTokens
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", classifyAPIError(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", services.Wrap(services.ErrTransient, "generation", "generate", "", errors.New("empty response"))
	}
	return text, nil
}

// classifyAPIError maps Gemini API failures onto the shared error markers so
// the retry layer knows what is worth repeating.
func classifyAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return services.Wrap(services.ErrAuth, "generation", "generate", "", err)
		case http.StatusTooManyRequests:
			return services.Wrap(services.ErrRateLimited, "generation", "generate", "", err)
		case http.StatusBadRequest:
			return services.Wrap(services.ErrUnavailable, "generation", "generate", "rejected request", err)
		}
	}
	return services.Wrap(services.ErrTransient, "generation", "generate", "", err)
}
