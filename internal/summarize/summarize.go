package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"tubedigest/internal/logging"
	"tubedigest/internal/services"
)

// truncationNote is appended to the prompt when the transcript was cut.
const truncationNote = "\n\n[Note: Transcript was truncated due to length]"

// Input carries the video fields the prompt template can reference.
type Input struct {
	Title      string
	Channel    string
	Duration   string
	Transcript string
}

// Summarizer renders the prompt and drives generation with bounded retries.
type Summarizer struct {
	generator Generator
	tmpl      *template.Template
	maxChars  int
	policy    services.RetryPolicy
	logger    *slog.Logger
}

// New parses the prompt template and wires the generator.
func New(generator Generator, promptTemplate string, maxTranscriptChars int, policy services.RetryPolicy, logger *slog.Logger) (*Summarizer, error) {
	if generator == nil {
		return nil, errors.New("generator is required")
	}
	tmpl, err := template.New("prompt").Parse(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Summarizer{
		generator: generator,
		tmpl:      tmpl,
		maxChars:  maxTranscriptChars,
		policy:    policy,
		logger:    logger,
	}, nil
}

// BuildPrompt renders the template with the transcript bounded to the
// configured length. The bool reports whether truncation happened.
func (s *Summarizer) BuildPrompt(input Input) (string, bool, error) {
	truncated := false
	// Truncate on rune boundaries; a byte slice can cut a multi-byte
	// character in half and feed the model mojibake.
	if s.maxChars > 0 && len(input.Transcript) > s.maxChars {
		if runes := []rune(input.Transcript); len(runes) > s.maxChars {
			input.Transcript = string(runes[:s.maxChars])
			truncated = true
		}
	}
	if input.Duration == "" {
		input.Duration = "Unknown"
	}
	if input.Channel == "" {
		input.Channel = "Unknown"
	}

	var sb strings.Builder
	if err := s.tmpl.Execute(&sb, input); err != nil {
		return "", false, fmt.Errorf("render prompt: %w", err)
	}
	prompt := sb.String()
	if truncated {
		prompt += truncationNote
	}
	return prompt, truncated, nil
}

// Summarize produces a summary for the video, retrying transient generation
// failures per the configured policy.
func (s *Summarizer) Summarize(ctx context.Context, input Input) (string, error) {
	if strings.TrimSpace(input.Transcript) == "" {
		return "", services.Wrap(services.ErrUnavailable, "generation", "build prompt", "", errors.New("transcript is empty"))
	}

	prompt, truncated, err := s.BuildPrompt(input)
	if err != nil {
		return "", services.Wrap(services.ErrUnavailable, "generation", "build prompt", "", err)
	}
	if truncated {
		s.logger.Debug("transcript truncated for prompt", logging.Int("max_chars", s.maxChars))
	}

	var summary string
	err = services.Retry(ctx, s.policy, func(ctx context.Context) error {
		text, genErr := s.generator.Generate(ctx, prompt)
		if genErr != nil {
			return genErr
		}
		summary = text
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("summary generated", logging.Int("chars", len(summary)))
	return summary, nil
}
