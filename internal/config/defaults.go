package config

const (
	defaultDataDir = "~/.local/share/tubedigest/data"
	defaultLogDir  = "~/.local/share/tubedigest/logs"

	defaultMaxVideosPerFeed = 5
	defaultDiscoveryTimeout = 30

	defaultTranscriptAttempts    = 3
	defaultTranscriptBackoffBase = 2
	defaultTranscriptBackoffCap  = 30
	defaultTranscriptTimeout     = 30
	defaultHostedBaseURL         = "https://api.supadata.ai/v1"

	defaultSummarizerModel       = "gemini-2.0-flash"
	defaultMaxOutputTokens       = 500
	defaultMaxTranscriptChars    = 15000
	defaultSummarizerAttempts    = 3
	defaultSummarizerBackoffBase = 5
	defaultSummarizerTimeout     = 120

	defaultSMTPHost         = "smtp.gmail.com"
	defaultSMTPPort         = 587
	defaultEmailAttempts    = 3
	defaultEmailBackoffBase = 5
	defaultEmailTimeout     = 30

	defaultCheckIntervalMinutes = 240
	defaultPacingDelaySeconds   = 3
	defaultRetryCeiling         = 3
	defaultStuckNoHeartbeatMin  = 2
	defaultStuckTimeoutMin      = 5
	defaultStuckFailsafeMin     = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

var defaultLanguages = []string{"en", "en-US", "en-GB", "de", "de-DE"}

// DefaultPromptTemplate is the generation prompt used when the config leaves
// prompt_template empty. Fields: Title, Channel, Duration, Transcript.
const DefaultPromptTemplate = `Summarize this YouTube video concisely.

Title: {{.Title}}
Channel: {{.Channel}}
Duration: {{.Duration}}

Transcript:
{{.Transcript}}

Write a summary that captures the key points, main arguments, and any
conclusions. Use short paragraphs. Do not pad with filler phrases.`

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Discovery: Discovery{
			MaxVideosPerFeed: defaultMaxVideosPerFeed,
			SkipShorts:       true,
			TimeoutSeconds:   defaultDiscoveryTimeout,
		},
		Transcripts: Transcripts{
			Languages:          append([]string(nil), defaultLanguages...),
			AllowAutoGenerated: true,
			MaxAttempts:        defaultTranscriptAttempts,
			BackoffBaseSeconds: defaultTranscriptBackoffBase,
			BackoffCapSeconds:  defaultTranscriptBackoffCap,
			TimeoutSeconds:     defaultTranscriptTimeout,
			HostedBaseURL:      defaultHostedBaseURL,
		},
		Summarizer: Summarizer{
			Model:              defaultSummarizerModel,
			MaxOutputTokens:    defaultMaxOutputTokens,
			MaxTranscriptChars: defaultMaxTranscriptChars,
			MaxAttempts:        defaultSummarizerAttempts,
			BackoffBaseSeconds: defaultSummarizerBackoffBase,
			TimeoutSeconds:     defaultSummarizerTimeout,
		},
		Email: Email{
			Enabled:            true,
			SMTPHost:           defaultSMTPHost,
			SMTPPort:           defaultSMTPPort,
			MaxAttempts:        defaultEmailAttempts,
			BackoffBaseSeconds: defaultEmailBackoffBase,
			TimeoutSeconds:     defaultEmailTimeout,
		},
		Workflow: Workflow{
			CheckIntervalMinutes:    defaultCheckIntervalMinutes,
			PacingDelaySeconds:      defaultPacingDelaySeconds,
			RetryCeiling:            defaultRetryCeiling,
			StuckNoHeartbeatMinutes: defaultStuckNoHeartbeatMin,
			StuckTimeoutMinutes:     defaultStuckTimeoutMin,
			StuckFailsafeMinutes:    defaultStuckFailsafeMin,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
