package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Feed identifies one monitored channel feed.
type Feed struct {
	ChannelID string `toml:"channel_id"`
	Name      string `toml:"name"`
	Disabled  bool   `toml:"disabled"`
}

// Discovery controls how new videos are pulled from channel feeds.
type Discovery struct {
	MaxVideosPerFeed int  `toml:"max_videos_per_feed"`
	SkipShorts       bool `toml:"skip_shorts"`
	TimeoutSeconds   int  `toml:"timeout_seconds"`
}

// Transcripts configures the transcript provider cascade.
type Transcripts struct {
	Languages          []string `toml:"languages"`
	AllowAutoGenerated bool     `toml:"allow_auto_generated"`
	MaxAttempts        int      `toml:"max_attempts"`
	BackoffBaseSeconds int      `toml:"backoff_base_seconds"`
	BackoffCapSeconds  int      `toml:"backoff_cap_seconds"`
	TimeoutSeconds     int      `toml:"timeout_seconds"`
	HostedAPIKey       string   `toml:"hosted_api_key"`
	HostedBaseURL      string   `toml:"hosted_base_url"`
}

// Summarizer configures the Gemini generation stage.
type Summarizer struct {
	APIKey             string `toml:"api_key"`
	Model              string `toml:"model"`
	MaxOutputTokens    int    `toml:"max_output_tokens"`
	MaxTranscriptChars int    `toml:"max_transcript_chars"`
	MaxAttempts        int    `toml:"max_attempts"`
	BackoffBaseSeconds int    `toml:"backoff_base_seconds"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
	PromptTemplate     string `toml:"prompt_template"`
}

// Email configures SMTP delivery of generated summaries.
type Email struct {
	Enabled            bool   `toml:"enabled"`
	SMTPHost           string `toml:"smtp_host"`
	SMTPPort           int    `toml:"smtp_port"`
	Username           string `toml:"username"`
	Password           string `toml:"password"`
	Recipient          string `toml:"recipient"`
	MaxAttempts        int    `toml:"max_attempts"`
	BackoffBaseSeconds int    `toml:"backoff_base_seconds"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
}

// Workflow contains pipeline timing, retry ceilings, and the stuck-item tiers.
type Workflow struct {
	CheckIntervalMinutes    int `toml:"check_interval_minutes"`
	PacingDelaySeconds      int `toml:"pacing_delay_seconds"`
	RetryCeiling            int `toml:"retry_ceiling"`
	StuckNoHeartbeatMinutes int `toml:"stuck_no_heartbeat_minutes"`
	StuckTimeoutMinutes     int `toml:"stuck_timeout_minutes"`
	StuckFailsafeMinutes    int `toml:"stuck_failsafe_minutes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for tubedigest.
//
// Sections by subsystem:
//   - Paths: data and log directories
//   - Feeds: monitored channel feeds
//   - Discovery: per-feed item limits and shorts filtering
//   - Transcripts: provider cascade languages, retries, hosted API
//   - Summarizer: Gemini model, prompt, truncation, retries
//   - Email: SMTP delivery settings
//   - Workflow: pacing, retry ceiling, stuck-item recovery tiers
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Feeds       []Feed      `toml:"feeds"`
	Discovery   Discovery   `toml:"discovery"`
	Transcripts Transcripts `toml:"transcripts"`
	Summarizer  Summarizer  `toml:"summarizer"`
	Email       Email       `toml:"email"`
	Workflow    Workflow    `toml:"workflow"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tubedigest/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. Unknown keys in the
// file are rejected.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: unknown keys:\n%s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tubedigest.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the item state store location inside the data dir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "tubedigest.db")
}

// HeartbeatPath returns the liveness record location inside the data dir.
func (c *Config) HeartbeatPath() string {
	return filepath.Join(c.Paths.DataDir, "heartbeat")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "tubedigestd.lock")
}

// EnabledFeeds returns the feeds not marked disabled.
func (c *Config) EnabledFeeds() []Feed {
	feeds := make([]Feed, 0, len(c.Feeds))
	for _, feed := range c.Feeds {
		if !feed.Disabled {
			feeds = append(feeds, feed)
		}
	}
	return feeds
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return filepath.Abs(trimmed)
}
