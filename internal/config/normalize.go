package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	for i := range c.Feeds {
		c.Feeds[i].ChannelID = strings.TrimSpace(c.Feeds[i].ChannelID)
		c.Feeds[i].Name = strings.TrimSpace(c.Feeds[i].Name)
		if c.Feeds[i].Name == "" {
			c.Feeds[i].Name = c.Feeds[i].ChannelID
		}
	}

	languages := make([]string, 0, len(c.Transcripts.Languages))
	for _, lang := range c.Transcripts.Languages {
		if trimmed := strings.TrimSpace(lang); trimmed != "" {
			languages = append(languages, trimmed)
		}
	}
	if len(languages) == 0 {
		languages = append(languages, defaultLanguages...)
	}
	c.Transcripts.Languages = languages
	c.Transcripts.HostedBaseURL = strings.TrimRight(strings.TrimSpace(c.Transcripts.HostedBaseURL), "/")
	if c.Transcripts.HostedBaseURL == "" {
		c.Transcripts.HostedBaseURL = defaultHostedBaseURL
	}

	if strings.TrimSpace(c.Summarizer.Model) == "" {
		c.Summarizer.Model = defaultSummarizerModel
	}
	if strings.TrimSpace(c.Summarizer.PromptTemplate) == "" {
		c.Summarizer.PromptTemplate = DefaultPromptTemplate
	}

	c.Email.Username = strings.TrimSpace(c.Email.Username)
	c.Email.Recipient = strings.TrimSpace(c.Email.Recipient)

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	return nil
}
