package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateFeeds(); err != nil {
		return err
	}
	if err := c.validateSummarizer(); err != nil {
		return err
	}
	if err := c.validateEmail(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateFeeds() error {
	seen := make(map[string]struct{}, len(c.Feeds))
	for i, feed := range c.Feeds {
		if feed.ChannelID == "" {
			return fmt.Errorf("feeds[%d].channel_id must be set", i)
		}
		if _, dup := seen[feed.ChannelID]; dup {
			return fmt.Errorf("feeds: duplicate channel_id %q", feed.ChannelID)
		}
		seen[feed.ChannelID] = struct{}{}
	}
	return nil
}

func (c *Config) validateSummarizer() error {
	if strings.TrimSpace(c.Summarizer.APIKey) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/tubedigest/config.toml"
		}
		return fmt.Errorf("summarizer.api_key is required. Edit %s (create with 'tubedigest config init')", defaultPath)
	}
	if c.Summarizer.MaxTranscriptChars < 1000 {
		return errors.New("summarizer.max_transcript_chars must be at least 1000")
	}
	if c.Summarizer.MaxAttempts < 1 {
		return errors.New("summarizer.max_attempts must be at least 1")
	}
	return nil
}

func (c *Config) validateEmail() error {
	if !c.Email.Enabled {
		return nil
	}
	if c.Email.SMTPHost == "" {
		return errors.New("email.smtp_host must be set when email.enabled is true")
	}
	if c.Email.SMTPPort < 1 || c.Email.SMTPPort > 65535 {
		return errors.New("email.smtp_port must be a valid port")
	}
	if c.Email.Username == "" || c.Email.Password == "" {
		return errors.New("email.username and email.password must be set when email.enabled is true")
	}
	if !isValidEmail(c.Email.Recipient) {
		return fmt.Errorf("email.recipient %q is not a valid address", c.Email.Recipient)
	}
	if c.Email.MaxAttempts < 1 {
		return errors.New("email.max_attempts must be at least 1")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.RetryCeiling < 1 {
		return errors.New("workflow.retry_ceiling must be at least 1")
	}
	if c.Workflow.CheckIntervalMinutes < 1 {
		return errors.New("workflow.check_interval_minutes must be at least 1")
	}
	if c.Workflow.PacingDelaySeconds < 0 {
		return errors.New("workflow.pacing_delay_seconds must not be negative")
	}
	tiers := []struct {
		name  string
		value int
	}{
		{"workflow.stuck_no_heartbeat_minutes", c.Workflow.StuckNoHeartbeatMinutes},
		{"workflow.stuck_timeout_minutes", c.Workflow.StuckTimeoutMinutes},
		{"workflow.stuck_failsafe_minutes", c.Workflow.StuckFailsafeMinutes},
	}
	for _, tier := range tiers {
		if tier.value < 1 {
			return fmt.Errorf("%s must be at least 1", tier.name)
		}
	}
	if c.Workflow.StuckNoHeartbeatMinutes > c.Workflow.StuckTimeoutMinutes ||
		c.Workflow.StuckTimeoutMinutes > c.Workflow.StuckFailsafeMinutes {
		return errors.New("workflow stuck tiers must be ordered: no_heartbeat <= timeout <= failsafe")
	}
	return nil
}

// isValidEmail applies the same loose shape check the delivery stage relies
// on: one @ with a dot somewhere after it.
func isValidEmail(addr string) bool {
	at := strings.Index(addr, "@")
	if at < 1 || at == len(addr)-1 {
		return false
	}
	domain := addr[at+1:]
	dot := strings.Index(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
