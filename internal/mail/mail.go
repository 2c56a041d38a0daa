// Package mail delivers finished summaries over SMTP.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	gomail "github.com/wneessen/go-mail"

	"tubedigest/internal/config"
	"tubedigest/internal/logging"
	"tubedigest/internal/metadata"
	"tubedigest/internal/queue"
	"tubedigest/internal/services"
)

const subjectPrefix = "YAYS: "
const maxSubjectTitle = 60

const separator = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// Sender composes and sends digest emails.
type Sender struct {
	cfg    config.Email
	logger *slog.Logger
	// send is swapped in tests to avoid a live SMTP dial.
	send func(ctx context.Context, msg *gomail.Msg) error
}

// NewSender wires the SMTP client settings from config.
func NewSender(cfg config.Email, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Sender{cfg: cfg, logger: logger}
	s.send = s.dialAndSend
	return s
}

// Subject renders the subject line with the title bounded to a sane length.
func Subject(title string) string {
	runes := []rune(title)
	if len(runes) > maxSubjectTitle {
		runes = runes[:maxSubjectTitle]
	}
	return subjectPrefix + string(runes)
}

// Body composes the plain-text email: metadata header, separators, summary,
// and the watch link. Metadata lines are omitted when the field is unknown.
func Body(item *queue.Item, summary string) string {
	var meta []string
	if item.ChannelName != "" {
		meta = append(meta, "Channel: "+item.ChannelName)
	}
	if d := metadata.FormatDuration(item.DurationSeconds); d != "" {
		meta = append(meta, "Duration: "+d)
	}
	if v := metadata.FormatViews(item.ViewCount); v != "" {
		meta = append(meta, "Views: "+v+" views")
	}
	if item.UploadDate != "" {
		meta = append(meta, "Uploaded: "+metadata.FormatUploadDate(item.UploadDate))
	}

	watchLine := "Watch video: " + item.WatchURL()
	if len(meta) == 0 {
		return summary + "\n\n---\n" + watchLine
	}
	return strings.Join(meta, "\n") + "\n\n" + separator + "\n\n" + summary + "\n\n" + separator + "\n\n" + watchLine
}

// Send delivers the summary for one video. Authentication failures classify
// as terminal; connection problems stay transient so delivery is retried.
func (s *Sender) Send(ctx context.Context, item *queue.Item, summary string) error {
	msg, err := s.compose(item, summary)
	if err != nil {
		return services.Wrap(services.ErrUnavailable, "delivery", "compose", "", err)
	}

	if err := s.send(ctx, msg); err != nil {
		if isAuthError(err) {
			return services.Wrap(services.ErrAuth, "delivery", "send", "", err)
		}
		return services.Wrap(services.ErrTransient, "delivery", "send", "", err)
	}

	s.logger.Info("summary delivered",
		logging.String(logging.FieldVideoID, item.VideoID),
		logging.String("recipient", s.cfg.Recipient))
	return nil
}

func (s *Sender) compose(item *queue.Item, summary string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.Username); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(s.cfg.Recipient); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(Subject(item.Title))
	msg.SetBodyString(gomail.TypeTextPlain, Body(item, summary))
	return msg, nil
}

func (s *Sender) dialAndSend(ctx context.Context, msg *gomail.Msg) error {
	client, err := gomail.NewClient(s.cfg.SMTPHost,
		gomail.WithPort(s.cfg.SMTPPort),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.Username),
		gomail.WithPassword(s.cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	)
	if err != nil {
		return fmt.Errorf("build smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

func isAuthError(err error) bool {
	text := strings.ToLower(err.Error())
	for _, marker := range []string{"auth", "535", "username and password not accepted"} {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
