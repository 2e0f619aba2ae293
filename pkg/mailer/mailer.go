package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// ErrDelivery is returned when the mail provider rejects a message.
var ErrDelivery = errors.New("email delivery failed")

// Message is a single rendered email.
type Message struct {
	ToEmail   string
	ToName    string
	Subject   string
	PlainText string
	HTML      string
}

// Config configures the SendGrid sender identity.
type Config struct {
	APIKey    string
	FromEmail string
	FromName  string
}

type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridMailer delivers messages through the SendGrid v3 API.
type SendGridMailer struct {
	client sendClient
	from   *mail.Email
	logger zerolog.Logger
}

// NewSendGrid builds a SendGrid-backed mailer.
func NewSendGrid(cfg Config, logger zerolog.Logger) (*SendGridMailer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("sendgrid api key must not be empty")
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, fmt.Errorf("sender email must not be empty")
	}

	return newSendGrid(sendgrid.NewSendClient(cfg.APIKey), cfg, logger), nil
}

func newSendGrid(client sendClient, cfg Config, logger zerolog.Logger) *SendGridMailer {
	return &SendGridMailer{
		client: client,
		from:   mail.NewEmail(cfg.FromName, cfg.FromEmail),
		logger: logger.With().Str("component", "sendgrid_mailer").Logger(),
	}
}

// Send delivers msg, treating any non-2xx provider status as a failure.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.ToEmail) == "" {
		return fmt.Errorf("recipient email must not be empty")
	}

	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	email := mail.NewSingleEmail(m.from, msg.Subject, to, msg.PlainText, msg.HTML)

	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		m.logger.Warn().Int("status", resp.StatusCode).Str("subject", msg.Subject).Msg("sendgrid rejected message")
		return fmt.Errorf("%w: provider status %d", ErrDelivery, resp.StatusCode)
	}

	m.logger.Info().Str("subject", msg.Subject).Msg("email sent")
	return nil
}

// LogMailer is a basic provider that only logs messages. It is used when no
// provider credentials are configured.
type LogMailer struct {
	logger zerolog.Logger
}

// NewLogMailer constructs a logging provider.
func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With().Str("component", "log_mailer").Logger()}
}

// Send logs the message and returns nil to indicate success.
func (l *LogMailer) Send(_ context.Context, msg Message) error {
	l.logger.Info().Str("subject", msg.Subject).Msg("email delivery skipped, no provider configured")
	return nil
}
