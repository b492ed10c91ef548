package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendGridEndpoint   = "/v3/mail/send"
	defaultMailTimeout = 10 * time.Second
)

// Email is a rendered message ready to hand to a Mailer.
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// SendGridMailer delivers through the SendGrid v3 mail send API.
type SendGridMailer struct {
	client  *rest.Client
	apiKey  string
	host    string
	timeout time.Duration
	from    *mail.Email
	replyTo *mail.Email
}

type MailerOption func(*SendGridMailer)

func WithMailTimeout(d time.Duration) MailerOption {
	return func(m *SendGridMailer) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithSendGridHost points the mailer at another API host, e.g. a local stub.
func WithSendGridHost(host string) MailerOption {
	return func(m *SendGridMailer) {
		m.host = host
	}
}

func NewSendGridMailer(apiKey, from, replyTo string, opts ...MailerOption) *SendGridMailer {
	m := &SendGridMailer{
		client:  &rest.Client{HTTPClient: &http.Client{}},
		apiKey:  apiKey,
		timeout: defaultMailTimeout,
		from:    mail.NewEmail("Skywire", from),
	}
	if replyTo != "" {
		m.replyTo = mail.NewEmail("", replyTo)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Send is safe for concurrent use. Each call builds its own request, since
// sendgrid.Client keeps the request body on the shared client.
func (m *SendGridMailer) Send(ctx context.Context, email Email) error {
	msg := mail.NewSingleEmail(m.from, email.Subject, mail.NewEmail("", email.To), email.Text, email.HTML)
	if m.replyTo != nil {
		msg.SetReplyTo(m.replyTo)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	req := sendgrid.GetRequest(m.apiKey, sendGridEndpoint, m.host)
	req.Method = rest.Post
	req.Body = mail.GetRequestBody(msg)

	resp, err := m.client.SendWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: sendgrid returned %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}

// LogMailer logs instead of sending. Used when no SendGrid key is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, email Email) error {
	m.logger.InfoContext(ctx, "email not sent, mailer is in log mode",
		"to", email.To,
		"subject", email.Subject)
	return nil
}
