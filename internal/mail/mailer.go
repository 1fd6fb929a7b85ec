package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/passexam/passexam/internal/config"
)

// Mailer sends a single HTML message.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// SMTPMailer delivers through a configured SMTP relay.
type SMTPMailer struct {
	client *gomail.Client
	from   string
}

func NewSMTP(cfg config.SMTP) (*SMTPMailer, error) {
	client, err := gomail.NewClient(cfg.Host,
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
		gomail.WithSSL(),
	)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, html string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, html)
	return m.client.DialAndSendWithContext(ctx, msg)
}

// NopMailer drops mail, for deployments without an SMTP relay and for tests.
type NopMailer struct{}

func (NopMailer) Send(context.Context, string, string, string) error { return nil }
