package mail

import (
	"context"
	"errors"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/noah-isme/college-portal-api/pkg/config"
)

// ErrDisabled is returned when no SMTP host is configured.
var ErrDisabled = errors.New("mail delivery disabled")

// SMTPMailer delivers plain-text messages over SMTP.
type SMTPMailer struct {
	cfg config.MailConfig
}

// NewSMTPMailer returns a mailer for cfg. Delivery is disabled when cfg.Host is empty.
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Enabled reports whether an SMTP host is configured.
func (m *SMTPMailer) Enabled() bool {
	return m.cfg.Host != ""
}

// Send delivers a single message.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if !m.Enabled() {
		return ErrDisabled
	}

	msg := gomail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	opts := []gomail.Option{
		gomail.WithPort(m.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.Username),
			gomail.WithPassword(m.cfg.Password),
		)
	}
	client, err := gomail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
