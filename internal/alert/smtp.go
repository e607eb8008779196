package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
)

// ErrMailNotConfigured is returned when SMTP credentials are missing.
var ErrMailNotConfigured = errors.New("email credentials not configured (SMTP_EMAIL, SMTP_PASSWORD)")

// Mailer delivers one rendered alert.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

// SMTPMailer sends over SMTP with mandatory STARTTLS and PLAIN auth. A new
// connection is dialled per message.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Send delivers e in a single SMTP session.
func (m *SMTPMailer) Send(ctx context.Context, e Email) error {
	if m.Username == "" || m.Password == "" {
		return ErrMailNotConfigured
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(senderName, m.Username); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.AddToFormat(e.ToName, e.To); err != nil {
		return fmt.Errorf("set recipient %s: %w", e.To, err)
	}
	msg.Subject(e.Subject)
	msg.SetBodyString(mail.TypeTextPlain, e.Text)
	msg.AddAlternativeString(mail.TypeTextHTML, e.HTML)

	client, err := mail.NewClient(m.Host,
		mail.WithPort(m.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.Username),
		mail.WithPassword(m.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send alert to %s: %w", e.To, err)
	}
	return nil
}
