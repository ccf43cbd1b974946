package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
)

// SMTPProvider delivers email through a plain SMTP server.
type SMTPProvider struct {
	addr string // host:port
	auth smtp.Auth
	from string
}

// NewSMTPProvider creates a provider for the SMTP server at addr
// (host:port). Auth may be nil for unauthenticated relays.
func NewSMTPProvider(addr, username, password, host, from string) *SMTPProvider {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPProvider{
		addr: addr,
		auth: auth,
		from: from,
	}
}

// Send delivers one email. The context deadline is not propagated into the
// SMTP dial; delivery is bounded by the server's own timeouts.
func (p *SMTPProvider) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = p.from
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(textBody)
	e.HTML = []byte(htmlBody)

	if err := e.Send(p.addr, p.auth); err != nil {
		return fmt.Errorf("sending email to %s: %w", to, err)
	}
	return nil
}
