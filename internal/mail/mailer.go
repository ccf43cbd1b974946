// Package mail composes and delivers pricewatch notification emails.
package mail

import (
	"context"
	"log/slog"
)

// Mailer is the email gateway the rest of the application depends on.
type Mailer interface {
	// SendPriceNotification tells a subscriber their item now sells at price.
	SendPriceNotification(ctx context.Context, to, itemURL string, price float64) error

	// SendActivationEmail sends an account activation link built from token.
	SendActivationEmail(ctx context.Context, to, token string) error
}

// Provider delivers a composed email. Implementations wrap a concrete
// transport (SMTP, or a logging mock for development).
type Provider interface {
	Send(ctx context.Context, to, subject, textBody, htmlBody string) error
}

// Sender implements Mailer on top of a pluggable Provider.
type Sender struct {
	provider Provider
	log      *slog.Logger

	// baseURL is the external address used when building activation links.
	baseURL string
}

// NewSender creates a Sender delivering through provider. Activation links
// are rooted at baseURL.
func NewSender(provider Provider, baseURL string, log *slog.Logger) *Sender {
	return &Sender{
		provider: provider,
		baseURL:  baseURL,
		log:      log,
	}
}

// SendPriceNotification emails a subscriber about the current price of an item.
func (s *Sender) SendPriceNotification(ctx context.Context, to, itemURL string, price float64) error {
	text, html, err := renderPriceNotification(itemURL, price)
	if err != nil {
		return err
	}

	s.log.Debug("sending price notification", "to", to, "url", itemURL, "price", price)

	return s.provider.Send(ctx, to, priceNotificationSubject, text, html)
}

// SendActivationEmail emails a newly registered user their activation link.
func (s *Sender) SendActivationEmail(ctx context.Context, to, token string) error {
	link := s.ActivationLink(token)

	text, html, err := renderActivation(link)
	if err != nil {
		return err
	}

	s.log.Debug("sending activation email", "to", to)

	return s.provider.Send(ctx, to, activationSubject, text, html)
}

// ActivationLink builds the account activation URL for a token.
func (s *Sender) ActivationLink(token string) string {
	return s.baseURL + "/api/v1/auth/activate/" + token
}
