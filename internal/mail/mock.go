package mail

import (
	"context"
	"log/slog"
)

// MockProvider logs emails instead of sending them. It is used when SMTP is
// not configured (local development, tests).
type MockProvider struct {
	log *slog.Logger
}

// NewMockProvider creates a provider that discards email with a log line.
func NewMockProvider(log *slog.Logger) *MockProvider {
	return &MockProvider{log: log}
}

// Send logs the email and drops it.
func (m *MockProvider) Send(_ context.Context, to, subject, textBody, _ string) error {
	m.log.Info("MOCK EMAIL",
		"to", to,
		"subject", subject,
		"body_length", len(textBody),
	)
	return nil
}
