package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// OutboundEmail is a single HTML message.
type OutboundEmail struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	HTML    string
}

// Sender delivers outbound email.
// Implementations must be thread-safe for concurrent use.
type Sender interface {
	// Send delivers msg and returns the provider's message ID.
	Send(ctx context.Context, msg OutboundEmail) (string, error)
}

// ResendSender implements Sender with the Resend API.
type ResendSender struct {
	client *resend.Client
	logger *slog.Logger
}

var _ Sender = (*ResendSender)(nil)

// NewResendSender creates a Sender authenticated with apiKey.
func NewResendSender(apiKey string) (*ResendSender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: resend API key is required", ErrNotConfigured)
	}
	return &ResendSender{
		client: resend.NewClient(apiKey),
		logger: slog.Default().With("component", "resend"),
	}, nil
}

// Send delivers msg through Resend.
func (s *ResendSender) Send(ctx context.Context, msg OutboundEmail) (string, error) {
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		ReplyTo: msg.ReplyTo,
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return "", err
	}
	s.logger.Debug("email sent", "to", msg.To, "id", sent.Id)
	return sent.Id, nil
}
