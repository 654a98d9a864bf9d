package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/bidgrid/core"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultFromAddress is Resend's shared onboarding sender.
	DefaultFromAddress = "onboarding@resend.dev"
	// DefaultSenderName is shown when the buyer has no username.
	DefaultSenderName = "A BidGrid User"

	defaultSendConcurrency = 5
)

// MailerConfig configures RFPMailer.
type MailerConfig struct {
	// FromAddress is the envelope sender. Default: DefaultFromAddress.
	FromAddress string
	// ReplyTo is where vendor replies go, normally the polled IMAP inbox.
	// Defaults to FromAddress.
	ReplyTo string
	// PublicURL is the base URL of the web client. When set, invitations
	// link to <PublicURL>/submit-proposal/<rfp id>.
	PublicURL string
	// Concurrency bounds parallel sends. Default: 5.
	Concurrency int
}

// SendResult is the outcome of sending to one vendor.
type SendResult struct {
	VendorID core.ID `json:"vendorId"`
	Email    string  `json:"email"`
	Success  bool    `json:"success"`
	EmailID  string  `json:"emailId,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// SendReport summarizes a batch send.
type SendReport struct {
	TotalSent   int          `json:"totalSent"`
	TotalFailed int          `json:"totalFailed"`
	Results     []SendResult `json:"results"`
}

// RFPMailer sends RFP invitations to vendors.
type RFPMailer struct {
	sender Sender
	config MailerConfig
	logger *slog.Logger
}

// NewRFPMailer creates an RFPMailer that delivers through sender.
// A nil sender yields a mailer whose sends fail with ErrNotConfigured.
func NewRFPMailer(sender Sender, config MailerConfig) *RFPMailer {
	if config.FromAddress == "" {
		config.FromAddress = DefaultFromAddress
	}
	if config.ReplyTo == "" {
		config.ReplyTo = config.FromAddress
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaultSendConcurrency
	}
	config.PublicURL = strings.TrimSuffix(config.PublicURL, "/")
	return &RFPMailer{
		sender: sender,
		config: config,
		logger: slog.Default().With("component", "rfp-mailer"),
	}
}

// SendRFP emails rfp to every vendor. A failure for one vendor is recorded
// in its result and does not stop the others. Results follow vendor order.
func (m *RFPMailer) SendRFP(ctx context.Context, rfp *core.RFP, vendors []*core.Vendor, senderName string) (*SendReport, error) {
	if m.sender == nil {
		return nil, fmt.Errorf("%w: no email sender", ErrNotConfigured)
	}
	if senderName == "" {
		senderName = DefaultSenderName
	}
	submitURL := ""
	if m.config.PublicURL != "" {
		submitURL = m.config.PublicURL + "/submit-proposal/" + rfp.Id.String()
	}
	html, err := RenderRFP(rfp, senderName, submitURL)
	if err != nil {
		return nil, fmt.Errorf("render RFP email: %w", err)
	}

	results := make([]SendResult, len(vendors))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.Concurrency)
	for i, vendor := range vendors {
		g.Go(func() error {
			results[i] = m.sendOne(gctx, rfp, vendor, html)
			return nil
		})
	}
	_ = g.Wait()

	report := &SendReport{Results: results}
	for _, r := range results {
		if r.Success {
			report.TotalSent++
		} else {
			report.TotalFailed++
		}
	}
	m.logger.Info("RFP sent", "rfp", rfp.Id, "sent", report.TotalSent, "failed", report.TotalFailed)
	return report, nil
}

func (m *RFPMailer) sendOne(ctx context.Context, rfp *core.RFP, vendor *core.Vendor, html string) SendResult {
	result := SendResult{VendorID: vendor.Id, Email: vendor.Email}
	id, err := m.sender.Send(ctx, OutboundEmail{
		From:    "BidGrid RFP <" + m.config.FromAddress + ">",
		To:      []string{vendor.Email},
		ReplyTo: m.config.ReplyTo,
		Subject: Subject(rfp),
		HTML:    html,
	})
	if err != nil {
		m.logger.Error("failed to send RFP email", "to", vendor.Email, "err", err)
		result.Error = err.Error()
		return result
	}
	m.logger.Debug("RFP email sent", "to", vendor.Email, "id", id, "replyTo", m.config.ReplyTo)
	result.Success = true
	result.EmailID = id
	return result
}
