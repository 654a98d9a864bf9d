package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/bidgrid/core"
)

var rfpTemplate = template.Must(template.New("rfp").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Request for Proposal - {{.Title}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" cellspacing="0" cellpadding="0" border="0" width="100%" style="background-color: #f3f4f6;">
    <tr>
      <td style="padding: 40px 20px;">
        <table role="presentation" cellspacing="0" cellpadding="0" border="0" width="600" style="margin: 0 auto; background-color: #ffffff; border-radius: 12px;">
          <tr>
            <td style="padding: 32px 40px; background-color: #059669; border-radius: 12px 12px 0 0;">
              <h1 style="margin: 0; color: #ffffff; font-size: 24px; font-weight: 700;">📋 Request for Proposal</h1>
              <p style="margin: 8px 0 0 0; color: #ecfdf5; font-size: 14px;">From {{.Sender}} via BidGrid</p>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px 40px 16px 40px;">
              <h2 style="margin: 0; color: #111827; font-size: 22px; font-weight: 600;">{{.Title}}</h2>
            </td>
          </tr>
          <tr>
            <td style="padding: 0 40px 24px 40px;">
              <p style="margin: 0; color: #4b5563; font-size: 15px; line-height: 1.6;">{{.Description}}</p>
            </td>
          </tr>
          <tr>
            <td style="padding: 0 40px 24px 40px;">
              <table role="presentation" cellspacing="0" cellpadding="0" border="0" width="100%" style="background-color: #f9fafb; border-radius: 8px;">
                <tr>
                  <td width="50%" style="padding: 16px;">
                    <p style="margin: 0 0 4px 0; color: #6b7280; font-size: 12px; text-transform: uppercase;">Quantity</p>
                    <p style="margin: 0; color: #111827; font-size: 18px; font-weight: 600;">{{.Quantity}}</p>
                  </td>
                  <td width="50%" style="padding: 16px;">
                    <p style="margin: 0 0 4px 0; color: #6b7280; font-size: 12px; text-transform: uppercase;">Budget Range</p>
                    <p style="margin: 0; color: #111827; font-size: 18px; font-weight: 600;">{{.Budget}}</p>
                  </td>
                </tr>
                <tr>
                  <td colspan="2" style="padding: 16px;">
                    <p style="margin: 0 0 4px 0; color: #6b7280; font-size: 12px; text-transform: uppercase;">Deadline</p>
                    <p style="margin: 0; color: #10b981; font-size: 18px; font-weight: 600;">{{.Deadline}}</p>
                  </td>
                </tr>
              </table>
            </td>
          </tr>
          <tr>
            <td style="padding: 0 40px 24px 40px;">
              <h3 style="margin: 0 0 12px 0; color: #111827; font-size: 16px; font-weight: 600;">Requirements</h3>
              <ul style="margin: 0; padding-left: 20px;">
              {{- range .Requirements}}
                <li style="margin-bottom: 8px; color: #374151;">{{.}}</li>
              {{- else}}
                <li style="color: #6b7280;">No specific requirements listed</li>
              {{- end}}
              </ul>
            </td>
          </tr>
          {{- if .Specs}}
          <tr>
            <td style="padding: 0 40px 24px 40px;">
              <h3 style="margin: 0 0 12px 0; color: #111827; font-size: 16px; font-weight: 600;">Specifications</h3>
              <table role="presentation" cellspacing="0" cellpadding="0" border="0" width="100%" style="border: 1px solid #e5e7eb; border-radius: 8px;">
              {{- range $key, $value := .Specs}}
                <tr>
                  <td style="padding: 8px 12px; border-bottom: 1px solid #e5e7eb; color: #6b7280; text-transform: capitalize;">{{$key}}</td>
                  <td style="padding: 8px 12px; border-bottom: 1px solid #e5e7eb; color: #111827; font-weight: 500;">{{$value}}</td>
                </tr>
              {{- end}}
              </table>
            </td>
          </tr>
          {{- end}}
          <tr>
            <td style="padding: 16px 40px 32px 40px;">
              <p style="margin: 0 0 16px 0; color: #4b5563; font-size: 14px;">Interested in this opportunity? Reply to this email with your proposal.</p>
              {{- if .SubmitURL}}
              <p style="margin: 0; font-size: 14px;"><a href="{{.SubmitURL}}" style="color: #059669; font-weight: 600;">Or submit your proposal online</a></p>
              {{- end}}
            </td>
          </tr>
          <tr>
            <td style="padding: 24px 40px; background-color: #f9fafb; border-radius: 0 0 12px 12px; border-top: 1px solid #e5e7eb;">
              <p style="margin: 0; color: #6b7280; font-size: 12px; text-align: center;">Sent via <strong style="color: #10b981;">BidGrid</strong> - AI-Powered RFP Management</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`))

// rfpView is the template data for an RFP invitation.
type rfpView struct {
	Sender       string
	Title        string
	Description  string
	Quantity     string
	Budget       string
	Deadline     string
	Requirements []string
	Specs        map[string]string
	SubmitURL    string
}

// RenderRFP renders the invitation HTML for rfp.
// submitURL is optional and adds a link to the public submission form.
func RenderRFP(rfp *core.RFP, senderName, submitURL string) (string, error) {
	view := rfpView{
		Sender:       senderName,
		Title:        orDefault(rfp.Title, "Untitled RFP"),
		Description:  orDefault(rfp.Description, "No description provided."),
		Quantity:     "TBD",
		Budget:       FormatBudget(rfp.Budget),
		Deadline:     FormatDeadline(rfp.Deadline),
		Requirements: rfp.Requirements,
		SubmitURL:    submitURL,
	}
	if rfp.Quantity != nil && *rfp.Quantity != 0 {
		view.Quantity = formatNumber(*rfp.Quantity)
	}
	if len(rfp.Specs) > 0 {
		view.Specs = make(map[string]string, len(rfp.Specs))
		for k, v := range rfp.Specs {
			view.Specs[k] = fmt.Sprint(v)
		}
	}

	var buf bytes.Buffer
	if err := rfpTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Subject is the invitation subject line for rfp.
func Subject(rfp *core.RFP) string {
	return "RFP: " + orDefault(rfp.Title, "New Request for Proposal")
}

// FormatBudget renders a budget as "$5,000 - $10,000", "Up to $10,000" or
// "To be discussed". Non-USD currencies use the currency code as the symbol.
func FormatBudget(b *core.Budget) string {
	if b == nil {
		return "To be discussed"
	}
	symbol := "$"
	if b.Currency != "" && b.Currency != core.DefaultCurrency {
		symbol = b.Currency
	}
	hasMin := b.Min != nil && *b.Min != 0
	hasMax := b.Max != nil && *b.Max != 0
	switch {
	case hasMin && hasMax:
		return symbol + formatNumber(*b.Min) + " - " + symbol + formatNumber(*b.Max)
	case hasMax:
		return "Up to " + symbol + formatNumber(*b.Max)
	}
	return "To be discussed"
}

// FormatDeadline renders a deadline as "January 2, 2006", or "Not specified".
func FormatDeadline(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "Not specified"
	}
	return t.UTC().Format("January 2, 2006")
}

// formatNumber renders v with thousands separators and at most three decimals.
func formatNumber(v float64) string {
	s := strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + b.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
