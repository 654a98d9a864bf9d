package mail

import (
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"
)

// InboundEmail is a received message reduced to the parts proposals need.
type InboundEmail struct {
	UID         uint32
	FromName    string
	FromAddress string
	Subject     string
	Date        time.Time
	MessageID   string
	Text        string
	HTML        string
	Attachments []Attachment
}

// Attachment is a file carried by an inbound email.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Body returns the plain text body, falling back to the HTML body as text.
func (e *InboundEmail) Body() string {
	if strings.TrimSpace(e.Text) != "" {
		return e.Text
	}
	if e.HTML != "" {
		return HTMLToText(e.HTML)
	}
	return ""
}

// SenderName is the display name of the sender, or the address when there is none.
func (e *InboundEmail) SenderName() string {
	if e.FromName != "" {
		return e.FromName
	}
	return e.FromAddress
}

// ParseMessage parses a raw RFC 5322 message.
// Parts in unknown charsets are kept undecoded rather than failing the message.
func ParseMessage(uid uint32, r io.Reader) (InboundEmail, error) {
	email := InboundEmail{UID: uid}

	mr, err := gomail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return email, fmt.Errorf("read message: %w", err)
	}

	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		email.FromName = strings.TrimSpace(from[0].Name)
		email.FromAddress = strings.ToLower(strings.TrimSpace(from[0].Address))
	}
	email.Subject, _ = mr.Header.Subject()
	email.Date, _ = mr.Header.Date()
	email.MessageID, _ = mr.Header.MessageID()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) {
				continue
			}
			return email, fmt.Errorf("read part: %w", err)
		}

		switch h := part.Header.(type) {
		case *gomail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				return email, fmt.Errorf("read body: %w", err)
			}
			switch contentType {
			case "text/html":
				if email.HTML == "" {
					email.HTML = string(body)
				}
			case "text/plain", "":
				if email.Text == "" {
					email.Text = string(body)
				}
			}
		case *gomail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()
			att, err := readAttachment(part.Body, filename, contentType)
			if err != nil {
				return email, err
			}
			email.Attachments = append(email.Attachments, att)
		}
	}
	return email, nil
}

func readAttachment(r io.Reader, filename, contentType string) (Attachment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Attachment{}, fmt.Errorf("read attachment %q: %w", filename, err)
	}
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
			contentType, _, _ = mime.ParseMediaType(byExt)
		}
	}
	return Attachment{Filename: filename, ContentType: contentType, Data: data}, nil
}
