package mail

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFResult is the text pulled out of one PDF attachment.
type PDFResult struct {
	Filename string
	Text     string
	NumPages int
	Error    error
}

// ExtractPDFText reads the plain text of a PDF document.
// Malformed documents are reported through Error, never by panicking.
func ExtractPDFText(data []byte) (result PDFResult) {
	defer func() {
		if r := recover(); r != nil {
			result = PDFResult{Error: fmt.Errorf("malformed PDF: %v", r)}
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return PDFResult{Error: fmt.Errorf("open PDF: %w", err)}
	}
	result.NumPages = r.NumPage()

	plain, err := r.GetPlainText()
	if err != nil {
		result.Error = fmt.Errorf("extract PDF text: %w", err)
		return result
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		result.Error = fmt.Errorf("extract PDF text: %w", err)
		return result
	}
	result.Text = strings.TrimSpace(string(text))
	return result
}

// IsPDF reports whether an attachment is a PDF by content type or extension.
func IsPDF(a Attachment) bool {
	return strings.EqualFold(a.ContentType, "application/pdf") ||
		strings.EqualFold(filepath.Ext(a.Filename), ".pdf")
}

// ExtractFromAttachments extracts text from every PDF attachment.
// Other attachments are ignored.
func ExtractFromAttachments(attachments []Attachment) []PDFResult {
	logger := slog.Default().With("component", "pdf")
	var results []PDFResult
	for _, a := range attachments {
		if !IsPDF(a) {
			continue
		}
		result := ExtractPDFText(a.Data)
		result.Filename = a.Filename
		if result.Error != nil {
			logger.Warn("failed to extract PDF text", "file", a.Filename, "err", result.Error)
		} else {
			logger.Debug("extracted PDF text", "file", a.Filename, "pages", result.NumPages, "chars", len(result.Text))
		}
		results = append(results, result)
	}
	return results
}

// CombineText appends the text of each non-empty PDF result to body.
func CombineText(body string, results []PDFResult) string {
	var sb strings.Builder
	sb.WriteString(body)
	for _, r := range results {
		if r.Text == "" {
			continue
		}
		sb.WriteString("\n\n--- PDF: ")
		sb.WriteString(r.Filename)
		sb.WriteString(" ---\n")
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Texts returns the non-empty texts of results.
func Texts(results []PDFResult) []string {
	var texts []string
	for _, r := range results {
		if r.Text != "" {
			texts = append(texts, r.Text)
		}
	}
	return texts
}
