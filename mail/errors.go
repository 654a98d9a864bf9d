package mail

import "errors"

var (
	// ErrNotConfigured is returned when a transport lacks credentials.
	ErrNotConfigured = errors.New("mail transport not configured")

	// ErrMailboxClosed is returned by operations on a closed Mailbox.
	ErrMailboxClosed = errors.New("mailbox closed")
)
