package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

const (
	DefaultIMAPHost = "imap.gmail.com"
	DefaultIMAPPort = 993

	defaultIMAPTimeout = 30 * time.Second
	inboxName          = "INBOX"
)

// Mailbox is an inbox that yields unread messages.
// A Mailbox is a single session and is not safe for concurrent use.
type Mailbox interface {
	// FetchUnread returns every unread message without marking it seen.
	FetchUnread(ctx context.Context) ([]InboundEmail, error)

	// MarkSeen flags the given messages as read.
	MarkSeen(ctx context.Context, uids ...uint32) error

	// Close ends the session.
	Close() error
}

// Dialer opens a new Mailbox session.
type Dialer func(ctx context.Context) (Mailbox, error)

// IMAPConfig configures an IMAP mailbox.
type IMAPConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// Configured reports whether credentials are present.
func (c IMAPConfig) Configured() bool {
	return c.Username != "" && c.Password != ""
}

func (c IMAPConfig) withDefaults() IMAPConfig {
	if c.Host == "" {
		c.Host = DefaultIMAPHost
	}
	if c.Port == 0 {
		c.Port = DefaultIMAPPort
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultIMAPTimeout
	}
	return c
}

// IMAPMailbox implements Mailbox over IMAP with implicit TLS.
type IMAPMailbox struct {
	client *client.Client
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

var _ Mailbox = (*IMAPMailbox)(nil)

// IMAPDialer returns a Dialer for config.
func IMAPDialer(config IMAPConfig) Dialer {
	return func(ctx context.Context) (Mailbox, error) {
		return DialIMAP(ctx, config)
	}
}

// DialIMAP connects, logs in and selects INBOX.
func DialIMAP(ctx context.Context, config IMAPConfig) (*IMAPMailbox, error) {
	if !config.Configured() {
		return nil, fmt.Errorf("%w: IMAP username and password are required", ErrNotConfigured)
	}
	config = config.withDefaults()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	c, err := client.DialTLS(addr, &tls.Config{
		ServerName:         config.Host,
		InsecureSkipVerify: config.InsecureSkipVerify,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	c.Timeout = config.Timeout

	if err := c.Login(config.Username, config.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("IMAP login: %w", err)
	}
	if _, err := c.Select(inboxName, false); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("select %s: %w", inboxName, err)
	}

	logger := slog.Default().With("component", "imap", "host", config.Host)
	logger.Debug("IMAP session opened", "user", config.Username)
	return &IMAPMailbox{client: c, logger: logger}, nil
}

// FetchUnread searches for UNSEEN messages and fetches them with BODY.PEEK[].
func (m *IMAPMailbox) FetchUnread(ctx context.Context) ([]InboundEmail, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := m.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search unseen: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	m.logger.Debug("unread messages found", "count", len(uids))

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- m.client.UidFetch(seqset, items, messages)
	}()

	var emails []InboundEmail
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			m.logger.Warn("server returned no body", "uid", msg.Uid)
			continue
		}
		email, err := ParseMessage(msg.Uid, body)
		if err != nil {
			m.logger.Warn("failed to parse message", "uid", msg.Uid, "err", err)
			continue
		}
		emails = append(emails, email)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	return emails, nil
}

// MarkSeen adds the \Seen flag to uids in one STORE command.
func (m *IMAPMailbox) MarkSeen(ctx context.Context, uids ...uint32) error {
	if len(uids) == 0 {
		return nil
	}
	if err := m.check(ctx); err != nil {
		return err
	}
	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := m.client.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}

// Close logs out. Calling Close more than once is safe.
func (m *IMAPMailbox) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.client.Logout()
}

func (m *IMAPMailbox) check(ctx context.Context) error {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return ErrMailboxClosed
	}
	return ctx.Err()
}
