package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/bidgrid/core"
	"github.com/poiesic/bidgrid/mail"
	"github.com/poiesic/bidgrid/storage"
)

// Repositories groups the stores a Pipeline reads and writes.
type Repositories struct {
	RFPs      storage.RFPRepository
	Vendors   storage.VendorRepository
	Proposals storage.ProposalRepository
	Inbox     storage.InboxRepository
}

// Pipeline ingests vendor replies into proposals.
type Pipeline struct {
	repos     Repositories
	dial      mail.Dialer
	pool      *ants.Pool
	processor *emailProcessor
	logger    *slog.Logger
}

// Result summarizes an ingestion run for one RFP.
type Result struct {
	// Processed is the number of proposals created.
	Processed int `json:"processed"`
	// Total is the number of unread emails that matched the RFP.
	Total     int              `json:"total"`
	Proposals []*core.Proposal `json:"proposals"`
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent parsing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(repos Repositories, parser ProposalParser, dial mail.Dialer, opts ...Option) (*Pipeline, error) {
	if repos.RFPs == nil || repos.Vendors == nil || repos.Proposals == nil || repos.Inbox == nil {
		return nil, ErrRepositoryRequired
	}
	if parser == nil {
		return nil, ErrParserRequired
	}
	if dial == nil {
		return nil, ErrDialerRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		repos:  repos,
		dial:   dial,
		pool:   pool,
		logger: slog.Default().With("component", "ingestion"),
	}
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	p.processor = &emailProcessor{
		vendors:   repos.Vendors,
		proposals: repos.Proposals,
		parser:    parser,
		logger:    p.logger,
	}
	return p, nil
}

type candidate struct {
	email       *mail.InboundEmail
	fingerprint string
}

// IngestRFP creates proposals from unread replies to owner's RFP.
// Returns storage.ErrNotFound if owner has no such RFP.
func (p *Pipeline) IngestRFP(ctx context.Context, owner, rfpID core.ID) (*Result, error) {
	rfp, err := p.repos.RFPs.GetOwnedRFP(ctx, owner, rfpID)
	if err != nil {
		return nil, err
	}
	t, err := p.target(ctx, rfp)
	if err != nil {
		return nil, err
	}

	mailbox, emails, err := p.openInbox(ctx)
	if err != nil {
		return nil, err
	}
	defer p.closeMailbox(mailbox)

	var matched []*mail.InboundEmail
	for i := range emails {
		if relevant(&emails[i], rfp, t.vendorEmails) {
			matched = append(matched, &emails[i])
		}
	}
	p.logger.Info("matched emails to RFP", "rfp", rfp.Id, "unread", len(emails), "matched", len(matched))
	return p.ingest(ctx, mailbox, rfp, matched)
}

// target loads the addresses of rfp's vendors. Vendors owned by someone
// else are ignored.
func (p *Pipeline) target(ctx context.Context, rfp *core.RFP) (*target, error) {
	vendors, err := p.repos.Vendors.GetVendors(ctx, rfp.Vendors...)
	if err != nil {
		return nil, fmt.Errorf("load vendors: %w", err)
	}
	return &target{rfp: rfp, vendorEmails: vendorEmailSet(vendors, rfp.CreatedBy)}, nil
}

// openInbox dials the mailbox and fetches unread mail. On success the
// caller closes the mailbox.
func (p *Pipeline) openInbox(ctx context.Context) (mail.Mailbox, []mail.InboundEmail, error) {
	mailbox, err := p.dial(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open mailbox: %w", err)
	}
	emails, err := mailbox.FetchUnread(ctx)
	if err != nil {
		p.closeMailbox(mailbox)
		return nil, nil, fmt.Errorf("fetch unread: %w", err)
	}
	return mailbox, emails, nil
}

func (p *Pipeline) closeMailbox(mailbox mail.Mailbox) {
	if err := mailbox.Close(); err != nil {
		p.logger.Warn("failed to close mailbox", "err", err)
	}
}

// ingest turns the emails matched to rfp into proposals, then marks the
// successful ones seen and processed.
func (p *Pipeline) ingest(ctx context.Context, mailbox mail.Mailbox, rfp *core.RFP, matched []*mail.InboundEmail) (*Result, error) {
	result := &Result{Total: len(matched), Proposals: []*core.Proposal{}}
	candidates, err := p.filterHandled(ctx, rfp.Id, matched)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return result, nil
	}

	var (
		mu           sync.Mutex
		wg           sync.WaitGroup
		seen         []uint32
		fingerprints []string
	)
	for _, c := range candidates {
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			proposal, err := p.processor.process(ctx, rfp, c.email)
			if errors.Is(err, errAlreadyResponded) {
				p.logger.Debug("skipping duplicate reply", "from", c.email.FromAddress)
				return
			}
			if err != nil {
				p.logger.Error("error processing email", "from", c.email.FromAddress, "err", err)
				return
			}
			p.logger.Info("created proposal from email", "rfp", rfp.Id, "from", proposal.VendorEmail)

			mu.Lock()
			defer mu.Unlock()
			result.Proposals = append(result.Proposals, proposal)
			seen = append(seen, c.email.UID)
			fingerprints = append(fingerprints, c.fingerprint)
		})
		if err != nil {
			wg.Done()
			p.logger.Error("failed to schedule email", "from", c.email.FromAddress, "err", err)
		}
	}
	wg.Wait()

	result.Processed = len(result.Proposals)
	if err := mailbox.MarkSeen(ctx, seen...); err != nil {
		p.logger.Error("failed to mark emails seen", "count", len(seen), "err", err)
	}
	if err := p.repos.Inbox.MarkProcessed(ctx, fingerprints...); err != nil {
		p.logger.Error("failed to record processed emails", "count", len(fingerprints), "err", err)
	}
	return result, nil
}

// filterHandled drops emails already turned into proposals and senders that
// already responded. Only the first email per sender is kept.
func (p *Pipeline) filterHandled(ctx context.Context, rfp core.ID, emails []*mail.InboundEmail) ([]candidate, error) {
	var out []candidate
	senders := make(map[string]struct{})
	for _, email := range emails {
		fp := fingerprint(rfp, email)
		done, err := p.repos.Inbox.IsProcessed(ctx, fp)
		if err != nil {
			return nil, fmt.Errorf("check processed: %w", err)
		}
		if done {
			continue
		}

		if _, dup := senders[email.FromAddress]; dup {
			continue
		}
		_, err = p.repos.Proposals.FindProposalByVendorEmail(ctx, rfp, email.FromAddress)
		if err == nil {
			p.logger.Debug("proposal already exists", "from", email.FromAddress)
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("check existing proposal: %w", err)
		}

		senders[email.FromAddress] = struct{}{}
		out = append(out, candidate{email: email, fingerprint: fp})
	}
	return out, nil
}

// BatchResult summarizes IngestAll.
type BatchResult struct {
	RFPs      int `json:"rfps"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// IngestAll ingests replies for every RFP currently accepting proposals.
// The mailbox is read once and each email goes to at most one RFP, chosen
// by route. A failing RFP is logged and counted; the rest still run.
func (p *Pipeline) IngestAll(ctx context.Context) (*BatchResult, error) {
	rfps, err := p.repos.RFPs.ListRFPsByStatus(ctx, core.RFPStatusSent)
	if err != nil {
		return nil, err
	}
	batch := &BatchResult{RFPs: len(rfps)}
	targets := make([]*target, 0, len(rfps))
	for _, rfp := range rfps {
		t, err := p.target(ctx, rfp)
		if err != nil {
			batch.Failed++
			p.logger.Error("ingestion failed", "rfp", rfp.Id, "err", err)
			continue
		}
		targets = append(targets, t)
	}
	if len(targets) == 0 {
		return batch, nil
	}

	mailbox, emails, err := p.openInbox(ctx)
	if err != nil {
		return batch, err
	}
	defer p.closeMailbox(mailbox)

	routed := make(map[core.ID][]*mail.InboundEmail, len(targets))
	for i := range emails {
		t, err := p.route(ctx, &emails[i], targets)
		if err != nil {
			return batch, err
		}
		if t == nil {
			continue
		}
		routed[t.rfp.Id] = append(routed[t.rfp.Id], &emails[i])
	}
	p.logger.Info("routed unread emails", "unread", len(emails), "rfps", len(routed))

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		matched := routed[t.rfp.Id]
		if len(matched) == 0 {
			continue
		}
		result, err := p.ingest(ctx, mailbox, t.rfp, matched)
		if err != nil {
			batch.Failed++
			p.logger.Error("ingestion failed", "rfp", t.rfp.Id, "err", err)
			continue
		}
		batch.Processed += result.Processed
	}
	return batch, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
