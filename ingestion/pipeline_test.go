package ingestion

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/bidgrid/ai/mock"
	"github.com/poiesic/bidgrid/assistant"
	"github.com/poiesic/bidgrid/core"
	"github.com/poiesic/bidgrid/mail"
	"github.com/poiesic/bidgrid/storage"
	"github.com/poiesic/bidgrid/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testMailbox implements mail.Mailbox over a fixed set of messages.
type testMailbox struct {
	mu       sync.Mutex
	emails   []mail.InboundEmail
	seen     map[uint32]bool
	closed   int
	fetchErr error
}

func newTestMailbox(emails ...mail.InboundEmail) *testMailbox {
	return &testMailbox{emails: emails, seen: make(map[uint32]bool)}
}

func (m *testMailbox) FetchUnread(ctx context.Context) ([]mail.InboundEmail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	var out []mail.InboundEmail
	for _, e := range m.emails {
		if !m.seen[e.UID] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *testMailbox) MarkSeen(ctx context.Context, uids ...uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, uid := range uids {
		m.seen[uid] = true
	}
	return nil
}

func (m *testMailbox) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *testMailbox) seenUIDs() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var uids []uint32
	for uid := range m.seen {
		uids = append(uids, uid)
	}
	slices.Sort(uids)
	return uids
}

func (m *testMailbox) dialer() mail.Dialer {
	return func(ctx context.Context) (mail.Mailbox, error) {
		return m, nil
	}
}

// testParser implements ProposalParser with canned outcomes keyed on content.
type testParser struct{}

func (testParser) Parse(ctx context.Context, content string, rfp assistant.RFPContext) (*core.ParsedProposal, error) {
	switch {
	case strings.Contains(content, "boom"):
		return nil, fmt.Errorf("%w: deadline exceeded", assistant.ErrAIUnavailable)
	case strings.Contains(content, "gibberish"):
		return nil, assistant.ErrInvalidResponse
	}
	return &core.ParsedProposal{
		VendorName:   "Acme Corp",
		Price:        &core.Price{Amount: 24000, Currency: "USD"},
		Timeline:     "2 weeks",
		DeliveryDate: "2025-08-01",
		Terms:        []string{"Net 30"},
		Completeness: 80,
		Summary:      "Competitive offer for " + rfp.Title,
	}, nil
}

type fixture struct {
	repos  *badger.Repositories
	owner  core.ID
	vendor *core.Vendor
	rfp    *core.RFP
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	ctx := context.Background()
	owner := core.NewID()
	vendor, err := repos.Vendors.CreateVendor(ctx, &core.Vendor{
		Name:      "Acme",
		Email:     "sales@acme.com",
		CreatedBy: owner,
	})
	require.NoError(t, err)

	rfp, err := repos.RFPs.CreateRFP(ctx, &core.RFP{
		Title:     "Office Laptops",
		Status:    core.RFPStatusSent,
		Vendors:   []core.ID{vendor.Id},
		CreatedBy: owner,
	})
	require.NoError(t, err)

	return &fixture{repos: repos, owner: owner, vendor: vendor, rfp: rfp}
}

func (f *fixture) pipeline(t *testing.T, parser ProposalParser, mb *testMailbox) *Pipeline {
	t.Helper()
	p, err := NewPipeline(Repositories{
		RFPs:      f.repos.RFPs,
		Vendors:   f.repos.Vendors,
		Proposals: f.repos.Proposals,
		Inbox:     f.repos.Inbox,
	}, parser, mb.dialer(), WithPoolSize(4))
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func testEmails() []mail.InboundEmail {
	date := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	return []mail.InboundEmail{
		{UID: 1, FromName: "Acme Sales", FromAddress: "sales@acme.com", Subject: "Re: hello", MessageID: "1@acme.com", Date: date, Text: "We offer 20 laptops for $24,000."},
		{UID: 2, FromName: "Stranger", FromAddress: "stranger@example.com", Subject: "Quote for laptops", MessageID: "2@example.com", Date: date, Text: "gibberish"},
		{UID: 3, FromAddress: "friend@example.com", Subject: "Lunch?", MessageID: "3@example.com", Date: date, Text: "Pizza?"},
		{UID: 4, FromAddress: "sales@acme.com", Subject: "RFP follow-up", MessageID: "4@acme.com", Date: date, Text: "Any news?"},
		{UID: 5, FromAddress: "broken@example.com", Subject: "Our proposal", MessageID: "5@example.com", Date: date, Text: "boom"},
	}
}

func TestNewPipeline_Validation(t *testing.T) {
	f := setupFixture(t)
	mb := newTestMailbox()
	repos := Repositories{RFPs: f.repos.RFPs, Vendors: f.repos.Vendors, Proposals: f.repos.Proposals, Inbox: f.repos.Inbox}

	_, err := NewPipeline(Repositories{}, testParser{}, mb.dialer())
	assert.ErrorIs(t, err, ErrRepositoryRequired)

	_, err = NewPipeline(repos, nil, mb.dialer())
	assert.ErrorIs(t, err, ErrParserRequired)

	_, err = NewPipeline(repos, testParser{}, nil)
	assert.ErrorIs(t, err, ErrDialerRequired)
}

func TestPipeline_IngestRFP(t *testing.T) {
	f := setupFixture(t)
	mb := newTestMailbox(testEmails()...)
	p := f.pipeline(t, testParser{}, mb)
	ctx := context.Background()

	result, err := p.IngestRFP(ctx, f.owner, f.rfp.Id)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Total, "the lunch email does not match")
	assert.Equal(t, 2, result.Processed)
	require.Len(t, result.Proposals, 2)
	assert.Equal(t, []uint32{1, 2}, mb.seenUIDs())
	assert.Equal(t, 1, mb.closed)

	acme, err := f.repos.Proposals.FindProposalByVendorEmail(ctx, f.rfp.Id, "sales@acme.com")
	require.NoError(t, err)
	assert.Equal(t, f.vendor.Id, acme.Vendor)
	assert.Equal(t, "Acme Corp", acme.VendorName)
	assert.Equal(t, core.ProposalSourceEmail, acme.Source)
	assert.Equal(t, core.ProposalStatusParsed, acme.Status)
	assert.Equal(t, 24000.0, acme.Price.Amount)
	assert.Equal(t, "2 weeks", acme.Timeline)
	assert.Equal(t, []string{"Net 30"}, acme.Terms)
	assert.Equal(t, 80.0, acme.Completeness)
	assert.Equal(t, 80.0, acme.AIScore)
	assert.Equal(t, "Competitive offer for Office Laptops", acme.AIAnalysis)
	assert.Equal(t, "Re: hello", acme.EmailSubject)
	assert.Equal(t, "We offer 20 laptops for $24,000.", acme.OriginalEmail)
	require.NotNil(t, acme.DeliveryDate)
	assert.Equal(t, "2025-08-01", acme.DeliveryDate.Format(time.DateOnly))
	require.NotNil(t, acme.ParsedData)

	stranger, err := f.repos.Proposals.FindProposalByVendorEmail(ctx, f.rfp.Id, "stranger@example.com")
	require.NoError(t, err)
	assert.Empty(t, stranger.Vendor)
	assert.Equal(t, "Stranger", stranger.VendorName)
	assert.Nil(t, stranger.ParsedData)
	assert.Equal(t, core.Price{Amount: 0, Currency: "USD"}, stranger.Price)

	_, err = f.repos.Proposals.FindProposalByVendorEmail(ctx, f.rfp.Id, "broken@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound, "AI failures leave the email for the next run")

	done, err := f.repos.Inbox.IsProcessed(ctx, fingerprint(f.rfp.Id, &mb.emails[0]))
	require.NoError(t, err)
	assert.True(t, done)
}

func TestPipeline_IngestRFP_Rerun(t *testing.T) {
	f := setupFixture(t)
	mb := newTestMailbox(testEmails()...)
	p := f.pipeline(t, testParser{}, mb)
	ctx := context.Background()

	_, err := p.IngestRFP(ctx, f.owner, f.rfp.Id)
	require.NoError(t, err)

	result, err := p.IngestRFP(ctx, f.owner, f.rfp.Id)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total, "the follow-up and the failed email are still unread")
	assert.Zero(t, result.Processed)
	assert.Empty(t, result.Proposals)
	assert.Equal(t, []uint32{1, 2}, mb.seenUIDs())

	proposals, err := f.repos.Proposals.ListProposals(ctx, f.rfp.Id)
	require.NoError(t, err)
	assert.Len(t, proposals, 2)
}

func TestPipeline_IngestRFP_SkipsProcessedFingerprint(t *testing.T) {
	f := setupFixture(t)
	emails := testEmails()[:1]
	mb := newTestMailbox(emails...)
	p := f.pipeline(t, testParser{}, mb)
	ctx := context.Background()

	require.NoError(t, f.repos.Inbox.MarkProcessed(ctx, fingerprint(f.rfp.Id, &emails[0])))

	result, err := p.IngestRFP(ctx, f.owner, f.rfp.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	assert.Zero(t, result.Processed)
}

func TestPipeline_IngestRFP_NotOwner(t *testing.T) {
	f := setupFixture(t)
	mb := newTestMailbox(testEmails()...)
	p := f.pipeline(t, testParser{}, mb)

	_, err := p.IngestRFP(context.Background(), core.NewID(), f.rfp.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Zero(t, mb.closed, "mailbox is not opened for foreign RFPs")
}

func TestPipeline_IngestRFP_MailboxErrors(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	dialErr := errors.New("connection refused")
	p, err := NewPipeline(Repositories{
		RFPs: f.repos.RFPs, Vendors: f.repos.Vendors, Proposals: f.repos.Proposals, Inbox: f.repos.Inbox,
	}, testParser{}, func(ctx context.Context) (mail.Mailbox, error) {
		return nil, dialErr
	})
	require.NoError(t, err)
	defer p.Release()
	_, err = p.IngestRFP(ctx, f.owner, f.rfp.Id)
	assert.ErrorIs(t, err, dialErr)

	mb := newTestMailbox()
	mb.fetchErr = errors.New("server busy")
	p = f.pipeline(t, testParser{}, mb)
	_, err = p.IngestRFP(ctx, f.owner, f.rfp.Id)
	assert.ErrorIs(t, err, mb.fetchErr)
	assert.Equal(t, 1, mb.closed)
}

func TestPipeline_IngestRFP_WithProposalParser(t *testing.T) {
	f := setupFixture(t)
	mb := newTestMailbox(testEmails()[0])
	model := mock.NewMockModel().WithResponses(`{"vendorName": "Acme Corporation", "price": {"amount": 23500}, "completeness": 90, "summary": "Complete"}`)
	parser, err := assistant.NewProposalParser(model)
	require.NoError(t, err)
	p := f.pipeline(t, parser, mb)

	result, err := p.IngestRFP(context.Background(), f.owner, f.rfp.Id)
	require.NoError(t, err)
	require.Equal(t, 1, result.Processed)

	proposal := result.Proposals[0]
	assert.Equal(t, "Acme Corporation", proposal.VendorName)
	assert.Equal(t, 23500.0, proposal.Price.Amount)
	assert.Equal(t, "USD", proposal.Price.Currency)
	assert.Equal(t, 90.0, proposal.AIScore)
	assert.Contains(t, model.LastRequest().Messages[0].Content, "Office Laptops")
}

func TestPipeline_IngestAll(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	_, err := f.repos.RFPs.CreateRFP(ctx, &core.RFP{Title: "Still drafting", CreatedBy: f.owner})
	require.NoError(t, err)

	mb := newTestMailbox(testEmails()...)
	p := f.pipeline(t, testParser{}, mb)

	batch, err := p.IngestAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, batch.RFPs)
	assert.Equal(t, 1, batch.Processed, "keyword-only mail from unknown senders waits for an explicit ingest")
	assert.Zero(t, batch.Failed)
	assert.Equal(t, []uint32{1}, mb.seenUIDs())
	assert.Equal(t, 1, mb.closed)
}

func TestPipeline_IngestAll_RoutesAcrossOwners(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	globex, err := f.repos.Vendors.CreateVendor(ctx, &core.Vendor{Name: "Globex", Email: "bids@globex.com", CreatedBy: f.owner})
	require.NoError(t, err)

	other := core.NewID()
	chef, err := f.repos.Vendors.CreateVendor(ctx, &core.Vendor{Name: "Chef", Email: "chef@food.com", CreatedBy: other})
	require.NoError(t, err)
	_, err = f.repos.Vendors.CreateVendor(ctx, &core.Vendor{Name: "Caterers", Email: "ops@cater.com", CreatedBy: other})
	require.NoError(t, err)

	catering, err := f.repos.RFPs.CreateRFP(ctx, &core.RFP{
		Title:     "Team Catering",
		Status:    core.RFPStatusSent,
		Vendors:   []core.ID{chef.Id, f.vendor.Id},
		CreatedBy: other,
	})
	require.NoError(t, err)
	var events []*core.RFP
	for i := 1; i <= 7; i++ {
		rfp, err := f.repos.RFPs.CreateRFP(ctx, &core.RFP{
			Title:     fmt.Sprintf("Catering Event %d", i),
			Status:    core.RFPStatusSent,
			CreatedBy: other,
		})
		require.NoError(t, err)
		events = append(events, rfp)
	}

	date := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	mb := newTestMailbox(
		mail.InboundEmail{UID: 1, FromAddress: "sales@acme.com", Subject: "Re: RFP: Office Laptops", MessageID: "1@acme.com", Date: date, Text: "Laptops for $24,000."},
		mail.InboundEmail{UID: 2, FromAddress: "chef@food.com", Subject: "Re: RFP: Team Catering", MessageID: "2@food.com", Date: date, Text: "Lunch for 40."},
		mail.InboundEmail{UID: 3, FromAddress: "stranger@example.com", Subject: "Quote request", MessageID: "3@example.com", Date: date, Text: "Hello"},
		mail.InboundEmail{UID: 4, FromAddress: "bids@globex.com", Subject: "Our proposal", MessageID: "4@globex.com", Date: date, Text: "Laptops for $23,000."},
		mail.InboundEmail{UID: 5, FromAddress: "ops@cater.com", Subject: "Quote", MessageID: "5@cater.com", Date: date, Text: "Buffet."},
	)
	p := f.pipeline(t, testParser{}, mb)

	batch, err := p.IngestAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, batch.RFPs)
	assert.Equal(t, 3, batch.Processed)
	assert.Zero(t, batch.Failed)
	assert.Equal(t, []uint32{1, 2, 4}, mb.seenUIDs())
	assert.Equal(t, 1, mb.closed, "the mailbox is read once per run")

	laptops, err := f.repos.Proposals.ListProposals(ctx, f.rfp.Id)
	require.NoError(t, err)
	var senders []string
	for _, proposal := range laptops {
		senders = append(senders, proposal.VendorEmail)
	}
	assert.ElementsMatch(t, []string{"sales@acme.com", "bids@globex.com"}, senders)

	acme, err := f.repos.Proposals.FindProposalByVendorEmail(ctx, f.rfp.Id, "sales@acme.com")
	require.NoError(t, err)
	assert.Equal(t, f.vendor.Id, acme.Vendor)
	linked, err := f.repos.Proposals.FindProposalByVendorEmail(ctx, f.rfp.Id, "bids@globex.com")
	require.NoError(t, err)
	assert.Equal(t, globex.Id, linked.Vendor)

	lunch, err := f.repos.Proposals.ListProposals(ctx, catering.Id)
	require.NoError(t, err)
	require.Len(t, lunch, 1, "another owner's copy of a vendor ID does not attract their replies")
	assert.Equal(t, "chef@food.com", lunch[0].VendorEmail)

	for _, rfp := range events {
		proposals, err := f.repos.Proposals.ListProposals(ctx, rfp.Id)
		require.NoError(t, err)
		assert.Empty(t, proposals, rfp.Title)
	}
}

func TestPipeline_IngestAll_NoOpenRFPs(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	mb := newTestMailbox(testEmails()...)
	p, err := NewPipeline(Repositories{
		RFPs: repos.RFPs, Vendors: repos.Vendors, Proposals: repos.Proposals, Inbox: repos.Inbox,
	}, testParser{}, mb.dialer())
	require.NoError(t, err)
	defer p.Release()

	batch, err := p.IngestAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, batch.RFPs)
	assert.Zero(t, mb.closed, "no RFP, no mailbox session")
}

func TestPipeline_Route(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	p := f.pipeline(t, testParser{}, newTestMailbox())

	laptops := &target{rfp: f.rfp, vendorEmails: map[string]struct{}{"sales@acme.com": {}}}
	desks := &target{
		rfp:          &core.RFP{Id: core.NewID(), Title: "Office Laptops and Desks", CreatedBy: f.owner},
		vendorEmails: map[string]struct{}{"sales@acme.com": {}},
	}
	foreign := &target{rfp: &core.RFP{Id: core.NewID(), Title: "Paper", CreatedBy: core.NewID()}, vendorEmails: map[string]struct{}{}}
	unlisted := &target{rfp: f.rfp, vendorEmails: map[string]struct{}{}}

	tests := []struct {
		name    string
		email   mail.InboundEmail
		targets []*target
		want    *target
	}{
		{"single listing", mail.InboundEmail{FromAddress: "sales@acme.com", Subject: "hi"}, []*target{laptops, foreign}, laptops},
		{"listed twice, narrowed by title", mail.InboundEmail{FromAddress: "sales@acme.com", Subject: "Re: RFP: Office Laptops and Desks"}, []*target{laptops, desks}, desks},
		{"listed twice, no title", mail.InboundEmail{FromAddress: "sales@acme.com", Subject: "Re: RFP"}, []*target{laptops, desks}, nil},
		{"title from unknown sender", mail.InboundEmail{FromAddress: "x@y.com", Subject: "Paper supplies"}, []*target{laptops, foreign}, foreign},
		{"keyword from owner's vendor", mail.InboundEmail{FromAddress: "sales@acme.com", Subject: "Quote"}, []*target{unlisted, foreign}, unlisted},
		{"keyword from vendor of several RFPs", mail.InboundEmail{FromAddress: "sales@acme.com", Subject: "Quote"}, []*target{unlisted, {rfp: &core.RFP{Id: core.NewID(), CreatedBy: f.owner}, vendorEmails: map[string]struct{}{}}}, nil},
		{"keyword from unknown sender", mail.InboundEmail{FromAddress: "x@y.com", Subject: "Quote"}, []*target{laptops, foreign}, nil},
		{"unrelated", mail.InboundEmail{FromAddress: "x@y.com", Subject: "Newsletter"}, []*target{laptops, foreign}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.route(ctx, &tt.email, tt.targets)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want.rfp.Id, got.rfp.Id)
		})
	}
}

func TestBestTitle(t *testing.T) {
	short := &target{rfp: &core.RFP{Title: "Laptops"}}
	long := &target{rfp: &core.RFP{Title: "Office Laptops"}}
	twin := &target{rfp: &core.RFP{Title: "office laptops"}}
	untitled := &target{rfp: &core.RFP{}}
	email := &mail.InboundEmail{Subject: "Re: RFP: Office Laptops"}

	assert.Same(t, long, bestTitle(email, []*target{short, long, untitled}))
	assert.Nil(t, bestTitle(email, []*target{long, twin}), "equal titles are ambiguous")
	assert.Nil(t, bestTitle(&mail.InboundEmail{Subject: "Hello"}, []*target{short, long}))
}

func TestRelevant(t *testing.T) {
	owner := core.NewID()
	rfp := &core.RFP{Title: "Office Chairs", CreatedBy: owner}
	vendors := vendorEmailSet([]*core.Vendor{
		{Email: "Sales@Acme.com", CreatedBy: owner},
		{Email: "spy@other.com", CreatedBy: core.NewID()},
	}, owner)

	tests := []struct {
		name  string
		email mail.InboundEmail
		want  bool
	}{
		{"vendor sender", mail.InboundEmail{FromAddress: "sales@acme.com", Subject: "hi"}, true},
		{"title in subject", mail.InboundEmail{FromAddress: "x@y.com", Subject: "Re: office chairs"}, true},
		{"rfp keyword", mail.InboundEmail{FromAddress: "x@y.com", Subject: "About your RFP"}, true},
		{"proposal keyword", mail.InboundEmail{FromAddress: "x@y.com", Subject: "Our Proposal"}, true},
		{"quote keyword", mail.InboundEmail{FromAddress: "x@y.com", Subject: "QUOTE attached"}, true},
		{"unrelated", mail.InboundEmail{FromAddress: "x@y.com", Subject: "Newsletter"}, false},
		{"another owner's vendor", mail.InboundEmail{FromAddress: "spy@other.com", Subject: "Newsletter"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relevant(&tt.email, rfp, vendors))
		})
	}

	untitled := &core.RFP{}
	assert.False(t, relevant(&mail.InboundEmail{Subject: "Newsletter"}, untitled, nil),
		"an empty title never matches")
}

func TestFingerprint(t *testing.T) {
	rfp := core.NewID()
	a := mail.InboundEmail{MessageID: "abc@x", FromAddress: "a@x"}
	b := mail.InboundEmail{MessageID: "abc@x", FromAddress: "b@x"}
	assert.Equal(t, fingerprint(rfp, &a), fingerprint(rfp, &b))
	assert.NotEqual(t, fingerprint(rfp, &a), fingerprint(core.NewID(), &a))

	c := mail.InboundEmail{FromAddress: "a@x", Subject: "s", Date: time.Unix(100, 0)}
	d := mail.InboundEmail{FromAddress: "a@x", Subject: "s", Date: time.Unix(200, 0)}
	assert.NotEqual(t, fingerprint(rfp, &c), fingerprint(rfp, &d))
}

func TestVendorName(t *testing.T) {
	email := &mail.InboundEmail{FromName: "Display", FromAddress: "a@x.com"}
	assert.Equal(t, "Parsed", vendorName(&core.ParsedProposal{VendorName: " Parsed "}, email))
	assert.Equal(t, "Display", vendorName(&core.ParsedProposal{}, email))
	assert.Equal(t, "a@x.com", vendorName(nil, &mail.InboundEmail{FromAddress: "a@x.com"}))
	assert.Equal(t, unknownVendor, vendorName(nil, &mail.InboundEmail{}))
}
