package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/bidgrid/core"
	"github.com/poiesic/bidgrid/mail"
	"github.com/poiesic/bidgrid/storage"
)

var subjectKeywords = []string{"rfp", "proposal", "quote"}

// relevant reports whether email looks like a reply to rfp: it comes from one
// of vendorEmails, or its subject names the RFP or a proposal keyword.
func relevant(email *mail.InboundEmail, rfp *core.RFP, vendorEmails map[string]struct{}) bool {
	if _, ok := vendorEmails[strings.ToLower(email.FromAddress)]; ok {
		return true
	}
	return titleMatches(email, rfp) || hasKeyword(email)
}

func titleMatches(email *mail.InboundEmail, rfp *core.RFP) bool {
	title := strings.ToLower(strings.TrimSpace(rfp.Title))
	return title != "" && strings.Contains(strings.ToLower(email.Subject), title)
}

func hasKeyword(email *mail.InboundEmail) bool {
	subject := strings.ToLower(email.Subject)
	for _, kw := range subjectKeywords {
		if strings.Contains(subject, kw) {
			return true
		}
	}
	return false
}

// target is an RFP with the addresses of its vendors.
type target struct {
	rfp          *core.RFP
	vendorEmails map[string]struct{}
}

// route picks the one RFP an email replies to, or nil when none fits or the
// choice is ambiguous. In order of preference:
//   - the RFP listing the sender as a vendor, narrowed by title when the
//     sender is on several;
//   - the RFP whose title is the longest one found in the subject;
//   - on a subject keyword, the only RFP of the one owner that has the
//     sender in their vendor list.
func (p *Pipeline) route(ctx context.Context, email *mail.InboundEmail, targets []*target) (*target, error) {
	addr := strings.ToLower(email.FromAddress)
	var listed []*target
	for _, t := range targets {
		if _, ok := t.vendorEmails[addr]; ok {
			listed = append(listed, t)
		}
	}
	switch len(listed) {
	case 0:
	case 1:
		return listed[0], nil
	default:
		return bestTitle(email, listed), nil
	}

	if t := bestTitle(email, targets); t != nil {
		return t, nil
	}
	if addr == "" || !hasKeyword(email) {
		return nil, nil
	}

	known := make(map[core.ID]bool)
	var owned []*target
	for _, t := range targets {
		owner := t.rfp.CreatedBy
		isVendor, checked := known[owner]
		if !checked {
			_, err := p.repos.Vendors.FindVendorByEmail(ctx, owner, addr)
			switch {
			case err == nil:
				isVendor = true
			case errors.Is(err, storage.ErrNotFound):
			default:
				return nil, fmt.Errorf("look up sender: %w", err)
			}
			known[owner] = isVendor
		}
		if isVendor {
			owned = append(owned, t)
		}
	}
	if len(owned) == 1 {
		return owned[0], nil
	}
	return nil, nil
}

// bestTitle returns the target with the longest title contained in the
// subject. A tie at that length is ambiguous and yields nil.
func bestTitle(email *mail.InboundEmail, targets []*target) *target {
	var (
		best   *target
		length int
		tie    bool
	)
	for _, t := range targets {
		if !titleMatches(email, t.rfp) {
			continue
		}
		n := len(strings.TrimSpace(t.rfp.Title))
		switch {
		case n > length:
			best, length, tie = t, n, false
		case n == length:
			tie = true
		}
	}
	if tie {
		return nil
	}
	return best
}

// fingerprint identifies email as a reply to rfp. The Message-ID is used
// when present, otherwise sender, subject and date.
func fingerprint(rfp core.ID, email *mail.InboundEmail) string {
	if email.MessageID != "" {
		return core.Fingerprint(rfp.String(), email.MessageID)
	}
	return core.Fingerprint(rfp.String(), email.FromAddress, email.Subject,
		strconv.FormatInt(email.Date.Unix(), 10))
}

// vendorEmailSet returns the lowercased addresses of owner's vendors.
func vendorEmailSet(vendors []*core.Vendor, owner core.ID) map[string]struct{} {
	set := make(map[string]struct{}, len(vendors))
	for _, v := range vendors {
		if v.CreatedBy != owner {
			continue
		}
		set[strings.ToLower(v.Email)] = struct{}{}
	}
	return set
}
