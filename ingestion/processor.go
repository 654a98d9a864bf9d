// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/bidgrid/assistant"
	"github.com/poiesic/bidgrid/core"
	"github.com/poiesic/bidgrid/mail"
	"github.com/poiesic/bidgrid/storage"
)

const unknownVendor = "Unknown Vendor"

// ProposalParser extracts proposal fields from a vendor's reply.
type ProposalParser interface {
	Parse(ctx context.Context, content string, rfp assistant.RFPContext) (*core.ParsedProposal, error)
}

// emailProcessor turns a single inbound email into a stored proposal.
type emailProcessor struct {
	vendors   storage.VendorRepository
	proposals storage.ProposalRepository
	parser    ProposalParser
	logger    *slog.Logger
}

// process parses email and stores it as a proposal for rfp.
// A reply the model could not structure is still stored, without parsed data.
func (e *emailProcessor) process(ctx context.Context, rfp *core.RFP, email *mail.InboundEmail) (*core.Proposal, error) {
	sender := strings.ToLower(email.FromAddress)

	pdfs := mail.ExtractFromAttachments(email.Attachments)
	body := email.Body()
	content := mail.CombineText(body, pdfs)

	parsed, err := e.parser.Parse(ctx, content, assistant.ContextFor(rfp))
	if err != nil {
		if !errors.Is(err, assistant.ErrInvalidResponse) {
			return nil, fmt.Errorf("parse reply from %s: %w", sender, err)
		}
		e.logger.Warn("could not structure reply, storing it unparsed", "from", sender, "err", err)
	}

	proposal := &core.Proposal{
		RFP:             rfp.Id,
		VendorEmail:     sender,
		VendorName:      vendorName(parsed, email),
		Price:           core.Price{Amount: 0, Currency: core.DefaultCurrency},
		Source:          core.ProposalSourceEmail,
		OriginalEmail:   body,
		EmailSubject:    email.Subject,
		AttachmentTexts: mail.Texts(pdfs),
		ParsedData:      parsed,
		Status:          core.ProposalStatusParsed,
	}
	if parsed != nil {
		if parsed.Price != nil {
			proposal.Price = *parsed.Price
		}
		proposal.Timeline = parsed.Timeline
		proposal.Terms = parsed.Terms
		proposal.Completeness = parsed.Completeness
		proposal.AIScore = parsed.Completeness
		proposal.AIAnalysis = parsed.Summary
		if d, err := core.ParseDate(parsed.DeliveryDate); err == nil {
			proposal.DeliveryDate = &d
		}
	}

	vendor, err := e.vendors.FindVendorByEmail(ctx, rfp.CreatedBy, sender)
	switch {
	case err == nil:
		proposal.Vendor = vendor.Id
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("look up vendor %s: %w", sender, err)
	}

	created, err := e.proposals.CreateProposal(ctx, proposal)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil, errAlreadyResponded
	}
	if err != nil {
		return nil, fmt.Errorf("store proposal from %s: %w", sender, err)
	}
	return created, nil
}

func vendorName(parsed *core.ParsedProposal, email *mail.InboundEmail) string {
	if parsed != nil && strings.TrimSpace(parsed.VendorName) != "" {
		return strings.TrimSpace(parsed.VendorName)
	}
	if name := email.SenderName(); name != "" {
		return name
	}
	return unknownVendor
}
