package api

import (
	"context"
	"time"

	"github.com/poiesic/bidgrid/core"
)

// rfpView is an RFP with its vendor IDs replaced by vendor summaries.
type rfpView struct {
	*core.RFP
	Vendors []core.VendorSummary `json:"vendors"`
}

// proposalView is a proposal with its vendor ID replaced by a summary.
type proposalView struct {
	*core.Proposal
	Vendor *core.VendorSummary `json:"vendor"`
}

// publicRFP is what a vendor sees on the submission page.
type publicRFP struct {
	Id           core.ID        `json:"_id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Requirements []string       `json:"requirements"`
	Quantity     *float64       `json:"quantity,omitempty"`
	Budget       *core.Budget   `json:"budget,omitempty"`
	Deadline     *time.Time     `json:"deadline,omitempty"`
	Specs        map[string]any `json:"specs,omitempty"`
	Status       core.RFPStatus `json:"status"`
}

func newPublicRFP(rfp *core.RFP) publicRFP {
	return publicRFP{
		Id:           rfp.Id,
		Title:        rfp.Title,
		Description:  rfp.Description,
		Requirements: rfp.Requirements,
		Quantity:     rfp.Quantity,
		Budget:       rfp.Budget,
		Deadline:     rfp.Deadline,
		Specs:        rfp.Specs,
		Status:       rfp.Status,
	}
}

// draftView is the structured RFP returned once drafting completes.
type draftView struct {
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Requirements []string       `json:"requirements"`
	Quantity     *float64       `json:"quantity"`
	Budget       *core.Budget   `json:"budget"`
	Deadline     *time.Time     `json:"deadline"`
	Specs        map[string]any `json:"specs"`
}

// vendorSummaries describes owner's vendors among ids.
func (s *Server) vendorSummaries(ctx context.Context, owner core.ID, ids []core.ID) ([]core.VendorSummary, error) {
	vendors, err := s.ownedVendors(ctx, owner, ids)
	if err != nil {
		return nil, err
	}
	out := make([]core.VendorSummary, 0, len(vendors))
	for _, v := range vendors {
		out = append(out, v.Summary())
	}
	return out, nil
}

func (s *Server) rfpView(ctx context.Context, rfp *core.RFP) (*rfpView, error) {
	vendors, err := s.vendorSummaries(ctx, rfp.CreatedBy, rfp.Vendors)
	if err != nil {
		return nil, err
	}
	return &rfpView{RFP: rfp, Vendors: vendors}, nil
}

func (s *Server) proposalViews(ctx context.Context, proposals []*core.Proposal) ([]proposalView, error) {
	var ids []core.ID
	for _, p := range proposals {
		if p.Vendor != "" {
			ids = append(ids, p.Vendor)
		}
	}
	vendors, err := s.deps.Stores.Vendors.GetVendors(ctx, ids...)
	if err != nil {
		return nil, err
	}
	byID := make(map[core.ID]core.VendorSummary, len(vendors))
	for _, v := range vendors {
		byID[v.Id] = v.Summary()
	}

	out := make([]proposalView, 0, len(proposals))
	for _, p := range proposals {
		view := proposalView{Proposal: p}
		if summary, ok := byID[p.Vendor]; ok {
			view.Vendor = &summary
		}
		out = append(out, view)
	}
	return out, nil
}
