package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/poiesic/bidgrid/core"
	"github.com/poiesic/bidgrid/storage"
)

var errAlreadySubmitted = NewAPIError(http.StatusBadRequest, "You have already submitted a proposal for this RFP")

// openRFP loads the RFP named by rfpId for the public submission flow.
func (s *Server) openRFP(r *http.Request) (*core.RFP, error) {
	id, err := parseID(chi.URLParam(r, "rfpId"), "Invalid RFP ID")
	if err != nil {
		return nil, err
	}
	rfp, err := s.deps.Stores.RFPs.GetRFP(r.Context(), id)
	if err != nil {
		return nil, notFound(err, "RFP not found")
	}
	if !rfp.AcceptsProposals() {
		return nil, NewAPIError(http.StatusBadRequest, "This RFP is not accepting proposals")
	}
	return rfp, nil
}

func (s *Server) publicRFP(w http.ResponseWriter, r *http.Request) error {
	rfp, err := s.openRFP(r)
	if err != nil {
		return err
	}
	respond(w, http.StatusOK, newPublicRFP(rfp), "RFP fetched successfully")
	return nil
}

// submitProposal accepts a vendor's web form. The sender is linked to the
// RFP owner's vendor record when one matches the email.
func (s *Server) submitProposal(w http.ResponseWriter, r *http.Request) error {
	if _, err := parseID(chi.URLParam(r, "rfpId"), "Invalid RFP ID"); err != nil {
		return err
	}
	sub, err := readJSON[core.ProposalSubmission](r)
	if err != nil {
		return err
	}
	sub.Normalize()
	if err := sub.Validate(); err != nil {
		return err
	}
	rfp, err := s.openRFP(r)
	if err != nil {
		return err
	}

	ctx := r.Context()
	var vendorID core.ID
	vendor, err := s.deps.Stores.Vendors.FindVendorByEmail(ctx, rfp.CreatedBy, sub.VendorEmail)
	switch {
	case err == nil:
		vendorID = vendor.Id
	case !errors.Is(err, storage.ErrNotFound):
		return err
	}

	if _, err := s.deps.Stores.Proposals.FindProposalByVendorEmail(ctx, rfp.Id, sub.VendorEmail); err == nil {
		return errAlreadySubmitted
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	proposal, err := s.deps.Stores.Proposals.CreateProposal(ctx, sub.Proposal(rfp.Id, vendorID))
	if errors.Is(err, storage.ErrDuplicateKey) {
		return errAlreadySubmitted
	}
	if err != nil {
		return err
	}
	s.logger.Info("proposal submitted", "rfp", rfp.Id, "vendor", sub.VendorEmail)
	respond(w, http.StatusCreated, proposal, "Proposal submitted successfully")
	return nil
}

// ownedProposal loads a proposal whose RFP belongs to the caller. forbidden
// is the message used when it belongs to someone else.
func (s *Server) ownedProposal(r *http.Request, forbidden string) (*core.Proposal, *core.RFP, error) {
	id, err := parseID(chi.URLParam(r, "id"), "Invalid Proposal ID")
	if err != nil {
		return nil, nil, err
	}
	proposal, err := s.deps.Stores.Proposals.GetProposal(r.Context(), id)
	if err != nil {
		return nil, nil, notFound(err, "Proposal not found")
	}
	rfp, err := s.deps.Stores.RFPs.GetRFP(r.Context(), proposal.RFP)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, nil, err
	}
	if rfp == nil || rfp.CreatedBy != requestUser(r).Id {
		return nil, nil, NewAPIError(http.StatusForbidden, forbidden)
	}
	return proposal, rfp, nil
}

func (s *Server) updateProposal(w http.ResponseWriter, r *http.Request) error {
	review, err := readJSON[core.ProposalReview](r)
	if err != nil {
		return err
	}
	if err := review.Validate(); err != nil {
		return err
	}
	proposal, _, err := s.ownedProposal(r, "Not authorized to update this proposal")
	if err != nil {
		return err
	}
	review.Apply(proposal)
	proposal, err = s.deps.Stores.Proposals.UpdateProposal(r.Context(), proposal)
	if err != nil {
		return notFound(err, "Proposal not found")
	}
	respond(w, http.StatusOK, proposal, "Proposal updated successfully")
	return nil
}

// awardProposal awards one proposal, rejects its siblings and closes the RFP.
func (s *Server) awardProposal(w http.ResponseWriter, r *http.Request) error {
	proposal, _, err := s.ownedProposal(r, "Not authorized to award this proposal")
	if err != nil {
		return err
	}
	proposal, err = s.deps.Stores.Proposals.AwardProposal(r.Context(), proposal.Id)
	if err != nil {
		return notFound(err, "Proposal not found")
	}
	respond(w, http.StatusOK, proposal, "Proposal awarded successfully")
	return nil
}
