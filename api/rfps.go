package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/poiesic/bidgrid/assistant"
	"github.com/poiesic/bidgrid/core"
	"github.com/poiesic/bidgrid/mail"
)

type chatReply struct {
	RFPId      core.ID    `json:"rfpId"`
	Message    string     `json:"message"`
	IsComplete bool       `json:"isComplete"`
	RFP        *draftView `json:"rfp"`
}

type sendRequest struct {
	VendorIds []string `json:"vendorIds"`
}

type sendReply struct {
	RFP          *rfpView         `json:"rfp"`
	EmailResults *mail.SendReport `json:"emailResults"`
}

// ownedRFP loads the caller's RFP named by the path parameter param.
func (s *Server) ownedRFP(r *http.Request, param string) (*core.RFP, error) {
	id, err := parseID(chi.URLParam(r, param), "Invalid RFP ID")
	if err != nil {
		return nil, err
	}
	rfp, err := s.deps.Stores.RFPs.GetOwnedRFP(r.Context(), requestUser(r).Id, id)
	if err != nil {
		return nil, notFound(err, "RFP not found")
	}
	return rfp, nil
}

// chat runs one drafting turn. The conversation is stored only after the
// model answers, so a failed call leaves no trace.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) error {
	in, err := readJSON[core.ChatInput](r)
	if err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}

	user := requestUser(r)
	var rfp *core.RFP
	if in.RFPId != "" {
		id, _ := core.ParseID(in.RFPId)
		rfp, err = s.deps.Stores.RFPs.GetOwnedRFP(r.Context(), user.Id, id)
		if err != nil {
			return notFound(err, "RFP not found")
		}
	} else {
		rfp = &core.RFP{CreatedBy: user.Id, Status: core.RFPStatusDrafting}
	}

	rfp.ChatHistory = append(rfp.ChatHistory, core.ChatMessage{
		Role:      core.ChatRoleUser,
		Content:   in.Message,
		Timestamp: time.Now().UTC(),
	})
	reply, err := s.deps.Drafter.Chat(r.Context(), rfp.ChatHistory)
	if err != nil {
		return err
	}
	rfp.ChatHistory = append(rfp.ChatHistory, core.ChatMessage{
		Role:      core.ChatRoleAssistant,
		Content:   reply,
		Timestamp: time.Now().UTC(),
	})

	if draft := assistant.ParseRFPFromResponse(reply); draft != nil {
		draft.Apply(rfp)
		if rfp.Status == core.RFPStatusDrafting {
			rfp.Status = core.RFPStatusDraft
		}
	}

	if rfp.Id == "" {
		rfp, err = s.deps.Stores.RFPs.CreateRFP(r.Context(), rfp)
	} else {
		rfp, err = s.deps.Stores.RFPs.UpdateRFP(r.Context(), rfp)
	}
	if err != nil {
		return err
	}

	out := chatReply{RFPId: rfp.Id, Message: reply, IsComplete: rfp.IsComplete}
	if rfp.IsComplete {
		out.RFP = &draftView{
			Title:        rfp.Title,
			Description:  rfp.Description,
			Requirements: rfp.Requirements,
			Quantity:     rfp.Quantity,
			Budget:       rfp.Budget,
			Deadline:     rfp.Deadline,
			Specs:        rfp.Specs,
		}
	}
	respond(w, http.StatusOK, out, "Message processed")
	return nil
}

func (s *Server) listRFPs(w http.ResponseWriter, r *http.Request) error {
	status := core.RFPStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		return NewAPIError(http.StatusBadRequest, "Invalid status")
	}
	rfps, err := s.deps.Stores.RFPs.ListRFPs(r.Context(), requestUser(r).Id, status)
	if err != nil {
		return err
	}

	views := make([]*rfpView, 0, len(rfps))
	for _, rfp := range rfps {
		rfp.ChatHistory = nil
		view, err := s.rfpView(r.Context(), rfp)
		if err != nil {
			return err
		}
		views = append(views, view)
	}
	respond(w, http.StatusOK, views, "RFPs fetched successfully")
	return nil
}

func (s *Server) getRFP(w http.ResponseWriter, r *http.Request) error {
	rfp, err := s.ownedRFP(r, "id")
	if err != nil {
		return err
	}
	view, err := s.rfpView(r.Context(), rfp)
	if err != nil {
		return err
	}
	respond(w, http.StatusOK, view, "RFP fetched successfully")
	return nil
}

func (s *Server) updateRFP(w http.ResponseWriter, r *http.Request) error {
	id, err := parseID(chi.URLParam(r, "id"), "Invalid RFP ID")
	if err != nil {
		return err
	}
	patch, err := readJSON[core.RFPPatch](r)
	if err != nil {
		return err
	}
	if err := patch.Validate(); err != nil {
		return err
	}

	rfp, err := s.deps.Stores.RFPs.GetOwnedRFP(r.Context(), requestUser(r).Id, id)
	if err != nil {
		return notFound(err, "RFP not found")
	}
	patch.Apply(rfp)
	if patch.Vendors != nil {
		vendors, err := s.ownedVendors(r.Context(), rfp.CreatedBy, rfp.Vendors)
		if err != nil {
			return err
		}
		rfp.Vendors = vendorIDs(vendors)
	}
	rfp, err = s.deps.Stores.RFPs.UpdateRFP(r.Context(), rfp)
	if err != nil {
		return notFound(err, "RFP not found")
	}
	view, err := s.rfpView(r.Context(), rfp)
	if err != nil {
		return err
	}
	respond(w, http.StatusOK, view, "RFP updated successfully")
	return nil
}

func (s *Server) deleteRFP(w http.ResponseWriter, r *http.Request) error {
	id, err := parseID(chi.URLParam(r, "id"), "Invalid RFP ID")
	if err != nil {
		return err
	}
	if err := s.deps.Stores.RFPs.DeleteRFP(r.Context(), requestUser(r).Id, id); err != nil {
		return notFound(err, "RFP not found")
	}
	respond(w, http.StatusOK, nil, "RFP deleted successfully")
	return nil
}

func (s *Server) listRFPProposals(w http.ResponseWriter, r *http.Request) error {
	rfp, err := s.ownedRFP(r, "id")
	if err != nil {
		return err
	}
	proposals, err := s.deps.Stores.Proposals.ListProposals(r.Context(), rfp.Id)
	if err != nil {
		return err
	}
	views, err := s.proposalViews(r.Context(), proposals)
	if err != nil {
		return err
	}
	respond(w, http.StatusOK, map[string]any{"rfp": rfp, "proposals": views}, "Proposals fetched successfully")
	return nil
}

var errIncomplete = NewAPIError(http.StatusBadRequest,
	"RFP is not complete. Continue chatting to gather all required information.")

func (s *Server) finalizeRFP(w http.ResponseWriter, r *http.Request) error {
	rfp, err := s.ownedRFP(r, "id")
	if err != nil {
		return err
	}
	if !rfp.IsComplete {
		return errIncomplete
	}
	if len(rfp.Vendors) == 0 {
		return NewAPIError(http.StatusBadRequest, "Please select at least one vendor before finalizing")
	}

	rfp.Status = core.RFPStatusSent
	rfp, err = s.deps.Stores.RFPs.UpdateRFP(r.Context(), rfp)
	if err != nil {
		return err
	}
	respond(w, http.StatusOK, rfp, "RFP finalized and ready to send")
	return nil
}

// sendRFP emails the RFP to the requested vendors, or to the vendors already
// attached to it, and marks it sent when at least one email went out.
func (s *Server) sendRFP(w http.ResponseWriter, r *http.Request) error {
	rfp, err := s.ownedRFP(r, "id")
	if err != nil {
		return err
	}
	req, err := readJSON[sendRequest](r)
	if err != nil {
		return err
	}
	if !rfp.IsComplete {
		return errIncomplete
	}

	ids := rfp.Vendors
	if len(req.VendorIds) > 0 {
		ids = make([]core.ID, 0, len(req.VendorIds))
		for _, raw := range req.VendorIds {
			id, err := parseID(raw, "Invalid vendor ID")
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return NewAPIError(http.StatusBadRequest, "Please select at least one vendor")
	}

	user := requestUser(r)
	vendors, err := s.ownedVendors(r.Context(), user.Id, ids)
	if err != nil {
		return err
	}
	if len(vendors) == 0 {
		return NewAPIError(http.StatusBadRequest, "No valid vendors found")
	}

	sender := user.FullName
	if sender == "" {
		sender = user.Username
	}
	report, err := s.deps.Mailer.SendRFP(r.Context(), rfp, vendors, sender)
	if err != nil {
		return err
	}
	if report.TotalSent == 0 {
		apiErr := NewAPIError(http.StatusBadGateway, "Failed to send RFP to any vendor")
		for _, res := range report.Results {
			apiErr.Errors = append(apiErr.Errors, fmt.Sprintf("%s: %s", res.Email, res.Error))
		}
		return apiErr
	}

	now := time.Now().UTC()
	rfp.Vendors = vendorIDs(vendors)
	rfp.Status = core.RFPStatusSent
	rfp.SentAt = &now
	rfp, err = s.deps.Stores.RFPs.UpdateRFP(r.Context(), rfp)
	if err != nil {
		return err
	}
	view, err := s.rfpView(r.Context(), rfp)
	if err != nil {
		return err
	}
	respond(w, http.StatusOK, sendReply{RFP: view, EmailResults: report},
		fmt.Sprintf("RFP sent to %d of %d vendors", report.TotalSent, len(vendors)))
	return nil
}

// ownedVendors loads ids, dropping any vendor that belongs to someone else.
func vendorIDs(vendors []*core.Vendor) []core.ID {
	ids := make([]core.ID, 0, len(vendors))
	for _, v := range vendors {
		ids = append(ids, v.Id)
	}
	return ids
}

func (s *Server) ownedVendors(ctx context.Context, owner core.ID, ids []core.ID) ([]*core.Vendor, error) {
	vendors, err := s.deps.Stores.Vendors.GetVendors(ctx, ids...)
	if err != nil {
		return nil, err
	}
	owned := vendors[:0]
	for _, v := range vendors {
		if v.CreatedBy == owner {
			owned = append(owned, v)
		}
	}
	return owned, nil
}
