package api

import (
	"fmt"
	"net/http"

	"github.com/poiesic/bidgrid/assistant"
	"github.com/poiesic/bidgrid/core"
)

type rfpHeader struct {
	Id     core.ID        `json:"_id"`
	Title  string         `json:"title"`
	Status core.RFPStatus `json:"status"`
}

type recommendationReply struct {
	RFP             rfpHeader                 `json:"rfp"`
	ProposalCount   int                       `json:"proposalCount"`
	QuickComparison *assistant.Comparison     `json:"quickComparison"`
	Recommendation  *assistant.Recommendation `json:"recommendation"`
}

func (s *Server) ingest(w http.ResponseWriter, r *http.Request) error {
	rfp, err := s.ownedRFP(r, "rfpId")
	if err != nil {
		return err
	}
	result, err := s.deps.Ingester.IngestRFP(r.Context(), rfp.CreatedBy, rfp.Id)
	if err != nil {
		return notFound(err, "RFP not found")
	}
	if result.Proposals == nil {
		result.Proposals = []*core.Proposal{}
	}
	message := fmt.Sprintf("Processed %d new proposals from emails", result.Processed)
	if result.Total == 0 {
		message = "No new vendor emails found"
	}
	respond(w, http.StatusOK, result, message)
	return nil
}

// recommendation ranks the RFP's proposals. Results are cached per proposal
// set; a failed model call yields a null recommendation next to the
// comparison computed locally.
func (s *Server) recommendation(w http.ResponseWriter, r *http.Request) error {
	rfp, err := s.ownedRFP(r, "rfpId")
	if err != nil {
		return err
	}
	ctx := r.Context()
	proposals, err := s.deps.Stores.Proposals.ListProposals(ctx, rfp.Id)
	if err != nil {
		return err
	}
	if len(proposals) == 0 {
		respond(w, http.StatusOK, map[string]any{
			"recommendation": nil,
			"message":        "No proposals to analyze",
		}, "No proposals found")
		return nil
	}

	logger := s.logger.With("rfp", rfp.Id)
	key := assistant.RecommendationKey(rfp, proposals)
	rec, hit, err := s.deps.Cache.Get(ctx, key)
	if err != nil {
		logger.Warn("recommendation cache read failed", "err", err)
	}
	if !hit {
		logger.Info("generating recommendation", "proposals", len(proposals))
		rec, err = s.deps.Recommender.Recommend(ctx, proposals, assistant.ContextFor(rfp))
		if err != nil {
			logger.Error("recommendation failed", "err", err)
		} else if err := s.deps.Cache.Set(ctx, key, rec); err != nil {
			logger.Warn("recommendation cache write failed", "err", err)
		}
	}

	respond(w, http.StatusOK, recommendationReply{
		RFP:             rfpHeader{Id: rfp.Id, Title: rfp.Title, Status: rfp.Status},
		ProposalCount:   len(proposals),
		QuickComparison: assistant.QuickComparison(proposals),
		Recommendation:  rec,
	}, "Recommendation generated successfully")
	return nil
}

func (s *Server) proposalsAnalysis(w http.ResponseWriter, r *http.Request) error {
	rfp, err := s.ownedRFP(r, "rfpId")
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
