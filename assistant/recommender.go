package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/bidgrid/ai"
	"github.com/poiesic/bidgrid/core"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const recommendationSchemaURL = "https://bidgrid.dev/schemas/recommendation.json"

const recommendationSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "comparison": {"type": ["object", "null"]},
    "scores": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "vendorName": {"type": "string"},
          "pros": {"type": ["array", "null"], "items": {"type": "string"}},
          "cons": {"type": ["array", "null"], "items": {"type": "string"}}
        }
      }
    },
    "recommendation": {
      "type": ["object", "null"],
      "properties": {
        "winner": {"type": ["string", "null"]},
        "confidence": {"type": ["string", "null"]},
        "risks": {"type": ["array", "null"], "items": {"type": "string"}},
        "negotiationTips": {"type": ["array", "null"], "items": {"type": "string"}}
      }
    },
    "summary": {"type": ["string", "null"]}
  },
  "required": ["recommendation"]
}`

// NoProposalsMessage is reported when there is nothing to compare.
const NoProposalsMessage = "No proposals to compare"

// VendorAmount names a vendor and a quoted amount.
type VendorAmount struct {
	Vendor string  `json:"vendor"`
	Amount float64 `json:"amount"`
}

// VendorTimeline names a vendor and its delivery timeline.
type VendorTimeline struct {
	Vendor   string `json:"vendor"`
	Timeline string `json:"timeline"`
}

// AIComparison is the model's side-by-side view of the proposals.
type AIComparison struct {
	PriceRange      *PriceRange     `json:"priceRange,omitempty"`
	LowestPrice     *VendorAmount   `json:"lowestPrice,omitempty"`
	FastestDelivery *VendorTimeline `json:"fastestDelivery,omitempty"`
	MostComplete    *VendorScore    `json:"mostComplete,omitempty"`
	KeyDifferences  []string        `json:"keyDifferences,omitempty"`
}

// ScoreCard is the model's assessment of a single vendor.
type ScoreCard struct {
	VendorName        string   `json:"vendorName"`
	OverallScore      float64  `json:"overallScore"`
	PriceScore        float64  `json:"priceScore"`
	TimelineScore     float64  `json:"timelineScore"`
	CompletenessScore float64  `json:"completenessScore"`
	Pros              []string `json:"pros,omitempty"`
	Cons              []string `json:"cons,omitempty"`
}

// Verdict is the model's pick.
type Verdict struct {
	Winner             string   `json:"winner"`
	WinnerEmail        string   `json:"winnerEmail,omitempty"`
	Confidence         string   `json:"confidence,omitempty"`
	Reason             string   `json:"reason,omitempty"`
	SecondChoice       string   `json:"secondChoice,omitempty"`
	SecondChoiceReason string   `json:"secondChoiceReason,omitempty"`
	Risks              []string `json:"risks,omitempty"`
	NegotiationTips    []string `json:"negotiationTips,omitempty"`
}

// Recommendation is the full ranking result.
type Recommendation struct {
	Comparison     *AIComparison `json:"comparison"`
	Scores         []ScoreCard   `json:"scores,omitempty"`
	Recommendation *Verdict      `json:"recommendation"`
	Summary        string        `json:"summary,omitempty"`
	Message        string        `json:"message,omitempty"`
}

// proposalSummary is what the model sees of each proposal.
type proposalSummary struct {
	Index        int         `json:"index"`
	VendorName   string      `json:"vendorName"`
	VendorEmail  string      `json:"vendorEmail"`
	Price        *core.Price `json:"price"`
	Timeline     string      `json:"timeline"`
	Completeness float64     `json:"completeness"`
	Terms        []string    `json:"terms"`
	Conditions   []string    `json:"conditions"`
	Summary      string      `json:"summary"`
	KeyPoints    []string    `json:"keyPoints"`
}

func summarize(proposals []*core.Proposal) []proposalSummary {
	out := make([]proposalSummary, 0, len(proposals))
	for i, p := range proposals {
		s := proposalSummary{
			Index:        i + 1,
			VendorName:   p.DisplayName(),
			VendorEmail:  p.VendorEmail,
			Price:        &p.Price,
			Timeline:     p.Timeline,
			Completeness: p.EffectiveCompleteness(),
			Terms:        p.Terms,
			Conditions:   []string{},
			KeyPoints:    []string{},
		}
		if pd := p.ParsedData; pd != nil {
			if pd.Price != nil {
				s.Price = pd.Price
			}
			if pd.Timeline != "" {
				s.Timeline = pd.Timeline
			}
			if len(pd.Terms) > 0 {
				s.Terms = pd.Terms
			}
			if pd.Conditions != nil {
				s.Conditions = pd.Conditions
			}
			if pd.KeyPoints != nil {
				s.KeyPoints = pd.KeyPoints
			}
			s.Summary = pd.Summary
		}
		if s.Terms == nil {
			s.Terms = []string{}
		}
		out = append(out, s)
	}
	return out
}

// Recommender ranks proposals with a model.
type Recommender struct {
	model  ai.Model
	schema *jsonschema.Schema
	logger *slog.Logger
}

// NewRecommender creates a Recommender backed by model.
func NewRecommender(model ai.Model) (*Recommender, error) {
	schema, err := compileSchema(recommendationSchemaURL, recommendationSchema)
	if err != nil {
		return nil, err
	}
	return &Recommender{
		model:  model,
		schema: schema,
		logger: slog.Default().With("component", "recommender"),
	}, nil
}

// Recommend compares proposals submitted for rfp and picks a winner.
// An empty slice yields a Recommendation carrying only NoProposalsMessage.
func (r *Recommender) Recommend(ctx context.Context, proposals []*core.Proposal, rfp RFPContext) (*Recommendation, error) {
	if len(proposals) == 0 {
		return &Recommendation{Message: NoProposalsMessage}, nil
	}

	summaries, err := json.MarshalIndent(summarize(proposals), "", "  ")
	if err != nil {
		return nil, err
	}
	req := ai.Prompt("", buildRecommendationPrompt(rfp, string(summaries)))
	req.JSONMode = true

	var lastErr error
	for attempt := 0; attempt < parseAttempts; attempt++ {
		reply, err := r.model.Generate(ctx, req)
		if err != nil {
			r.logger.Error("failed to generate recommendation", "attempt", attempt+1, "err", err)
			return nil, fmt.Errorf("%w: %w", ErrAIUnavailable, err)
		}

		rec, err := r.decode(reply)
		if err != nil {
			lastErr = err
			r.logger.Warn("error parsing recommendation", "attempt", attempt+1, "err", err)
			continue
		}
		r.logger.Debug("generated recommendation", "proposals", len(proposals))
		return rec, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, lastErr)
}

func (r *Recommender) decode(reply string) (*Recommendation, error) {
	text, err := ai.ExtractJSONObject(reply)
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(text))
	if err != nil {
		return nil, err
	}
	if err := r.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	var rec Recommendation
	if err := json.Unmarshal([]byte(text), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// RecommendationKey identifies a recommendation for the exact RFP revision
// and set of proposals it was computed from. Editing the RFP or any
// proposal changes the key.
func RecommendationKey(rfp *core.RFP, proposals []*core.Proposal) string {
	parts := make([]string, 0, len(proposals)+1)
	for _, p := range proposals {
		parts = append(parts, p.Id.String()+"@"+p.UpdatedAt.UTC().Format(time.RFC3339Nano))
	}
	slices.Sort(parts)
	parts = append(parts, "rfp@"+rfp.UpdatedAt.UTC().Format(time.RFC3339Nano))
	return "recommendation:" + rfp.Id.String() + ":" + core.Fingerprint(parts...)
}
