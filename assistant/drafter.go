package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/bidgrid/ai"
	"github.com/poiesic/bidgrid/core"
)

// Drafter runs the RFP drafting conversation.
type Drafter struct {
	model  ai.Model
	now    func() time.Time
	logger *slog.Logger
}

// NewDrafter creates a Drafter backed by model.
func NewDrafter(model ai.Model) *Drafter {
	return &Drafter{
		model:  model,
		now:    time.Now,
		logger: slog.Default().With("component", "drafter"),
	}
}

// Chat sends the conversation so far and returns the assistant's reply.
func (d *Drafter) Chat(ctx context.Context, history []core.ChatMessage) (string, error) {
	req := ai.Request{
		System:   buildDraftingPrompt(d.now().UTC()),
		Messages: make([]ai.Message, 0, len(history)),
	}
	for _, msg := range history {
		role := ai.RoleHuman
		if msg.Role == core.ChatRoleAssistant {
			role = ai.RoleAI
		}
		req.Messages = append(req.Messages, ai.Message{Role: role, Content: msg.Content})
	}

	reply, err := d.model.Generate(ctx, req)
	if err != nil {
		d.logger.Error("drafting call failed", "err", err)
		return "", fmt.Errorf("%w: %w", ErrAIUnavailable, err)
	}
	return reply, nil
}

// DraftBudget is the budget block of a draft.
type DraftBudget struct {
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Currency string   `json:"currency"`
}

// DraftRFP is the structured RFP the model emits once drafting is complete.
type DraftRFP struct {
	IsComplete   bool           `json:"isComplete"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Requirements []string       `json:"requirements"`
	Quantity     *float64       `json:"quantity"`
	Budget       *DraftBudget   `json:"budget"`
	Deadline     string         `json:"deadline"`
	Specs        map[string]any `json:"specs"`
}

// ParseRFPFromResponse extracts the draft from the first ```json block of a
// drafting reply. Returns nil unless the block parses and marks itself complete.
func ParseRFPFromResponse(content string) *DraftRFP {
	body, ok := ai.ExtractFencedJSON(content)
	if !ok {
		return nil
	}
	var draft DraftRFP
	if err := json.Unmarshal([]byte(body), &draft); err != nil {
		slog.Default().With("component", "drafter").Warn("failed to parse RFP JSON", "err", err)
		return nil
	}
	if !draft.IsComplete {
		return nil
	}
	return &draft
}

// Apply copies the draft's fields onto rfp and marks it complete. The draft
// replaces the budget and deadline outright: a missing budget or a deadline
// that is not a recognizable date clears the old value.
func (d *DraftRFP) Apply(rfp *core.RFP) {
	rfp.Title = strings.TrimSpace(d.Title)
	rfp.Description = strings.TrimSpace(d.Description)
	rfp.Requirements = d.Requirements
	rfp.Quantity = d.Quantity
	rfp.Specs = d.Specs
	rfp.IsComplete = true
	rfp.Budget = nil
	rfp.Deadline = nil

	if d.Budget != nil {
		currency := strings.ToUpper(strings.TrimSpace(d.Budget.Currency))
		if currency == "" {
			currency = core.DefaultCurrency
		}
		rfp.Budget = &core.Budget{Min: d.Budget.Min, Max: d.Budget.Max, Currency: currency}
	}
	if d.Deadline != "" {
		if deadline, err := core.ParseDate(d.Deadline); err == nil {
			rfp.Deadline = &deadline
		}
	}
}
