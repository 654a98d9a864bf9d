package assistant

import (
	"encoding/json"
	"strconv"

	"github.com/poiesic/bidgrid/core"
)

// RFPContext is the part of an RFP shown to the model when it reads or
// ranks proposals.
type RFPContext struct {
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Requirements []string     `json:"requirements"`
	Budget       *core.Budget `json:"budget"`
	Quantity     *float64     `json:"quantity"`
}

// ContextFor extracts the prompt context from rfp.
func ContextFor(rfp *core.RFP) RFPContext {
	return RFPContext{
		Title:        rfp.Title,
		Description:  rfp.Description,
		Requirements: rfp.Requirements,
		Budget:       rfp.Budget,
		Quantity:     rfp.Quantity,
	}
}

func (c RFPContext) requirementsJSON() string {
	if len(c.Requirements) == 0 {
		return "[]"
	}
	return mustJSON(c.Requirements)
}

func (c RFPContext) budgetJSON() string {
	if c.Budget == nil {
		return "{}"
	}
	return mustJSON(c.Budget)
}

func (c RFPContext) quantityText() string {
	if c.Quantity == nil || *c.Quantity == 0 {
		return "Not specified"
	}
	return strconv.FormatFloat(*c.Quantity, 'f', -1, 64)
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
