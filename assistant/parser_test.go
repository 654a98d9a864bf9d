package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/bidgrid/ai"
	"github.com/poiesic/bidgrid/ai/mock"
	"github.com/poiesic/bidgrid/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() RFPContext {
	qty := 20.0
	maxBudget := 30000.0
	return RFPContext{
		Title:        "Office Laptops",
		Description:  "Laptops for sales",
		Requirements: []string{"16GB RAM"},
		Budget:       &core.Budget{Max: &maxBudget, Currency: "USD"},
		Quantity:     &qty,
	}
}

func TestProposalParser_Parse(t *testing.T) {
	reply := "```json\n" + `{
		"vendorName": "Acme Corp",
		"price": {"amount": 24000, "breakdown": "$1,200 x 20"},
		"timeline": "2 weeks",
		"terms": ["Net 30"],
		"keyPoints": ["Fast delivery"],
		"completeness": 140,
		"summary": "Solid offer."
	}` + "\n```"
	model := mock.NewMockModel().WithResponses(reply)
	parser, err := NewProposalParser(model)
	require.NoError(t, err)

	parsed, err := parser.Parse(context.Background(), "We can do 20 laptops for $24,000.", testContext())
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", parsed.VendorName)
	require.NotNil(t, parsed.Price)
	assert.Equal(t, 24000.0, parsed.Price.Amount)
	assert.Equal(t, "USD", parsed.Price.Currency)
	assert.Equal(t, 100.0, parsed.Completeness, "completeness is clamped")
	assert.Equal(t, []string{"Net 30"}, parsed.Terms)

	req := model.LastRequest()
	assert.True(t, req.JSONMode)
	require.NotNil(t, req.Temperature)
	prompt := req.Messages[0].Content
	assert.Contains(t, prompt, "Title: Office Laptops")
	assert.Contains(t, prompt, `Requirements: ["16GB RAM"]`)
	assert.Contains(t, prompt, "Quantity: 20")
	assert.Contains(t, prompt, "We can do 20 laptops for $24,000.")
}

func TestProposalParser_RetriesMalformed(t *testing.T) {
	model := mock.NewMockModel().WithResponses(
		"sorry, I can't",
		`{"vendorName": 42}`,
		`{"vendorName": "Beta", completeness": 60}`,
	)
	parser, err := NewProposalParser(model)
	require.NoError(t, err)

	parsed, err := parser.Parse(context.Background(), "text", RFPContext{})
	require.NoError(t, err)
	assert.Equal(t, "Beta", parsed.VendorName)
	assert.Equal(t, 60.0, parsed.Completeness)
	assert.Equal(t, 3, model.CallCount())
}

func TestProposalParser_GivesUp(t *testing.T) {
	model := mock.NewMockModel().WithGenerateFunc(func(ctx context.Context, req ai.Request) (string, error) {
		return "no json", nil
	})
	parser, err := NewProposalParser(model)
	require.NoError(t, err)

	_, err = parser.Parse(context.Background(), "text", RFPContext{})
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.Equal(t, parseAttempts, model.CallCount())
}

func TestProposalParser_ModelError(t *testing.T) {
	model := mock.NewMockModel().WithGenerateFunc(func(ctx context.Context, req ai.Request) (string, error) {
		return "", errors.New("down")
	})
	parser, err := NewProposalParser(model)
	require.NoError(t, err)

	_, err = parser.Parse(context.Background(), "text", RFPContext{})
	assert.ErrorIs(t, err, ErrAIUnavailable)
	assert.Equal(t, 1, model.CallCount())
}

func TestRFPContextDefaults(t *testing.T) {
	c := ContextFor(&core.RFP{Title: "Chairs"})
	prompt := buildProposalPrompt(c, "body")
	assert.Contains(t, prompt, "Requirements: []")
	assert.Contains(t, prompt, "Budget: {}")
	assert.Contains(t, prompt, "Quantity: Not specified")
}
