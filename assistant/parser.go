package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/bidgrid/ai"
	"github.com/poiesic/bidgrid/core"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	proposalSchemaURL = "https://bidgrid.dev/schemas/parsed-proposal.json"
	parseAttempts     = 3
)

// ProposalParser extracts structured proposals from vendor emails.
type ProposalParser struct {
	model  ai.Model
	schema *jsonschema.Schema
	logger *slog.Logger
}

// NewProposalParser creates a ProposalParser backed by model.
func NewProposalParser(model ai.Model) (*ProposalParser, error) {
	schema, err := compileSchema(proposalSchemaURL, proposalSchema)
	if err != nil {
		return nil, err
	}
	return &ProposalParser{
		model:  model,
		schema: schema,
		logger: slog.Default().With("component", "proposal-parser"),
	}, nil
}

func compileSchema(url, source string) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema %s: %w", url, err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema %s: %w", url, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema from %s: %w", url, err)
	}
	return schema, nil
}

// Parse reads content (email body plus attachment text) written in reply to
// rfp. Malformed model output is retried; a failing model call is not.
func (p *ProposalParser) Parse(ctx context.Context, content string, rfp RFPContext) (*core.ParsedProposal, error) {
	temperature := 0.0
	req := ai.Prompt("", buildProposalPrompt(rfp, content))
	req.JSONMode = true
	req.Temperature = &temperature

	var lastErr error
	for attempt := 0; attempt < parseAttempts; attempt++ {
		reply, err := p.model.Generate(ctx, req)
		if err != nil {
			p.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, fmt.Errorf("%w: %w", ErrAIUnavailable, err)
		}

		parsed, err := p.decode(reply)
		if err != nil {
			lastErr = err
			p.logger.Warn("error parsing proposal response",
				"attempt", attempt+1,
				"response", reply,
				"err", err)
			continue
		}
		return parsed, nil
	}

	p.logger.Error("failed to parse proposal response after retries", "err", lastErr)
	return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, lastErr)
}

func (p *ProposalParser) decode(reply string) (*core.ParsedProposal, error) {
	text, err := ai.ExtractJSONObject(reply)
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(text))
	if err != nil {
		return nil, err
	}
	if err := p.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var parsed core.ParsedProposal
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, err
	}
	parsed.Completeness = min(max(parsed.Completeness, 0), 100)
	if parsed.Price != nil && parsed.Price.Currency == "" {
		parsed.Price.Currency = core.DefaultCurrency
	}
	return &parsed, nil
}
