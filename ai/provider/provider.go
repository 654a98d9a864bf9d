// Package provider selects an ai.Model implementation from configuration.
package provider

import (
	"context"
	"fmt"

	"github.com/poiesic/bidgrid/ai"
	"github.com/poiesic/bidgrid/ai/gemini"
	"github.com/poiesic/bidgrid/ai/openai"
)

// NewModel builds the model named by config.Provider.
func NewModel(ctx context.Context, config *ai.Config) (ai.Model, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Provider {
	case ai.ProviderGemini:
		return gemini.NewModel(ctx, config)
	case ai.ProviderOpenAI:
		return openai.NewModel(config)
	}
	return nil, fmt.Errorf("%w: %s", ai.ErrUnknownProvider, config.Provider)
}
