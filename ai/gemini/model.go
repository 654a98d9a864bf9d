package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/bidgrid/ai"
	"google.golang.org/genai"
)

// Model implements ai.Model using the Gemini API.
type Model struct {
	client *genai.Client
	config *ai.Config
	logger *slog.Logger
}

var _ ai.Model = (*Model)(nil)

// NewModel creates an ai.Model backed by Gemini.
func NewModel(ctx context.Context, config *ai.Config) (ai.Model, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Model{
		client: client,
		config: config,
		logger: slog.Default().With("component", "gemini-model"),
	}, nil
}

// Generate sends req to GenerateContent and returns the response text.
func (m *Model) Generate(ctx context.Context, req ai.Request) (string, error) {
	contents, genConfig := m.buildRequest(req)

	var text string
	err := ai.RetryWithBackoff(ctx, func() error {
		resp, err := m.client.Models.GenerateContent(ctx, m.config.Model, contents, genConfig)
		if err != nil {
			m.logger.Warn("failed to generate content", "err", err)
			return err
		}
		text = resp.Text()
		return nil
	}, m.config.MaxRetries, m.config.RetryDelay)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if text == "" {
		return "", ai.ErrEmptyResponse
	}
	return text, nil
}

// Close releases resources held by the model.
func (m *Model) Close() error {
	m.logger.Debug("closing Gemini model")
	return nil
}

func (m *Model) buildRequest(req ai.Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	temperature := m.config.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := m.config.MaxOutputTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(temperature)),
		MaxOutputTokens: int32(maxTokens),
	}
	if req.System != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSONMode {
		genConfig.ResponseMIMEType = "application/json"
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if msg.Role == ai.RoleAI {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	return contents, genConfig
}
