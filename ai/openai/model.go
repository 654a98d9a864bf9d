package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/bidgrid/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Model implements ai.Model using langchaingo's OpenAI client.
type Model struct {
	client llms.Model
	config *ai.Config
	logger *slog.Logger
}

var _ ai.Model = (*Model)(nil)

func newModel(config *ai.Config) (*Model, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Local OpenAI-compatible services don't require authentication but
	// the client refuses an empty token.
	token := config.APIKey
	if token == "" {
		token = "none"
	}
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(config.Model),
	}
	if config.Host != "" {
		opts = append(opts, openai.WithBaseURL(config.Host))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}

	return &Model{
		client: client,
		config: config,
		logger: slog.Default().With("component", "openai-model"),
	}, nil
}

// NewModel creates an ai.Model backed by an OpenAI-compatible API.
func NewModel(config *ai.Config) (ai.Model, error) {
	return newModel(config)
}

// Generate sends req as a chat completion and returns the first choice.
func (m *Model) Generate(ctx context.Context, req ai.Request) (string, error) {
	temperature := m.config.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := m.config.MaxOutputTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	opts := []llms.CallOption{
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	}
	if req.JSONMode {
		opts = append(opts, llms.WithJSONMode())
	}

	var content string
	err := ai.RetryWithBackoff(ctx, func() error {
		response, err := m.client.GenerateContent(ctx, toMessages(req), opts...)
		if err != nil {
			m.logger.Warn("failed to generate content", "err", err)
			return err
		}
		if len(response.Choices) < 1 {
			return ai.ErrEmptyResponse
		}
		content = response.Choices[0].Content
		return nil
	}, m.config.MaxRetries, m.config.RetryDelay)
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	if content == "" {
		return "", ai.ErrEmptyResponse
	}
	return content, nil
}

// Close releases resources held by the model.
func (m *Model) Close() error {
	m.logger.Debug("closing OpenAI model")
	return nil
}

func toMessages(req ai.Request) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	for _, msg := range req.Messages {
		role := llms.ChatMessageTypeHuman
		if msg.Role == ai.RoleAI {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, msg.Content))
	}
	return messages
}
