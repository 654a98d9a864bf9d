package gemini

import (
	"context"
	"testing"

	"github.com/poiesic/bidgrid/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestNewModel_RequiresKey(t *testing.T) {
	_, err := NewModel(context.Background(), ai.NewConfig())
	assert.Error(t, err)
}

func TestBuildRequest(t *testing.T) {
	m := &Model{config: ai.NewConfig(ai.WithAPIKey("k"))}
	temp := 0.0
	contents, cfg := m.buildRequest(ai.Request{
		System: "extract",
		Messages: []ai.Message{
			{Role: ai.RoleHuman, Content: "hello"},
			{Role: ai.RoleAI, Content: "hi"},
		},
		JSONMode:    true,
		Temperature: &temp,
	})

	require.Len(t, contents, 2)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Equal(t, "hello", contents[0].Parts[0].Text)

	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "extract", cfg.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	require.NotNil(t, cfg.Temperature)
	assert.Equal(t, float32(0), *cfg.Temperature)
	assert.Equal(t, int32(1024), cfg.MaxOutputTokens)
}

func TestBuildRequest_Defaults(t *testing.T) {
	m := &Model{config: ai.NewConfig(ai.WithAPIKey("k"), ai.WithTemperature(0.7))}
	_, cfg := m.buildRequest(ai.Prompt("", "hello"))

	assert.Nil(t, cfg.SystemInstruction)
	assert.Empty(t, cfg.ResponseMIMEType)
	assert.InDelta(t, 0.7, *cfg.Temperature, 1e-6)
}
