package ai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFencedJSON(t *testing.T) {
	content := "Perfect! Your RFP is ready.\n\n```json\n{\"isComplete\": true}\n```\nThanks"
	body, ok := ExtractFencedJSON(content)
	require.True(t, ok)
	assert.Equal(t, `{"isComplete": true}`, body)

	_, ok = ExtractFencedJSON("How many laptops do you need?")
	assert.False(t, ok)

	body, ok = ExtractFencedJSON("```json\n{\"a\":1}\n```\n```json\n{\"b\":2}\n```")
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, body, "first block wins")
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding prose", "Here you go: {\"a\": {\"b\": 2}} hope it helps", `{"a": {"b": 2}}`},
		{"missing opening quote", `{"a": 1, b": 2}`, `{"a": 1, "b": 2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONObject(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, json.Valid([]byte(got)))
		})
	}

	_, err := ExtractJSONObject("no json here")
	assert.ErrorIs(t, err, ErrNoJSON)
	_, err = ExtractJSONObject("} backwards {")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestRepairJSON_LeavesValuesAlone(t *testing.T) {
	in := `{"summary": "Price, delivery, warranty", "terms": ["Net 30", "FOB"]}`
	assert.Equal(t, in, repairJSON(in))
}
