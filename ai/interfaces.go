package ai

import "context"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleHuman Role = "human"
	RoleAI    Role = "ai"
)

// Message is one turn of a conversation sent to a model.
type Message struct {
	Role    Role
	Content string
}

// Request describes a single completion.
type Request struct {
	// System is the system instruction. May be empty.
	System string

	// Messages is the conversation, oldest first. Must not be empty.
	Messages []Message

	// JSONMode asks the model to answer with a JSON document only.
	JSONMode bool

	// Temperature overrides the configured temperature when non-nil.
	Temperature *float64

	// MaxTokens overrides the configured output cap when positive.
	MaxTokens int
}

// Prompt builds a request holding a single human message.
func Prompt(system, text string) Request {
	return Request{
		System:   system,
		Messages: []Message{{Role: RoleHuman, Content: text}},
	}
}

// Model generates text completions.
// Implementations must be thread-safe for concurrent use.
type Model interface {
	// Generate returns the model's reply to req.
	// Returns ErrEmptyResponse if the model produced no content.
	Generate(ctx context.Context, req Request) (string, error)

	// Close releases resources held by the model.
	Close() error
}
