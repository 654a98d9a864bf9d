package assistant

import "errors"

var (
	// ErrAIUnavailable is returned when the model call itself fails.
	ErrAIUnavailable = errors.New("AI service failed")

	// ErrInvalidResponse is returned when the model never produced usable JSON.
	ErrInvalidResponse = errors.New("invalid AI response")
)
