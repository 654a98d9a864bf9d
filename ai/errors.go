package ai

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrEmptyResponse is returned when a model produced no content.
	ErrEmptyResponse = errors.New("model returned an empty response")

	// ErrNoJSON is returned when a response contains no JSON document.
	ErrNoJSON = errors.New("no JSON found in model response")

	// ErrUnknownProvider is returned for an unsupported Config.Provider.
	ErrUnknownProvider = errors.New("unknown AI provider")
)
