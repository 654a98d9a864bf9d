package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/poiesic/bidgrid/assistant"
	"github.com/poiesic/bidgrid/auth"
	"github.com/poiesic/bidgrid/core"
	"github.com/poiesic/bidgrid/mail"
	"github.com/poiesic/bidgrid/storage"
)

// Response is the success envelope.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// APIError is an error with an HTTP status and a client-facing message.
type APIError struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// NewAPIError creates an APIError.
func NewAPIError(status int, message string) *APIError {
	return &APIError{StatusCode: status, Message: message}
}

type errorBody struct {
	Success    bool     `json:"success"`
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("failed to encode response", "err", err)
	}
}

func respond(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, Response{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

func writeError(w http.ResponseWriter, e *APIError) {
	errs := e.Errors
	if errs == nil {
		errs = []string{}
	}
	writeJSON(w, e.StatusCode, errorBody{
		StatusCode: e.StatusCode,
		Message:    e.Message,
		Errors:     errs,
	})
}

// readJSON decodes the request body into T. The body size is bounded by the
// router's limit middleware.
func readJSON[T any](r *http.Request) (T, error) {
	var v T
	if r.Body == nil || r.ContentLength == 0 {
		return v, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return v, NewAPIError(http.StatusRequestEntityTooLarge, "Request body too large")
		}
		return v, NewAPIError(http.StatusBadRequest, "Invalid request body")
	}
	return v, nil
}

// notFound maps storage.ErrNotFound to a 404 with message and passes any
// other error through.
func notFound(err error, message string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return NewAPIError(http.StatusNotFound, message)
	}
	return err
}

// toAPIError converts a handler error into the response it deserves.
// Unrecognized errors become a 500 and are logged.
func toAPIError(err error, logger *slog.Logger) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var fieldErr *core.FieldError
	if errors.As(err, &fieldErr) {
		return &APIError{StatusCode: http.StatusBadRequest, Message: fieldErr.Message, Errors: []string{fieldErr.Message}}
	}

	switch {
	case errors.Is(err, auth.ErrUserExists):
		return NewAPIError(http.StatusConflict, "User with email or username already exists")
	case errors.Is(err, auth.ErrUserNotFound):
		return NewAPIError(http.StatusNotFound, "User does not exist")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return NewAPIError(http.StatusUnauthorized, "Invalid user credentials")
	case errors.Is(err, auth.ErrIncorrectPassword):
		return NewAPIError(http.StatusBadRequest, "Invalid old password")
	case errors.Is(err, auth.ErrEmailTaken):
		return NewAPIError(http.StatusConflict, "Email is already in use")
	case errors.Is(err, auth.ErrTokenMissing):
		return NewAPIError(http.StatusUnauthorized, "Unauthorized request")
	case errors.Is(err, auth.ErrTokenRevoked):
		return NewAPIError(http.StatusUnauthorized, "Refresh token is expired or used")
	case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrTokenExpired):
		return NewAPIError(http.StatusUnauthorized, "Invalid refresh token")
	case errors.Is(err, storage.ErrNotFound):
		return NewAPIError(http.StatusNotFound, "Resource not found")
	case errors.Is(err, storage.ErrDuplicateKey):
		return NewAPIError(http.StatusConflict, "Resource already exists")
	case errors.Is(err, mail.ErrNotConfigured):
		return NewAPIError(http.StatusServiceUnavailable, "Email service is not configured")
	case errors.Is(err, assistant.ErrAIUnavailable), errors.Is(err, assistant.ErrInvalidResponse):
		return NewAPIError(http.StatusInternalServerError, "AI service error: "+err.Error())
	}

	logger.Error("request failed", "err", err)
	return NewAPIError(http.StatusInternalServerError, "Internal Server Error")
}

// parseID reads a path parameter as an ID, failing with a 400 and message.
func parseID(raw, message string) (core.ID, error) {
	id, err := core.ParseID(raw)
	if err != nil {
		return "", NewAPIError(http.StatusBadRequest, message)
	}
	return id, nil
}
