// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "errors"

// Domain validation errors
var (
	// ErrValidation is wrapped by every FieldError.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID indicates a malformed entity identifier.
	ErrInvalidID = errors.New("invalid id")
)

// FieldError describes the first input field that failed validation.
// Message is suitable for returning to API clients as-is.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// Unwrap lets callers match any FieldError with errors.Is(err, ErrValidation).
func (e *FieldError) Unwrap() error {
	return ErrValidation
}

func fieldErr(field, message string) error {
	return &FieldError{Field: field, Message: message}
}
