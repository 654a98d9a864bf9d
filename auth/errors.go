package auth

import "errors"

var (
	// ErrUserExists is returned when registering a taken email or username.
	ErrUserExists = errors.New("user with email or username already exists")

	// ErrUserNotFound is returned when no account matches.
	ErrUserNotFound = errors.New("user does not exist")

	// ErrInvalidCredentials is returned when a password does not match.
	ErrInvalidCredentials = errors.New("invalid user credentials")

	// ErrIncorrectPassword is returned when the current password given for a
	// password change is wrong.
	ErrIncorrectPassword = errors.New("invalid old password")

	// ErrEmailTaken is returned when an account update collides with another user.
	ErrEmailTaken = errors.New("email already in use")

	// ErrTokenMissing is returned when a request carries no token.
	ErrTokenMissing = errors.New("unauthorized request")

	// ErrTokenInvalid is returned for malformed, forged or wrongly typed tokens.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenExpired is returned for tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked is returned when a refresh token is not the one on record.
	ErrTokenRevoked = errors.New("refresh token is expired or used")

	// ErrSecretRequired is returned by Config.Validate when a signing secret is missing.
	ErrSecretRequired = errors.New("token secret required")
)
