package auth

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultAccessTTL  = 24 * time.Hour
	DefaultRefreshTTL = 240 * time.Hour
)

// Config holds token and password hashing settings.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	// SecureCookies marks the token cookies Secure.
	SecureCookies bool
}

// Normalize fills defaults.
func (c *Config) Normalize() {
	if c.AccessTTL <= 0 {
		c.AccessTTL = DefaultAccessTTL
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = DefaultRefreshTTL
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = bcrypt.DefaultCost
	}
}

// Validate checks a normalized config.
func (c *Config) Validate() error {
	if c.AccessSecret == "" {
		return fmt.Errorf("%w: access token secret", ErrSecretRequired)
	}
	if c.RefreshSecret == "" {
		return fmt.Errorf("%w: refresh token secret", ErrSecretRequired)
	}
	if c.AccessSecret == c.RefreshSecret {
		return fmt.Errorf("access and refresh token secrets must differ")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}
