package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/bidgrid/core"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

type contextKey struct{}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *core.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *core.User {
	user, _ := ctx.Value(contextKey{}).(*core.User)
	return user
}

// ErrorHandler renders an authentication failure.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Middleware rejects requests without a valid access token and stores the
// authenticated user in the request context.
func (s *Service) Middleware(onError ErrorHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := s.Authenticate(r.Context(), RequestToken(r))
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequestToken returns the access token from the accessToken cookie or the
// Authorization header.
func RequestToken(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// SetTokenCookies writes both tokens as httpOnly cookies.
func (s *Service) SetTokenCookies(w http.ResponseWriter, tokens *TokenPair) {
	http.SetCookie(w, s.cookie(AccessTokenCookie, tokens.AccessToken, s.config.AccessTTL))
	http.SetCookie(w, s.cookie(RefreshTokenCookie, tokens.RefreshToken, s.config.RefreshTTL))
}

// ClearTokenCookies expires both token cookies.
func (s *Service) ClearTokenCookies(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie(AccessTokenCookie, "", -1))
	http.SetCookie(w, s.cookie(RefreshTokenCookie, "", -1))
}

func (s *Service) cookie(name, value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(ttl.Seconds())
	}
	return c
}
