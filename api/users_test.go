package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/poiesic/bidgrid/auth"
	"github.com/poiesic/bidgrid/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	env.signUp("alice")

	rec, body := env.do(http.MethodPost, "/api/v1/users", map[string]string{
		"username": "alice", "email": "other@example.com", "fullName": "Alice", "password": "password123",
	}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "User with email or username already exists", body.Message)

	rec, body = env.do(http.MethodPost, "/api/v1/users", map[string]string{"username": "bob"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "All fields are required", body.Message)
	assert.Equal(t, []string{"All fields are required"}, body.Errors)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.signUp("alice")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login",
		strings.NewReader(`{"username":"ALICE","password":"password123"}`))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cookies := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c
	}
	require.Contains(t, cookies, auth.AccessTokenCookie)
	require.Contains(t, cookies, auth.RefreshTokenCookie)
	assert.True(t, cookies[auth.AccessTokenCookie].HttpOnly)
	assert.NotContains(t, rec.Body.String(), "password", "hash is never serialized")

	// The access cookie alone authenticates.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	req.AddCookie(cookies[auth.AccessTokenCookie])
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := env.do(http.MethodPost, "/api/v1/users/login", map[string]string{
		"email": "alice@example.com", "password": "wrong-password",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid user credentials", body.Message)

	rec, body = env.do(http.MethodPost, "/api/v1/users/login", map[string]string{
		"email": "nobody@example.com", "password": "password123",
	}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User does not exist", body.Message)
}

func TestRefreshAndLogout(t *testing.T) {
	env := newTestEnv(t)
	env.signUp("alice")

	_, body := env.do(http.MethodPost, "/api/v1/users/login", map[string]string{
		"email": "alice@example.com", "password": "password123",
	}, "")
	first := decode[sessionData](t, body)

	rec, body := env.do(http.MethodPost, "/api/v1/users/refresh-token",
		map[string]string{"refreshToken": first.RefreshToken}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decode[sessionData](t, body)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	rec, body = env.do(http.MethodPost, "/api/v1/users/refresh-token",
		map[string]string{"refreshToken": first.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Refresh token is expired or used", body.Message)

	rec, body = env.do(http.MethodPost, "/api/v1/users/refresh-token", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized request", body.Message)

	rec, _ = env.do(http.MethodPost, "/api/v1/users/logout", nil, second.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = env.do(http.MethodPost, "/api/v1/users/refresh-token",
		map[string]string{"refreshToken": second.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "logout revokes the refresh token")
}

func TestAccountManagement(t *testing.T) {
	env := newTestEnv(t)
	token, user := env.signUp("alice")
	env.signUp("bob")

	rec, body := env.do(http.MethodGet, "/api/v1/users/current-user", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.Id, decode[*core.User](t, body).Id)

	rec, body = env.do(http.MethodPatch, "/api/v1/users/update-account",
		map[string]string{"fullName": "Alice Liddell", "email": "ALICE@wonder.land"}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(body.Data), `"email":"alice@wonder.land"`)

	rec, body = env.do(http.MethodPatch, "/api/v1/users/update-account",
		map[string]string{"fullName": "Alice", "email": "bob@example.com"}, token)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email is already in use", body.Message)

	rec, body = env.do(http.MethodPost, "/api/v1/users/change-password",
		map[string]string{"oldPassword": "nope", "newPassword": "new-password"}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid old password", body.Message)

	rec, _ = env.do(http.MethodPost, "/api/v1/users/change-password",
		map[string]string{"oldPassword": "password123", "newPassword": "new-password"}, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(http.MethodPost, "/api/v1/users/login",
		map[string]string{"username": "alice", "password": "new-password"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
