package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/poiesic/bidgrid/ai/mock"
	"github.com/poiesic/bidgrid/assistant"
	"github.com/poiesic/bidgrid/auth"
	"github.com/poiesic/bidgrid/cache"
	"github.com/poiesic/bidgrid/core"
	"github.com/poiesic/bidgrid/ingestion"
	"github.com/poiesic/bidgrid/mail"
	"github.com/poiesic/bidgrid/storage/badger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// fakeSender records outbound mail and fails for addresses in failFor.
type fakeSender struct {
	mu      sync.Mutex
	sent    []mail.OutboundEmail
	failFor map[string]bool
}

func (f *fakeSender) Send(ctx context.Context, email mail.OutboundEmail) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[email.To[0]] {
		return "", errors.New("mailbox unavailable")
	}
	f.sent = append(f.sent, email)
	return "msg-" + email.To[0], nil
}

type fakeIngester struct {
	result *ingestion.Result
	err    error
	owner  core.ID
}

func (f *fakeIngester) IngestRFP(ctx context.Context, owner, rfpID core.ID) (*ingestion.Result, error) {
	f.owner = owner
	return f.result, f.err
}

type fakeRecommender struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRecommender) Recommend(ctx context.Context, proposals []*core.Proposal, rfp assistant.RFPContext) (*assistant.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &assistant.Recommendation{
		Recommendation: &assistant.Verdict{Winner: proposals[0].DisplayName(), Reason: "Best value"},
		Summary:        rfp.Title,
	}, nil
}

type testEnv struct {
	t           *testing.T
	repos       *badger.Repositories
	handler     http.Handler
	model       *mock.MockModel
	sender      *fakeSender
	ingester    *fakeIngester
	recommender *fakeRecommender
	redis       *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	authService, err := auth.NewService(repos.Users, auth.Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		BcryptCost:    bcrypt.MinCost,
	})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	recCache, err := cache.NewRedis(context.Background(), &redis.Options{Addr: mr.Addr()}, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { recCache.Close() })

	env := &testEnv{
		t:           t,
		repos:       repos,
		model:       mock.NewMockModel(),
		sender:      &fakeSender{failFor: map[string]bool{}},
		ingester:    &fakeIngester{result: &ingestion.Result{}},
		recommender: &fakeRecommender{},
		redis:       mr,
	}
	server, err := NewServer(Deps{
		Stores: Stores{
			Vendors:   repos.Vendors,
			RFPs:      repos.RFPs,
			Proposals: repos.Proposals,
		},
		Auth:        authService,
		Drafter:     assistant.NewDrafter(env.model),
		Mailer:      mail.NewRFPMailer(env.sender, mail.MailerConfig{PublicURL: "https://bidgrid.test"}),
		Ingester:    env.ingester,
		Recommender: env.recommender,
		Cache:       recCache,
	}, Options{CORSOrigin: "http://localhost:5173"})
	require.NoError(t, err)
	env.handler = server.Handler()
	return env
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Errors     []string        `json:"errors"`
}

func (e *testEnv) do(method, path string, body any, token string) (*httptest.ResponseRecorder, envelope) {
	e.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

// signUp registers and logs in a user, returning the access token and user.
func (e *testEnv) signUp(username string) (string, *core.User) {
	e.t.Helper()
	rec, _ := e.do(http.MethodPost, "/api/v1/users", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"fullName": strings.ToUpper(username[:1]) + username[1:],
		"password": "password123",
	}, "")
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env := e.do(http.MethodPost, "/api/v1/users/login", map[string]string{
		"email":    username + "@example.com",
		"password": "password123",
	}, "")
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
	session := decode[sessionData](e.t, env)
	return session.AccessToken, session.User
}

func (e *testEnv) createVendor(token, name, email string) *core.Vendor {
	e.t.Helper()
	rec, env := e.do(http.MethodPost, "/api/v1/vendors", map[string]any{"name": name, "email": email}, token)
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[*core.Vendor](e.t, env)
}

// completeRFP stores a finished draft owned by owner.
func (e *testEnv) completeRFP(owner core.ID, status core.RFPStatus, vendors ...core.ID) *core.RFP {
	e.t.Helper()
	quantity := 20.0
	rfp, err := e.repos.RFPs.CreateRFP(context.Background(), &core.RFP{
		Title:        "Office Laptops",
		Description:  "Laptops for the new office",
		Requirements: []string{"16GB RAM"},
		Quantity:     &quantity,
		Status:       status,
		IsComplete:   true,
		Vendors:      vendors,
		CreatedBy:    owner,
	})
	require.NoError(e.t, err)
	return rfp
}

func TestRootAndHealthcheck(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","message":"BidGrid API Server"}`, rec.Body.String())

	rec, body := env.do(http.MethodGet, "/api/v1/healthcheck", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, 200, body.StatusCode)

	rec, body = env.do(http.MethodGet, "/api/v1/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, body.Success)
	assert.NotNil(t, body.Errors)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/vendors", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestBodyLimit(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signUp("alice")

	big := map[string]string{"name": "Acme", "email": "a@acme.com", "notes": strings.Repeat("x", DefaultBodyLimit)}
	rec, body := env.do(http.MethodPost, "/api/v1/vendors", big, token)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "Request body too large", body.Message)

	rec, body = env.do(http.MethodPost, "/api/v1/vendors", "{not json", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", body.Message)
}

func TestRequireUser(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(http.MethodGet, "/api/v1/vendors", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized request", body.Message)

	rec, body = env.do(http.MethodGet, "/api/v1/vendors", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid access token", body.Message)
}

func TestNewServer_MissingDependencies(t *testing.T) {
	_, err := NewServer(Deps{}, Options{})
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestToAPIError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tests := []struct {
		err    error
		status int
	}{
		{NewAPIError(http.StatusTeapot, "short and stout"), http.StatusTeapot},
		{&core.FieldError{Field: "name", Message: "Name is required"}, http.StatusBadRequest},
		{auth.ErrUserExists, http.StatusConflict},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{auth.ErrTokenRevoked, http.StatusUnauthorized},
		{mail.ErrNotConfigured, http.StatusServiceUnavailable},
		{assistant.ErrAIUnavailable, http.StatusInternalServerError},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, toAPIError(tt.err, logger).StatusCode, tt.err.Error())
	}
	assert.Equal(t, "Internal Server Error", toAPIError(errors.New("secret detail"), logger).Message)
}
