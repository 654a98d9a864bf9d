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

package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/poiesic/bidgrid/assistant"
	"github.com/poiesic/bidgrid/auth"
	"github.com/poiesic/bidgrid/cache"
	"github.com/poiesic/bidgrid/core"
	"github.com/poiesic/bidgrid/ingestion"
	"github.com/poiesic/bidgrid/mail"
	"github.com/poiesic/bidgrid/storage"
)

// DefaultBodyLimit caps request bodies.
const DefaultBodyLimit = 16 << 10

// Drafter continues an RFP drafting conversation.
type Drafter interface {
	Chat(ctx context.Context, history []core.ChatMessage) (string, error)
}

// Mailer sends an RFP to vendors.
type Mailer interface {
	SendRFP(ctx context.Context, rfp *core.RFP, vendors []*core.Vendor, senderName string) (*mail.SendReport, error)
}

// Ingester turns unread vendor replies into proposals.
type Ingester interface {
	IngestRFP(ctx context.Context, owner, rfpID core.ID) (*ingestion.Result, error)
}

// Recommender ranks an RFP's proposals.
type Recommender interface {
	Recommend(ctx context.Context, proposals []*core.Proposal, rfp assistant.RFPContext) (*assistant.Recommendation, error)
}

var (
	_ Drafter     = (*assistant.Drafter)(nil)
	_ Mailer      = (*mail.RFPMailer)(nil)
	_ Ingester    = (*ingestion.Pipeline)(nil)
	_ Recommender = (*assistant.Recommender)(nil)
)

// Stores groups the repositories the handlers use directly.
type Stores struct {
	Vendors   storage.VendorRepository
	RFPs      storage.RFPRepository
	Proposals storage.ProposalRepository
}

// Deps are the collaborators a Server needs.
type Deps struct {
	Stores      Stores
	Auth        *auth.Service
	Drafter     Drafter
	Mailer      Mailer
	Ingester    Ingester
	Recommender Recommender
	// Cache stores recommendations. Defaults to cache.Noop.
	Cache cache.Recommendations
}

// Options tune the HTTP surface.
type Options struct {
	// CORSOrigin is the single origin allowed to send credentialed requests.
	CORSOrigin string
	// BodyLimit caps request bodies in bytes. Default: DefaultBodyLimit.
	BodyLimit int64
}

// Server holds the HTTP handlers.
type Server struct {
	deps    Deps
	options Options
	logger  *slog.Logger
}

// ErrMissingDependency is returned by NewServer when a required collaborator is nil.
var ErrMissingDependency = errors.New("api: missing dependency")

// NewServer validates deps and creates a Server.
func NewServer(deps Deps, options Options) (*Server, error) {
	if deps.Stores.Vendors == nil || deps.Stores.RFPs == nil || deps.Stores.Proposals == nil {
		return nil, fmt.Errorf("%w: stores", ErrMissingDependency)
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("%w: auth", ErrMissingDependency)
	}
	if deps.Drafter == nil || deps.Mailer == nil || deps.Ingester == nil || deps.Recommender == nil {
		return nil, fmt.Errorf("%w: services", ErrMissingDependency)
	}
	if deps.Cache == nil {
		deps.Cache = cache.Noop{}
	}
	if options.BodyLimit <= 0 {
		options.BodyLimit = DefaultBodyLimit
	}
	return &Server{
		deps:    deps,
		options: options,
		logger:  slog.Default().With("component", "api"),
	}, nil
}

// handlerFunc is an http.HandlerFunc that reports failure by returning an error.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (s *Server) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			writeError(w, toAPIError(err, s.logger.With("path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()))))
		}
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.options.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.limitBody)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "BidGrid API Server"})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, NewAPIError(http.StatusNotFound, "Route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, NewAPIError(http.StatusMethodNotAllowed, "Method not allowed"))
	})

	requireUser := s.deps.Auth.Middleware(func(w http.ResponseWriter, r *http.Request, err error) {
		if errors.Is(err, auth.ErrTokenMissing) {
			writeError(w, NewAPIError(http.StatusUnauthorized, "Unauthorized request"))
			return
		}
		writeError(w, NewAPIError(http.StatusUnauthorized, "Invalid access token"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthcheck", s.healthcheck)

		r.Route("/users", func(r chi.Router) {
			r.Post("/", s.handle(s.register))
			r.Post("/login", s.handle(s.login))
			r.Post("/refresh-token", s.handle(s.refreshToken))
			r.Group(func(r chi.Router) {
				r.Use(requireUser)
				r.Post("/logout", s.handle(s.logout))
				r.Get("/current-user", s.handle(s.currentUser))
				r.Patch("/update-account", s.handle(s.updateAccount))
				r.Post("/change-password", s.handle(s.changePassword))
			})
		})

		r.Route("/vendors", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/", s.handle(s.listVendors))
			r.Post("/", s.handle(s.createVendor))
			r.Get("/{id}", s.handle(s.getVendor))
			r.Patch("/{id}", s.handle(s.updateVendor))
			r.Delete("/{id}", s.handle(s.deleteVendor))
		})

		r.Route("/rfps", func(r chi.Router) {
			r.Use(requireUser)
			r.Post("/chat", s.handle(s.chat))
			r.Get("/", s.handle(s.listRFPs))
			r.Get("/{id}", s.handle(s.getRFP))
			r.Patch("/{id}", s.handle(s.updateRFP))
			r.Delete("/{id}", s.handle(s.deleteRFP))
			r.Get("/{id}/proposals", s.handle(s.listRFPProposals))
			r.Post("/{id}/finalize", s.handle(s.finalizeRFP))
			r.Post("/{id}/send", s.handle(s.sendRFP))
		})

		r.Route("/proposals", func(r chi.Router) {
			r.Get("/rfp/{rfpId}", s.handle(s.publicRFP))
			r.Post("/rfp/{rfpId}/submit", s.handle(s.submitProposal))
			r.Group(func(r chi.Router) {
				r.Use(requireUser)
				r.Patch("/{id}", s.handle(s.updateProposal))
				r.Post("/{id}/award", s.handle(s.awardProposal))
			})
		})

		r.Route("/ingestion", func(r chi.Router) {
			r.Use(requireUser)
			r.Post("/{rfpId}/ingest", s.handle(s.ingest))
			r.Get("/{rfpId}/recommendation", s.handle(s.recommendation))
			r.Get("/{rfpId}/proposals-analysis", s.handle(s.proposalsAnalysis))
		})
	})
	return r
}

func (s *Server) healthcheck(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"}, "Health check passed")
}

// accessLog writes one line per request.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.options.BodyLimit)
		}
		next.ServeHTTP(w, r)
	})
}

// requestUser returns the user the auth middleware stored on the request.
func requestUser(r *http.Request) *core.User {
	return auth.UserFromContext(r.Context())
}
