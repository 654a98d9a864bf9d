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

package bidgrid

import (
	"context"
	"log/slog"

	"github.com/poiesic/bidgrid/ai"
	"github.com/poiesic/bidgrid/ai/provider"
	"github.com/poiesic/bidgrid/api"
	"github.com/poiesic/bidgrid/assistant"
	"github.com/poiesic/bidgrid/auth"
	"github.com/poiesic/bidgrid/cache"
	"github.com/poiesic/bidgrid/config"
	"github.com/poiesic/bidgrid/ingestion"
	"github.com/poiesic/bidgrid/mail"
	"github.com/poiesic/bidgrid/storage/badger"
)

// Database owns the storage backend and the services built on top of it.
type Database struct {
	config      *config.Config
	repos       *badger.Repositories
	model       ai.Model
	drafter     *assistant.Drafter
	parser      *assistant.ProposalParser
	recommender *assistant.Recommender
	mailer      *mail.RFPMailer
	dial        mail.Dialer
	cache       cache.Recommendations
	logger      *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	model  ai.Model
	sender mail.Sender
	dial   mail.Dialer
	cache  cache.Recommendations
}

// WithModel uses model instead of the provider named in the config.
// The Database takes ownership and closes it.
func WithModel(model ai.Model) DatabaseOption {
	return func(o *databaseOptions) {
		o.model = model
	}
}

// WithSender uses sender for outbound email instead of Resend.
func WithSender(sender mail.Sender) DatabaseOption {
	return func(o *databaseOptions) {
		o.sender = sender
	}
}

// WithDialer uses dial to open the vendor reply inbox instead of IMAP.
func WithDialer(dial mail.Dialer) DatabaseOption {
	return func(o *databaseOptions) {
		o.dial = dial
	}
}

// WithCache uses c for recommendations instead of the configured Redis.
func WithCache(c cache.Recommendations) DatabaseOption {
	return func(o *databaseOptions) {
		o.cache = c
	}
}

// NewDatabase opens storage and builds the AI, mail and cache services cfg describes.
// Auth secrets are not required until NewServer.
func NewDatabase(ctx context.Context, cfg *config.Config, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{}
	for _, opt := range opts {
		opt(options)
	}
	logger := slog.Default().With("component", "database")

	backend, err := badger.OpenBackend(cfg.Storage.Path, cfg.Storage.InMemory)
	if err != nil {
		return nil, err
	}
	repos := badger.NewRepositories(backend)

	model := options.model
	if model == nil {
		model, err = provider.NewModel(ctx, cfg.AIConfig())
		if err != nil {
			repos.Close()
			return nil, err
		}
	}

	parser, err := assistant.NewProposalParser(model)
	if err != nil {
		model.Close()
		repos.Close()
		return nil, err
	}
	recommender, err := assistant.NewRecommender(model)
	if err != nil {
		model.Close()
		repos.Close()
		return nil, err
	}

	sender := options.sender
	if sender == nil {
		if resend, err := mail.NewResendSender(cfg.Mail.ResendAPIKey); err == nil {
			sender = resend
		} else {
			logger.Warn("outbound email disabled", "err", err)
		}
	}

	dial := options.dial
	if dial == nil {
		dial = mail.IMAPDialer(cfg.IMAPConfig())
	}

	recs := options.cache
	if recs == nil {
		recs = cache.Noop{}
		if cfg.Cache.RedisURL != "" {
			redis, err := cache.NewRedisURL(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL)
			if err != nil {
				model.Close()
				repos.Close()
				return nil, err
			}
			recs = redis
		}
	}

	return &Database{
		config:      cfg,
		repos:       repos,
		model:       model,
		drafter:     assistant.NewDrafter(model),
		parser:      parser,
		recommender: recommender,
		mailer:      mail.NewRFPMailer(sender, cfg.MailerConfig()),
		dial:        dial,
		cache:       recs,
		logger:      logger,
	}, nil
}

func (db *Database) Close() error {
	if err := db.cache.Close(); err != nil {
		db.logger.Error("error closing recommendation cache", "err", err)
	}
	if err := db.model.Close(); err != nil {
		db.logger.Error("error closing AI model", "err", err)
	}
	if err := db.repos.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) Repositories() *badger.Repositories {
	return db.repos
}

func (db *Database) Recommender() *assistant.Recommender {
	return db.recommender
}

func (db *Database) Cache() cache.Recommendations {
	return db.cache
}

func (db *Database) Mailer() *mail.RFPMailer {
	return db.mailer
}

// NewIngestionPipeline creates a pipeline sized by the config. opts are applied after the defaults.
func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	repos := ingestion.Repositories{
		RFPs:      db.repos.RFPs,
		Vendors:   db.repos.Vendors,
		Proposals: db.repos.Proposals,
		Inbox:     db.repos.Inbox,
	}
	opts = append([]ingestion.Option{ingestion.WithPoolSize(db.config.Ingestion.PoolSize)}, opts...)
	return ingestion.NewPipeline(repos, db.parser, db.dial, opts...)
}

// NewServer creates the HTTP API. ingester handles email ingestion requests.
func (db *Database) NewServer(ingester api.Ingester, opts ...auth.Option) (*api.Server, error) {
	authService, err := auth.NewService(db.repos.Users, db.config.AuthConfig(), opts...)
	if err != nil {
		return nil, err
	}
	return api.NewServer(api.Deps{
		Stores: api.Stores{
			Vendors:   db.repos.Vendors,
			RFPs:      db.repos.RFPs,
			Proposals: db.repos.Proposals,
		},
		Auth:        authService,
		Drafter:     db.drafter,
		Mailer:      db.mailer,
		Ingester:    ingester,
		Recommender: db.recommender,
		Cache:       db.cache,
	}, api.Options{
		CORSOrigin: db.config.Server.CORSOrigin,
		BodyLimit:  db.config.Server.BodyLimit,
	})
}
