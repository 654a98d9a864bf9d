package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/bidgrid/core"
	"github.com/poiesic/bidgrid/storage"
	"golang.org/x/crypto/bcrypt"
)

// Service registers and authenticates users.
type Service struct {
	users  storage.UserRepository
	config Config
	clock  func() time.Time
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for token timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService creates a Service. config is normalized and validated.
func NewService(users storage.UserRepository, config Config, opts ...Option) (*Service, error) {
	config.Normalize()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		users:  users,
		config: config,
		logger: slog.Default().With("component", "auth"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the normalized configuration.
func (s *Service) Config() Config {
	return s.config
}

// Register creates a new account.
func (s *Service) Register(ctx context.Context, reg core.Registration) (*core.User, error) {
	reg.Normalize()
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, &core.User{
		Username:     reg.Username,
		Email:        reg.Email,
		FullName:     reg.FullName,
		PasswordHash: string(hash),
	})
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user", user.Id, "username", user.Username)
	return user, nil
}

// Login checks credentials and issues a token pair. The refresh token is
// stored on the user, replacing any earlier one.
func (s *Service) Login(ctx context.Context, creds core.Credentials) (*core.User, *TokenPair, error) {
	creds.Normalize()
	if err := creds.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		user *core.User
		err  error
	)
	if creds.Email != "" {
		user, err = s.users.FindUserByEmail(ctx, creds.Email)
	} else {
		user, err = s.users.FindUserByUsername(ctx, creds.Username)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, ErrUserNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	user, tokens, err := s.rotate(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Debug("user logged in", "user", user.Id)
	return user, tokens, nil
}

// Logout revokes the user's refresh token.
func (s *Service) Logout(ctx context.Context, id core.ID) error {
	user, err := s.CurrentUser(ctx, id)
	if err != nil {
		return err
	}
	user.RefreshToken = ""
	_, err = s.users.UpdateUser(ctx, user)
	return err
}

// Refresh exchanges a valid refresh token for a new pair. Only the most
// recently issued refresh token is accepted.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*core.User, *TokenPair, error) {
	if refreshToken == "" {
		return nil, nil, ErrTokenMissing
	}
	id, err := s.parse(refreshToken, s.config.RefreshSecret, tokenTypeRefresh)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.users.GetUser(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, nil, err
	}
	if user.RefreshToken != refreshToken {
		return nil, nil, ErrTokenRevoked
	}
	return s.rotate(ctx, user)
}

// Authenticate resolves an access token to its user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*core.User, error) {
	if accessToken == "" {
		return nil, ErrTokenMissing
	}
	id, err := s.parse(accessToken, s.config.AccessSecret, tokenTypeAccess)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUser(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrTokenInvalid
	}
	return user, err
}

// CurrentUser returns the user with id.
func (s *Service) CurrentUser(ctx context.Context, id core.ID) (*core.User, error) {
	user, err := s.users.GetUser(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// UpdateAccount changes the user's full name and email.
func (s *Service) UpdateAccount(ctx context.Context, id core.ID, patch core.AccountPatch) (*core.User, error) {
	patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	user, err := s.CurrentUser(ctx, id)
	if err != nil {
		return nil, err
	}
	user.FullName = patch.FullName
	user.Email = patch.Email
	user, err = s.users.UpdateUser(ctx, user)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil, ErrEmailTaken
	}
	return user, err
}

// ChangePassword replaces the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, id core.ID, change core.PasswordChange) error {
	if err := change.Validate(); err != nil {
		return err
	}
	user, err := s.CurrentUser(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(change.OldPassword)); err != nil {
		return ErrIncorrectPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(change.NewPassword), s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	_, err = s.users.UpdateUser(ctx, user)
	return err
}

func (s *Service) rotate(ctx context.Context, user *core.User) (*core.User, *TokenPair, error) {
	tokens, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}
	user.RefreshToken = tokens.RefreshToken
	user, err = s.users.UpdateUser(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}
