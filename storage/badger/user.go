package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/bidgrid/core"
	"github.com/poiesic/bidgrid/storage"
)

// userDoc is the stored form of a user. Credentials are excluded from
// core.User's JSON so they never leak through the API, and are added back here.
type userDoc struct {
	*core.User
	PasswordHash string `json:"passwordHash"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

func toUserDoc(u *core.User) *userDoc {
	return &userDoc{User: u, PasswordHash: u.PasswordHash, RefreshToken: u.RefreshToken}
}

func (d *userDoc) user() *core.User {
	if d.User == nil {
		d.User = &core.User{}
	}
	d.User.PasswordHash = d.PasswordHash
	d.User.RefreshToken = d.RefreshToken
	return d.User
}

// UserRepository implements storage.UserRepository for BadgerDB.
type UserRepository struct {
	backend *Backend
}

var _ storage.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new UserRepository.
func NewUserRepository(backend *Backend) *UserRepository {
	return &UserRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *UserRepository) Close() error {
	return nil
}

// CreateUser stores a new user with unique email and username.
func (r *UserRepository) CreateUser(ctx context.Context, user *core.User) (*core.User, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if err := claimIndex(tx, makeUserEmailKey(user.Email), ""); err != nil {
			return err
		}
		if err := claimIndex(tx, makeUserNameKey(user.Username), ""); err != nil {
			return err
		}

		user.Id = core.NewID()
		user.CreatedAt = time.Now().UTC()
		user.UpdatedAt = user.CreatedAt

		if err := writeDoc(tx, makeUserKey(user.Id), toUserDoc(user)); err != nil {
			return err
		}
		if err := tx.Set(makeUserEmailKey(user.Email), storage.MarshalID(user.Id)); err != nil {
			return err
		}
		if err := tx.Set(makeUserNameKey(user.Username), storage.MarshalID(user.Id)); err != nil {
			return err
		}
		return commit(tx)
	}, true)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser replaces a stored user, moving its email and username indices if changed.
func (r *UserRepository) UpdateUser(ctx context.Context, user *core.User) (*core.User, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		old, err := readUser(tx, user.Id)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		if old.Email != user.Email {
			if err := claimIndex(tx, makeUserEmailKey(user.Email), user.Id); err != nil {
				return err
			}
			if err := tx.Delete(makeUserEmailKey(old.Email)); err != nil {
				return err
			}
			if err := tx.Set(makeUserEmailKey(user.Email), storage.MarshalID(user.Id)); err != nil {
				return err
			}
		}
		if old.Username != user.Username {
			if err := claimIndex(tx, makeUserNameKey(user.Username), user.Id); err != nil {
				return err
			}
			if err := tx.Delete(makeUserNameKey(old.Username)); err != nil {
				return err
			}
			if err := tx.Set(makeUserNameKey(user.Username), storage.MarshalID(user.Id)); err != nil {
				return err
			}
		}

		user.CreatedAt = old.CreatedAt
		user.UpdatedAt = time.Now().UTC()
		if err := writeDoc(tx, makeUserKey(user.Id), toUserDoc(user)); err != nil {
			return err
		}
		return commit(tx)
	}, true)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser retrieves a user by ID.
func (r *UserRepository) GetUser(ctx context.Context, id core.ID) (*core.User, error) {
	var result *core.User
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readUser(tx, id)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// FindUserByEmail retrieves a user through the email index.
func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (*core.User, error) {
	return r.findBy(makeUserEmailKey(email))
}

// FindUserByUsername retrieves a user through the username index.
func (r *UserRepository) FindUserByUsername(ctx context.Context, username string) (*core.User, error) {
	return r.findBy(makeUserNameKey(username))
}

func (r *UserRepository) findBy(indexKey []byte) (*core.User, error) {
	var result *core.User
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		id, err := readIndex(tx, indexKey)
		if err != nil {
			return err
		}
		if id == "" {
			return storage.ErrNotFound
		}
		result, err = readUser(tx, id)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

func readUser(tx *badger.Txn, id core.ID) (*core.User, error) {
	doc, err := readDoc[userDoc](tx, makeUserKey(id))
	if err != nil || doc == nil {
		return nil, err
	}
	return doc.user(), nil
}

// claimIndex fails with ErrDuplicateKey if key already points at an ID other
// than owner. An empty owner means any existing entry is a conflict.
func claimIndex(tx *badger.Txn, key []byte, owner core.ID) error {
	existing, err := readIndex(tx, key)
	if err != nil {
		return err
	}
	if existing != "" && existing != owner {
		return storage.ErrDuplicateKey
	}
	return nil
}
