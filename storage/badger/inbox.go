package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/bidgrid/storage"
)

// InboxRepository implements storage.InboxRepository for BadgerDB.
// Values hold the time a fingerprint was recorded, in microseconds.
type InboxRepository struct {
	backend *Backend
}

var _ storage.InboxRepository = (*InboxRepository)(nil)

// NewInboxRepository creates a new InboxRepository.
func NewInboxRepository(backend *Backend) *InboxRepository {
	return &InboxRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *InboxRepository) Close() error {
	return nil
}

// MarkProcessed records the given fingerprints.
func (r *InboxRepository) MarkProcessed(ctx context.Context, fingerprints ...string) error {
	if len(fingerprints) == 0 {
		return nil
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		value := make([]byte, 8)
		binary.BigEndian.PutUint64(value, uint64(time.Now().UnixMicro()))
		for _, fp := range fingerprints {
			if err := tx.Set(makeInboxKey(fp), value); err != nil {
				return err
			}
		}
		return commit(tx)
	}, true)
}

// IsProcessed reports whether fingerprint was recorded.
func (r *InboxRepository) IsProcessed(ctx context.Context, fingerprint string) (bool, error) {
	var found bool
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeInboxKey(fingerprint))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	}, false)
	return found, err
}
