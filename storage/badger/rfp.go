package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/bidgrid/core"
	"github.com/poiesic/bidgrid/storage"
)

// RFPRepository implements storage.RFPRepository for BadgerDB.
type RFPRepository struct {
	backend *Backend
}

var _ storage.RFPRepository = (*RFPRepository)(nil)

// NewRFPRepository creates a new RFPRepository.
func NewRFPRepository(backend *Backend) *RFPRepository {
	return &RFPRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *RFPRepository) Close() error {
	return nil
}

// CreateRFP stores a new RFP and its owner and status index entries.
func (r *RFPRepository) CreateRFP(ctx context.Context, rfp *core.RFP) (*core.RFP, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		rfp.Id = core.NewID()
		rfp.CreatedAt = time.Now().UTC()
		rfp.UpdatedAt = rfp.CreatedAt
		if rfp.Status == "" {
			rfp.Status = core.RFPStatusDrafting
		}

		if err := writeDoc(tx, makeRFPKey(rfp.Id), rfp); err != nil {
			return err
		}
		if err := tx.Set(makeRFPOwnerKey(rfp.CreatedBy, rfp.Id), storage.MarshalID(rfp.Id)); err != nil {
			return err
		}
		if err := tx.Set(makeRFPStatusKey(rfp.Status, rfp.Id), storage.MarshalID(rfp.Id)); err != nil {
			return err
		}
		return commit(tx)
	}, true)
	if err != nil {
		return nil, err
	}
	return rfp, nil
}

// UpdateRFP replaces a stored RFP, moving its status index entry if needed.
func (r *RFPRepository) UpdateRFP(ctx context.Context, rfp *core.RFP) (*core.RFP, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		old, err := readDoc[core.RFP](tx, makeRFPKey(rfp.Id))
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		if old.Status != rfp.Status {
			if err := tx.Delete(makeRFPStatusKey(old.Status, old.Id)); err != nil {
				return err
			}
			if err := tx.Set(makeRFPStatusKey(rfp.Status, rfp.Id), storage.MarshalID(rfp.Id)); err != nil {
				return err
			}
		}

		rfp.CreatedBy = old.CreatedBy
		rfp.CreatedAt = old.CreatedAt
		rfp.UpdatedAt = time.Now().UTC()
		if err := writeDoc(tx, makeRFPKey(rfp.Id), rfp); err != nil {
			return err
		}
		return commit(tx)
	}, true)
	if err != nil {
		return nil, err
	}
	return rfp, nil
}

// DeleteRFP removes owner's RFP together with every proposal submitted for it.
func (r *RFPRepository) DeleteRFP(ctx context.Context, owner, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		rfp, err := readDoc[core.RFP](tx, makeRFPKey(id))
		if err != nil {
			return err
		}
		if rfp == nil || rfp.CreatedBy != owner {
			return storage.ErrNotFound
		}

		if err := deleteProposalsTx(tx, id); err != nil {
			return err
		}
		if err := tx.Delete(makeRFPOwnerKey(owner, id)); err != nil {
			return err
		}
		if err := tx.Delete(makeRFPStatusKey(rfp.Status, id)); err != nil {
			return err
		}
		if err := tx.Delete(makeRFPKey(id)); err != nil {
			return err
		}
		return commit(tx)
	}, true)
}

// GetRFP retrieves an RFP by ID regardless of owner.
func (r *RFPRepository) GetRFP(ctx context.Context, id core.ID) (*core.RFP, error) {
	var result *core.RFP
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDoc[core.RFP](tx, makeRFPKey(id))
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

// GetOwnedRFP retrieves an RFP only if owner created it.
func (r *RFPRepository) GetOwnedRFP(ctx context.Context, owner, id core.ID) (*core.RFP, error) {
	rfp, err := r.GetRFP(ctx, id)
	if err != nil {
		return nil, err
	}
	if rfp.CreatedBy != owner {
		return nil, storage.ErrNotFound
	}
	return rfp, nil
}

// ListRFPs returns owner's RFPs, most recently updated first.
func (r *RFPRepository) ListRFPs(ctx context.Context, owner core.ID, status core.RFPStatus) ([]*core.RFP, error) {
	rfps, err := r.scan(makePartialKey(rfpOwnerPrefix, owner.String()))
	if err != nil {
		return nil, err
	}
	if status != "" {
		rfps = slices.DeleteFunc(rfps, func(rfp *core.RFP) bool {
			return rfp.Status != status
		})
	}
	slices.SortFunc(rfps, func(a, b *core.RFP) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return rfps, nil
}

// ListRFPsByStatus returns every RFP in status across all owners.
func (r *RFPRepository) ListRFPsByStatus(ctx context.Context, status core.RFPStatus) ([]*core.RFP, error) {
	return r.scan(makePartialKey(rfpStatusPrefix, string(status)))
}

func (r *RFPRepository) scan(prefix []byte) ([]*core.RFP, error) {
	var results []*core.RFP
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := scanIndex(tx, prefix)
		if err != nil {
			return err
		}
		for _, id := range ids {
			rfp, err := readDoc[core.RFP](tx, makeRFPKey(id))
			if err != nil {
				return err
			}
			if rfp != nil {
				results = append(results, rfp)
			}
		}
		return nil
	}, false)
	return results, err
}
