package badger

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/bidgrid/core"
	"github.com/poiesic/bidgrid/storage"
)

const (
	defaultVendorPage  = 1
	defaultVendorLimit = 50
)

// VendorRepository implements storage.VendorRepository for BadgerDB.
type VendorRepository struct {
	backend *Backend
}

var _ storage.VendorRepository = (*VendorRepository)(nil)

// NewVendorRepository creates a new VendorRepository.
func NewVendorRepository(backend *Backend) *VendorRepository {
	return &VendorRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *VendorRepository) Close() error {
	return nil
}

// CreateVendor stores a new vendor, enforcing one vendor per (owner, email).
func (r *VendorRepository) CreateVendor(ctx context.Context, vendor *core.Vendor) (*core.Vendor, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		emailKey := makeVendorEmailKey(vendor.CreatedBy, vendor.Email)
		if err := claimIndex(tx, emailKey, ""); err != nil {
			return err
		}

		vendor.Id = core.NewID()
		vendor.CreatedAt = time.Now().UTC()
		vendor.UpdatedAt = vendor.CreatedAt

		if err := writeDoc(tx, makeVendorKey(vendor.Id), vendor); err != nil {
			return err
		}
		if err := tx.Set(emailKey, storage.MarshalID(vendor.Id)); err != nil {
			return err
		}
		if err := tx.Set(makeVendorOwnerKey(vendor.CreatedBy, vendor.Id), storage.MarshalID(vendor.Id)); err != nil {
			return err
		}
		return commit(tx)
	}, true)
	if err != nil {
		return nil, err
	}
	return vendor, nil
}

// UpdateVendor replaces a vendor owned by vendor.CreatedBy.
func (r *VendorRepository) UpdateVendor(ctx context.Context, vendor *core.Vendor) (*core.Vendor, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		old, err := readDoc[core.Vendor](tx, makeVendorKey(vendor.Id))
		if err != nil {
			return err
		}
		if old == nil || old.CreatedBy != vendor.CreatedBy {
			return storage.ErrNotFound
		}

		if old.Email != vendor.Email {
			newKey := makeVendorEmailKey(vendor.CreatedBy, vendor.Email)
			if err := claimIndex(tx, newKey, vendor.Id); err != nil {
				return err
			}
			if err := tx.Delete(makeVendorEmailKey(old.CreatedBy, old.Email)); err != nil {
				return err
			}
			if err := tx.Set(newKey, storage.MarshalID(vendor.Id)); err != nil {
				return err
			}
		}

		vendor.CreatedAt = old.CreatedAt
		vendor.UpdatedAt = time.Now().UTC()
		if err := writeDoc(tx, makeVendorKey(vendor.Id), vendor); err != nil {
			return err
		}
		return commit(tx)
	}, true)
	if err != nil {
		return nil, err
	}
	return vendor, nil
}

// DeleteVendor removes owner's vendor and its index entries.
func (r *VendorRepository) DeleteVendor(ctx context.Context, owner, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		vendor, err := readDoc[core.Vendor](tx, makeVendorKey(id))
		if err != nil {
			return err
		}
		if vendor == nil || vendor.CreatedBy != owner {
			return storage.ErrNotFound
		}

		if err := tx.Delete(makeVendorEmailKey(owner, vendor.Email)); err != nil {
			return err
		}
		if err := tx.Delete(makeVendorOwnerKey(owner, id)); err != nil {
			return err
		}
		if err := tx.Delete(makeVendorKey(id)); err != nil {
			return err
		}
		return commit(tx)
	}, true)
}

// GetVendor retrieves a vendor owned by owner.
func (r *VendorRepository) GetVendor(ctx context.Context, owner, id core.ID) (*core.Vendor, error) {
	var result *core.Vendor
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDoc[core.Vendor](tx, makeVendorKey(id))
		if err != nil {
			return err
		}
		if result == nil || result.CreatedBy != owner {
			result = nil
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetVendors retrieves multiple vendors by their IDs.
func (r *VendorRepository) GetVendors(ctx context.Context, ids ...core.ID) ([]*core.Vendor, error) {
	var result []*core.Vendor
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			vendor, err := readDoc[core.Vendor](tx, makeVendorKey(id))
			if err != nil {
				return err
			}
			if vendor != nil {
				result = append(result, vendor)
			}
		}
		return nil
	}, false)
	return result, err
}

// FindVendorByEmail retrieves owner's vendor with the given email.
func (r *VendorRepository) FindVendorByEmail(ctx context.Context, owner core.ID, email string) (*core.Vendor, error) {
	var result *core.Vendor
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		id, err := readIndex(tx, makeVendorEmailKey(owner, email))
		if err != nil {
			return err
		}
		if id == "" {
			return storage.ErrNotFound
		}
		result, err = readDoc[core.Vendor](tx, makeVendorKey(id))
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

// ListVendors returns one page of owner's vendors, newest first.
func (r *VendorRepository) ListVendors(ctx context.Context, owner core.ID, query storage.VendorQuery) ([]*core.Vendor, int, error) {
	page := query.Page
	if page < 1 {
		page = defaultVendorPage
	}
	limit := query.Limit
	if limit < 1 {
		limit = defaultVendorLimit
	}
	search := strings.ToLower(query.Search)
	tag := strings.ToLower(query.Tag)

	var matches []*core.Vendor
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := scanIndex(tx, makePartialKey(vendorOwnerPrefix, owner.String()))
		if err != nil {
			return err
		}
		for _, id := range ids {
			vendor, err := readDoc[core.Vendor](tx, makeVendorKey(id))
			if err != nil {
				return err
			}
			if vendor != nil && vendorMatches(vendor, search, tag) {
				matches = append(matches, vendor)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, 0, err
	}

	slices.SortFunc(matches, func(a, b *core.Vendor) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	total := len(matches)
	// Compare page counts before multiplying so huge pages cannot overflow.
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	if page > pages {
		return []*core.Vendor{}, total, nil
	}
	start := (page - 1) * limit
	end := min(start+limit, total)
	return matches[start:end], total, nil
}

func vendorMatches(v *core.Vendor, search, tag string) bool {
	if tag != "" && !slices.Contains(v.Tags, tag) {
		return false
	}
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(v.Name), search) ||
		strings.Contains(strings.ToLower(v.Email), search) ||
		strings.Contains(strings.ToLower(v.Company), search)
}
