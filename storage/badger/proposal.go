package badger

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/bidgrid/core"
	"github.com/poiesic/bidgrid/storage"
)

// ProposalRepository implements storage.ProposalRepository for BadgerDB.
type ProposalRepository struct {
	backend *Backend
}

var _ storage.ProposalRepository = (*ProposalRepository)(nil)

// NewProposalRepository creates a new ProposalRepository.
func NewProposalRepository(backend *Backend) *ProposalRepository {
	return &ProposalRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *ProposalRepository) Close() error {
	return nil
}

// CreateProposal stores a proposal, enforcing one proposal per (rfp, vendor email).
// The transaction only reads the uniqueness key, so a commit conflict means a
// concurrent writer claimed the same key and is reported as ErrDuplicateKey.
func (r *ProposalRepository) CreateProposal(ctx context.Context, proposal *core.Proposal) (*core.Proposal, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		emailKey := makeProposalEmailKey(proposal.RFP, proposal.VendorEmail)
		if err := claimIndex(tx, emailKey, ""); err != nil {
			return err
		}

		proposal.Id = core.NewID()
		proposal.CreatedAt = time.Now().UTC()
		proposal.UpdatedAt = proposal.CreatedAt

		if err := writeDoc(tx, makeProposalKey(proposal.Id), proposal); err != nil {
			return err
		}
		if err := tx.Set(emailKey, storage.MarshalID(proposal.Id)); err != nil {
			return err
		}
		if err := tx.Set(makeProposalRFPKey(proposal.RFP, proposal.Id), storage.MarshalID(proposal.Id)); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			if errors.Is(err, badger.ErrConflict) {
				return storage.ErrDuplicateKey
			}
			return err
		}
		return nil
	}, true)
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

// UpdateProposal replaces a stored proposal. RFP and vendor email are immutable.
func (r *ProposalRepository) UpdateProposal(ctx context.Context, proposal *core.Proposal) (*core.Proposal, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		old, err := readDoc[core.Proposal](tx, makeProposalKey(proposal.Id))
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		proposal.RFP = old.RFP
		proposal.VendorEmail = old.VendorEmail
		proposal.CreatedAt = old.CreatedAt
		proposal.UpdatedAt = time.Now().UTC()
		if err := writeDoc(tx, makeProposalKey(proposal.Id), proposal); err != nil {
			return err
		}
		return commit(tx)
	}, true)
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

// GetProposal retrieves a proposal by ID.
func (r *ProposalRepository) GetProposal(ctx context.Context, id core.ID) (*core.Proposal, error) {
	var result *core.Proposal
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDoc[core.Proposal](tx, makeProposalKey(id))
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

// FindProposalByVendorEmail retrieves the proposal email sent for rfp.
func (r *ProposalRepository) FindProposalByVendorEmail(ctx context.Context, rfp core.ID, email string) (*core.Proposal, error) {
	var result *core.Proposal
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		id, err := readIndex(tx, makeProposalEmailKey(rfp, email))
		if err != nil {
			return err
		}
		if id == "" {
			return storage.ErrNotFound
		}
		result, err = readDoc[core.Proposal](tx, makeProposalKey(id))
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

// ListProposals returns rfp's proposals, newest first.
func (r *ProposalRepository) ListProposals(ctx context.Context, rfp core.ID) ([]*core.Proposal, error) {
	var results []*core.Proposal
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		results, err = readProposalsTx(tx, rfp)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(results, func(a, b *core.Proposal) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return results, nil
}

// AwardProposal marks one proposal awarded, the rest of its RFP's proposals
// rejected, and the RFP closed.
func (r *ProposalRepository) AwardProposal(ctx context.Context, id core.ID) (*core.Proposal, error) {
	var winner *core.Proposal
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		winner, err = readDoc[core.Proposal](tx, makeProposalKey(id))
		if err != nil {
			return err
		}
		if winner == nil {
			return storage.ErrNotFound
		}

		siblings, err := readProposalsTx(tx, winner.RFP)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, p := range siblings {
			if p.Id == id {
				continue
			}
			p.Status = core.ProposalStatusRejected
			p.UpdatedAt = now
			if err := writeDoc(tx, makeProposalKey(p.Id), p); err != nil {
				return err
			}
		}

		winner.Status = core.ProposalStatusAwarded
		winner.UpdatedAt = now
		if err := writeDoc(tx, makeProposalKey(id), winner); err != nil {
			return err
		}
		if err := closeRFPTx(tx, winner.RFP, now); err != nil {
			return err
		}
		return commit(tx)
	}, true)
	if err != nil {
		return nil, err
	}
	return winner, nil
}

func closeRFPTx(tx *badger.Txn, id core.ID, now time.Time) error {
	rfp, err := readDoc[core.RFP](tx, makeRFPKey(id))
	if err != nil {
		return err
	}
	if rfp == nil {
		return storage.ErrNotFound
	}
	if rfp.Status == core.RFPStatusClosed {
		return nil
	}
	if err := tx.Delete(makeRFPStatusKey(rfp.Status, id)); err != nil {
		return err
	}
	if err := tx.Set(makeRFPStatusKey(core.RFPStatusClosed, id), storage.MarshalID(id)); err != nil {
		return err
	}
	rfp.Status = core.RFPStatusClosed
	rfp.UpdatedAt = now
	return writeDoc(tx, makeRFPKey(id), rfp)
}

func readProposalsTx(tx *badger.Txn, rfp core.ID) ([]*core.Proposal, error) {
	ids, err := scanIndex(tx, makePartialKey(proposalRFPPrefix, rfp.String()))
	if err != nil {
		return nil, err
	}
	results := make([]*core.Proposal, 0, len(ids))
	for _, id := range ids {
		p, err := readDoc[core.Proposal](tx, makeProposalKey(id))
		if err != nil {
			return nil, err
		}
		if p != nil {
			results = append(results, p)
		}
	}
	return results, nil
}

// deleteProposalsTx removes rfp's proposals and their index entries within tx.
func deleteProposalsTx(tx *badger.Txn, rfp core.ID) error {
	proposals, err := readProposalsTx(tx, rfp)
	if err != nil {
		return err
	}
	for _, p := range proposals {
		if err := tx.Delete(makeProposalEmailKey(rfp, p.VendorEmail)); err != nil {
			return err
		}
		if err := tx.Delete(makeProposalRFPKey(rfp, p.Id)); err != nil {
			return err
		}
		if err := tx.Delete(makeProposalKey(p.Id)); err != nil {
			return err
		}
	}
	return nil
}
