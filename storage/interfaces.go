package storage

import (
	"context"

	"github.com/poiesic/bidgrid/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases resources held by the repository.
	Close() error
}

// UserRepository stores user accounts.
type UserRepository interface {
	Repository
	// CreateUser assigns an ID and timestamps and stores the user.
	// Returns ErrDuplicateKey if the email or username is taken.
	CreateUser(ctx context.Context, user *core.User) (*core.User, error)

	// UpdateUser replaces a stored user, maintaining the email and username indices.
	// Returns ErrNotFound if the user doesn't exist and ErrDuplicateKey on conflicts.
	UpdateUser(ctx context.Context, user *core.User) (*core.User, error)

	// GetUser retrieves a user by ID.
	// Returns ErrNotFound if the user doesn't exist.
	GetUser(ctx context.Context, id core.ID) (*core.User, error)

	// FindUserByEmail retrieves a user by normalized email.
	FindUserByEmail(ctx context.Context, email string) (*core.User, error)

	// FindUserByUsername retrieves a user by normalized username.
	FindUserByUsername(ctx context.Context, username string) (*core.User, error)
}

// VendorQuery filters and pages a vendor listing.
type VendorQuery struct {
	// Search is a case-insensitive substring matched against name, email and company.
	Search string
	// Tag restricts results to vendors carrying this tag.
	Tag string
	// Page is 1-based.
	Page  int
	Limit int
}

// VendorRepository stores each user's vendors.
type VendorRepository interface {
	Repository
	// CreateVendor stores a new vendor.
	// Returns ErrDuplicateKey if the owner already has a vendor with this email.
	CreateVendor(ctx context.Context, vendor *core.Vendor) (*core.Vendor, error)

	// UpdateVendor replaces a vendor owned by vendor.CreatedBy.
	// Returns ErrNotFound or ErrDuplicateKey.
	UpdateVendor(ctx context.Context, vendor *core.Vendor) (*core.Vendor, error)

	// DeleteVendor removes a vendor owned by owner.
	// Returns ErrNotFound if no such vendor exists for owner.
	DeleteVendor(ctx context.Context, owner, id core.ID) error

	// GetVendor retrieves a vendor owned by owner.
	GetVendor(ctx context.Context, owner, id core.ID) (*core.Vendor, error)

	// GetVendors retrieves vendors by ID regardless of owner.
	// Returns only the vendors that exist, in the order requested.
	GetVendors(ctx context.Context, ids ...core.ID) ([]*core.Vendor, error)

	// FindVendorByEmail retrieves owner's vendor with the given email.
	FindVendorByEmail(ctx context.Context, owner core.ID, email string) (*core.Vendor, error)

	// ListVendors returns one page of owner's vendors, newest first, and the
	// total number of matches.
	ListVendors(ctx context.Context, owner core.ID, query VendorQuery) ([]*core.Vendor, int, error)
}

// RFPRepository stores RFPs with their embedded chat history.
type RFPRepository interface {
	Repository
	// CreateRFP assigns an ID and timestamps and stores the RFP.
	CreateRFP(ctx context.Context, rfp *core.RFP) (*core.RFP, error)

	// UpdateRFP replaces a stored RFP and refreshes UpdatedAt.
	// Returns ErrNotFound if the RFP doesn't exist.
	UpdateRFP(ctx context.Context, rfp *core.RFP) (*core.RFP, error)

	// DeleteRFP removes owner's RFP and every proposal submitted for it.
	// Returns ErrNotFound if no such RFP exists for owner.
	DeleteRFP(ctx context.Context, owner, id core.ID) error

	// GetRFP retrieves an RFP by ID regardless of owner.
	GetRFP(ctx context.Context, id core.ID) (*core.RFP, error)

	// GetOwnedRFP retrieves an RFP only if it belongs to owner.
	GetOwnedRFP(ctx context.Context, owner, id core.ID) (*core.RFP, error)

	// ListRFPs returns owner's RFPs, most recently updated first.
	// An empty status matches every status.
	ListRFPs(ctx context.Context, owner core.ID, status core.RFPStatus) ([]*core.RFP, error)

	// ListRFPsByStatus returns every RFP in the given status across all owners.
	ListRFPsByStatus(ctx context.Context, status core.RFPStatus) ([]*core.RFP, error)
}

// ProposalRepository stores vendor proposals.
type ProposalRepository interface {
	Repository
	// CreateProposal stores a new proposal.
	// Returns ErrDuplicateKey if the vendor email already has a proposal for the RFP.
	CreateProposal(ctx context.Context, proposal *core.Proposal) (*core.Proposal, error)

	// UpdateProposal replaces a stored proposal.
	UpdateProposal(ctx context.Context, proposal *core.Proposal) (*core.Proposal, error)

	// GetProposal retrieves a proposal by ID.
	GetProposal(ctx context.Context, id core.ID) (*core.Proposal, error)

	// FindProposalByVendorEmail retrieves the proposal a vendor email sent for an RFP.
	FindProposalByVendorEmail(ctx context.Context, rfp core.ID, email string) (*core.Proposal, error)

	// ListProposals returns an RFP's proposals, newest first.
	ListProposals(ctx context.Context, rfp core.ID) ([]*core.Proposal, error)

	// AwardProposal marks the proposal awarded, every other proposal for the
	// same RFP rejected and the RFP closed, in a single transaction.
	AwardProposal(ctx context.Context, id core.ID) (*core.Proposal, error)
}

// InboxRepository remembers which inbound emails have been turned into proposals.
type InboxRepository interface {
	Repository
	// MarkProcessed records fingerprints of handled emails.
	MarkProcessed(ctx context.Context, fingerprints ...string) error

	// IsProcessed reports whether a fingerprint has been recorded.
	IsProcessed(ctx context.Context, fingerprint string) (bool, error)
}
