package ingestion

import "errors"

var (
	// ErrRepositoryRequired is returned when a repository is not provided.
	ErrRepositoryRequired = errors.New("repository required")

	// ErrParserRequired is returned when a proposal parser is not provided.
	ErrParserRequired = errors.New("proposal parser required")

	// ErrDialerRequired is returned when a mailbox dialer is not provided.
	ErrDialerRequired = errors.New("mailbox dialer required")

	// errAlreadyResponded marks a sender that already has a proposal for the RFP.
	errAlreadyResponded = errors.New("vendor already responded")
)
