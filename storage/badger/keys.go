package badger

import (
	"github.com/poiesic/bidgrid/core"
)

// Key prefixes for different data types.
// Every prefix ends in ':' so no prefix is a prefix of another.
const (
	userPrefix          = "usr:"
	userEmailPrefix     = "usreml:"
	userNamePrefix      = "usrnam:"
	vendorPrefix        = "vnd:"
	vendorOwnerPrefix   = "vndown:"
	vendorEmailPrefix   = "vndeml:"
	rfpPrefix           = "rfp:"
	rfpOwnerPrefix      = "rfpown:"
	rfpStatusPrefix     = "rfpsta:"
	proposalPrefix      = "prp:"
	proposalRFPPrefix   = "prprfp:"
	proposalEmailPrefix = "prpeml:"
	inboxPrefix         = "inbox:"
)

func makeKey(prefix string, parts ...string) []byte {
	n := len(prefix)
	for _, p := range parts {
		n += len(p) + 1
	}
	buf := make([]byte, 0, n)
	buf = append(buf, prefix...)
	for i, p := range parts {
		if i > 0 {
			buf = append(buf, ':')
		}
		buf = append(buf, p...)
	}
	return buf
}

// makePartialKey builds a prefix ending in ':' for scanning composite keys.
func makePartialKey(prefix string, parts ...string) []byte {
	return append(makeKey(prefix, parts...), ':')
}

func makeUserKey(id core.ID) []byte {
	return makeKey(userPrefix, id.String())
}

func makeUserEmailKey(email string) []byte {
	return makeKey(userEmailPrefix, email)
}

func makeUserNameKey(username string) []byte {
	return makeKey(userNamePrefix, username)
}

func makeVendorKey(id core.ID) []byte {
	return makeKey(vendorPrefix, id.String())
}

// makeVendorOwnerKey indexes vendors by owner.
// Format: prefix:owner:vendor
func makeVendorOwnerKey(owner, id core.ID) []byte {
	return makeKey(vendorOwnerPrefix, owner.String(), id.String())
}

// makeVendorEmailKey enforces one vendor per (owner, email).
// Format: prefix:owner:email
func makeVendorEmailKey(owner core.ID, email string) []byte {
	return makeKey(vendorEmailPrefix, owner.String(), email)
}

func makeRFPKey(id core.ID) []byte {
	return makeKey(rfpPrefix, id.String())
}

// makeRFPOwnerKey indexes RFPs by owner.
// Format: prefix:owner:rfp
func makeRFPOwnerKey(owner, id core.ID) []byte {
	return makeKey(rfpOwnerPrefix, owner.String(), id.String())
}

// makeRFPStatusKey indexes RFPs by status across owners.
// Format: prefix:status:rfp
func makeRFPStatusKey(status core.RFPStatus, id core.ID) []byte {
	return makeKey(rfpStatusPrefix, string(status), id.String())
}

func makeProposalKey(id core.ID) []byte {
	return makeKey(proposalPrefix, id.String())
}

// makeProposalRFPKey indexes proposals by RFP.
// Format: prefix:rfp:proposal
func makeProposalRFPKey(rfp, id core.ID) []byte {
	return makeKey(proposalRFPPrefix, rfp.String(), id.String())
}

// makeProposalEmailKey enforces one proposal per (rfp, vendor email).
// Format: prefix:rfp:email
func makeProposalEmailKey(rfp core.ID, email string) []byte {
	return makeKey(proposalEmailPrefix, rfp.String(), email)
}

func makeInboxKey(fingerprint string) []byte {
	return makeKey(inboxPrefix, fingerprint)
}
