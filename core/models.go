package core

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// ID is a unique identifier for domain entities.
// IDs are random UUIDs rendered in canonical string form.
type ID string

// NewID returns a fresh random ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// ParseID validates s and returns it as an ID in canonical form.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return ID(u.String()), nil
}

// String returns the ID as a plain string.
func (id ID) String() string {
	return string(id)
}

// Fingerprint computes a stable BLAKE2b digest over the given parts.
// Parts are separated by a zero byte so ("ab","c") and ("a","bc") differ.
func Fingerprint(parts ...string) string {
	h, _ := blake2b.New(16, nil)
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// User is an account that owns vendors and RFPs.
type User struct {
	Id           ID        `json:"_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	PasswordHash string    `json:"-"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Vendor is a supplier in a user's address book.
type Vendor struct {
	Id        ID        `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Tags      []string  `json:"tags"`
	Notes     string    `json:"notes,omitempty"`
	CreatedBy ID        `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// VendorSummary is the subset of a vendor shown alongside RFPs and proposals.
type VendorSummary struct {
	Id      ID     `json:"_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company,omitempty"`
}

// Summary returns the vendor's summary view.
func (v *Vendor) Summary() VendorSummary {
	return VendorSummary{Id: v.Id, Name: v.Name, Email: v.Email, Company: v.Company}
}

// Budget is a price range for an RFP.
type Budget struct {
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Currency string   `json:"currency"`
}

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is a single turn of an RFP drafting conversation.
type ChatMessage struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// RFPStatus is the lifecycle state of an RFP.
type RFPStatus string

const (
	// RFPStatusDrafting means the drafting conversation is still collecting details.
	RFPStatusDrafting RFPStatus = "drafting"
	// RFPStatusDraft means all details are known and the RFP can be sent.
	RFPStatusDraft RFPStatus = "draft"
	// RFPStatusSent means the RFP has gone out and accepts proposals.
	RFPStatusSent RFPStatus = "sent"
	// RFPStatusClosed means a proposal has been awarded.
	RFPStatusClosed RFPStatus = "closed"
)

// Valid reports whether s is a known status.
func (s RFPStatus) Valid() bool {
	switch s {
	case RFPStatusDrafting, RFPStatusDraft, RFPStatusSent, RFPStatusClosed:
		return true
	}
	return false
}

// RFP is a request for proposal together with its drafting history.
type RFP struct {
	Id           ID             `json:"_id"`
	Title        string         `json:"title,omitempty"`
	Description  string         `json:"description,omitempty"`
	Requirements []string       `json:"requirements"`
	Quantity     *float64       `json:"quantity,omitempty"`
	Budget       *Budget        `json:"budget,omitempty"`
	Deadline     *time.Time     `json:"deadline,omitempty"`
	Specs        map[string]any `json:"specs,omitempty"`
	Status       RFPStatus      `json:"status"`
	Vendors      []ID           `json:"vendors"`
	CreatedBy    ID             `json:"createdBy"`
	ChatHistory  []ChatMessage  `json:"chatHistory,omitempty"`
	IsComplete   bool           `json:"isComplete"`
	SentAt       *time.Time     `json:"sentAt,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// AcceptsProposals reports whether vendors may currently respond.
func (r *RFP) AcceptsProposals() bool {
	return r.Status == RFPStatusSent
}

// Price is a quoted amount.
type Price struct {
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Breakdown string  `json:"breakdown,omitempty"`
}

// ProposalSource records how a proposal arrived.
type ProposalSource string

const (
	ProposalSourceForm  ProposalSource = "form"
	ProposalSourceEmail ProposalSource = "email"
)

// ProposalStatus is the review state of a proposal.
type ProposalStatus string

const (
	ProposalStatusSubmitted   ProposalStatus = "submitted"
	ProposalStatusParsed      ProposalStatus = "parsed"
	ProposalStatusReviewed    ProposalStatus = "reviewed"
	ProposalStatusShortlisted ProposalStatus = "shortlisted"
	ProposalStatusRejected    ProposalStatus = "rejected"
	ProposalStatusAwarded     ProposalStatus = "awarded"
)

// ParsedProposal holds the fields an LLM extracted from a vendor reply.
type ParsedProposal struct {
	VendorName   string   `json:"vendorName,omitempty"`
	Price        *Price   `json:"price,omitempty"`
	Timeline     string   `json:"timeline,omitempty"`
	DeliveryDate string   `json:"deliveryDate,omitempty"`
	Terms        []string `json:"terms,omitempty"`
	Conditions   []string `json:"conditions,omitempty"`
	Warranty     string   `json:"warranty,omitempty"`
	KeyPoints    []string `json:"keyPoints,omitempty"`
	QuotedPrices []string `json:"quotedPrices,omitempty"`
	Completeness float64  `json:"completeness"`
	MissingInfo  []string `json:"missingInfo,omitempty"`
	Summary      string   `json:"summary,omitempty"`
}

// Proposal is a vendor's response to an RFP.
type Proposal struct {
	Id              ID              `json:"_id"`
	RFP             ID              `json:"rfp"`
	Vendor          ID              `json:"vendor,omitempty"`
	VendorEmail     string          `json:"vendorEmail"`
	VendorName      string          `json:"vendorName"`
	Price           Price           `json:"price"`
	Timeline        string          `json:"timeline,omitempty"`
	DeliveryDate    *time.Time      `json:"deliveryDate,omitempty"`
	Terms           []string        `json:"terms,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	Source          ProposalSource  `json:"source"`
	OriginalEmail   string          `json:"originalEmail,omitempty"`
	EmailSubject    string          `json:"emailSubject,omitempty"`
	AttachmentTexts []string        `json:"attachmentTexts,omitempty"`
	ParsedData      *ParsedProposal `json:"parsedData,omitempty"`
	AIScore         float64         `json:"aiScore"`
	AIAnalysis      string          `json:"aiAnalysis,omitempty"`
	Completeness    float64         `json:"completeness"`
	Status          ProposalStatus  `json:"status"`
	Score           *float64        `json:"score,omitempty"`
	ReviewNotes     string          `json:"reviewNotes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// EffectivePrice is the parsed price amount if present and non-zero,
// otherwise the submitted price amount.
func (p *Proposal) EffectivePrice() float64 {
	if p.ParsedData != nil && p.ParsedData.Price != nil && p.ParsedData.Price.Amount != 0 {
		return p.ParsedData.Price.Amount
	}
	return p.Price.Amount
}

// EffectiveCompleteness prefers the parsed completeness score.
func (p *Proposal) EffectiveCompleteness() float64 {
	if p.ParsedData != nil && p.ParsedData.Completeness != 0 {
		return p.ParsedData.Completeness
	}
	return p.Completeness
}

// DisplayName is the vendor name, or the vendor email when no name is known.
func (p *Proposal) DisplayName() string {
	if p.VendorName != "" {
		return p.VendorName
	}
	return p.VendorEmail
}
