// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DefaultCurrency is applied to prices and budgets without a currency.
	DefaultCurrency = "USD"

	maxVendorTags = 10
)

// IsValidEmail reports whether s is a bare email address with no display name.
func IsValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParseDate accepts either an RFC 3339 timestamp or a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t.UTC(), nil
}

func tooLong(s string, max int) bool {
	return utf8.RuneCountInString(s) > max
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

// VendorInput is the payload for creating a vendor.
type VendorInput struct {
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Company string   `json:"company"`
	Phone   string   `json:"phone"`
	Tags    []string `json:"tags"`
	Notes   string   `json:"notes"`
}

// Normalize trims strings and lowercases the email and tags.
func (in *VendorInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	in.Company = strings.TrimSpace(in.Company)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Notes = strings.TrimSpace(in.Notes)
	in.Tags = normalizeTags(in.Tags)
}

// Validate checks a normalized VendorInput.
//
// Validation rules:
//   - Name is 1..100 characters
//   - Email is present and well formed
//   - Company at most 100, phone at most 20, notes at most 500 characters
//   - At most 10 tags
func (in *VendorInput) Validate() error {
	if in.Name == "" {
		return fieldErr("name", "Name is required")
	}
	if tooLong(in.Name, 100) {
		return fieldErr("name", "Name must be less than 100 characters")
	}
	if in.Email == "" {
		return fieldErr("email", "Email is required")
	}
	if !IsValidEmail(in.Email) {
		return fieldErr("email", "Invalid email format")
	}
	return validateVendorOptional(&in.Company, &in.Phone, in.Tags, &in.Notes)
}

// Vendor builds a new vendor owned by owner.
func (in *VendorInput) Vendor(owner ID) *Vendor {
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	return &Vendor{
		Name:      in.Name,
		Email:     in.Email,
		Company:   in.Company,
		Phone:     in.Phone,
		Tags:      tags,
		Notes:     in.Notes,
		CreatedBy: owner,
	}
}

// VendorPatch is a partial vendor update. Nil fields are left unchanged.
type VendorPatch struct {
	Name    *string   `json:"name"`
	Email   *string   `json:"email"`
	Company *string   `json:"company"`
	Phone   *string   `json:"phone"`
	Tags    *[]string `json:"tags"`
	Notes   *string   `json:"notes"`
}

// Normalize applies the same normalization as VendorInput to present fields.
func (p *VendorPatch) Normalize() {
	trimPtr(p.Name)
	if p.Email != nil {
		*p.Email = NormalizeEmail(*p.Email)
	}
	trimPtr(p.Company)
	trimPtr(p.Phone)
	trimPtr(p.Notes)
	if p.Tags != nil {
		tags := normalizeTags(*p.Tags)
		p.Tags = &tags
	}
}

// Validate checks the present fields of a normalized patch.
func (p *VendorPatch) Validate() error {
	if p.Name != nil {
		if *p.Name == "" {
			return fieldErr("name", "Name is required")
		}
		if tooLong(*p.Name, 100) {
			return fieldErr("name", "Name must be less than 100 characters")
		}
	}
	if p.Email != nil {
		if *p.Email == "" {
			return fieldErr("email", "Email is required")
		}
		if !IsValidEmail(*p.Email) {
			return fieldErr("email", "Invalid email format")
		}
	}
	var tags []string
	if p.Tags != nil {
		tags = *p.Tags
	}
	return validateVendorOptional(p.Company, p.Phone, tags, p.Notes)
}

// Apply copies the present fields onto v.
func (p *VendorPatch) Apply(v *Vendor) {
	if p.Name != nil {
		v.Name = *p.Name
	}
	if p.Email != nil {
		v.Email = *p.Email
	}
	if p.Company != nil {
		v.Company = *p.Company
	}
	if p.Phone != nil {
		v.Phone = *p.Phone
	}
	if p.Tags != nil {
		v.Tags = *p.Tags
	}
	if p.Notes != nil {
		v.Notes = *p.Notes
	}
}

func validateVendorOptional(company, phone *string, tags []string, notes *string) error {
	if company != nil && tooLong(*company, 100) {
		return fieldErr("company", "Company name must be less than 100 characters")
	}
	if phone != nil && tooLong(*phone, 20) {
		return fieldErr("phone", "Phone number must be less than 20 characters")
	}
	if len(tags) > maxVendorTags {
		return fieldErr("tags", "Maximum 10 tags allowed")
	}
	if notes != nil && tooLong(*notes, 500) {
		return fieldErr("notes", "Notes must be less than 500 characters")
	}
	return nil
}

func normalizeTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, strings.ToLower(strings.TrimSpace(t)))
	}
	return out
}

// ChatInput is a single user turn in an RFP drafting conversation.
type ChatInput struct {
	Message string `json:"message"`
	RFPId   string `json:"rfpId"`
}

// Validate checks the message length and the optional RFP id.
func (in *ChatInput) Validate() error {
	if in.Message == "" {
		return fieldErr("message", "Message is required")
	}
	if tooLong(in.Message, 2000) {
		return fieldErr("message", "Message too long")
	}
	if in.RFPId != "" {
		if _, err := ParseID(in.RFPId); err != nil {
			return fieldErr("rfpId", "Invalid RFP ID")
		}
	}
	return nil
}

// BudgetInput is the budget part of an RFP update.
type BudgetInput struct {
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Currency string   `json:"currency"`
}

// RFPPatch is a partial RFP update. Nil fields are left unchanged.
type RFPPatch struct {
	Title        *string        `json:"title"`
	Description  *string        `json:"description"`
	Requirements *[]string      `json:"requirements"`
	Quantity     *float64       `json:"quantity"`
	Budget       *BudgetInput   `json:"budget"`
	Deadline     *string        `json:"deadline"`
	Specs        map[string]any `json:"specs"`
	Vendors      *[]string      `json:"vendors"`
}

// Validate checks the present fields of the patch.
//
// Validation rules:
//   - Title at most 200, description at most 2000 characters
//   - Quantity strictly positive
//   - Budget bounds non-negative
//   - Deadline is an RFC 3339 timestamp
//   - Vendors are well formed IDs
func (p *RFPPatch) Validate() error {
	if p.Title != nil && tooLong(*p.Title, 200) {
		return fieldErr("title", "Title must be at most 200 characters")
	}
	if p.Description != nil && tooLong(*p.Description, 2000) {
		return fieldErr("description", "Description must be at most 2000 characters")
	}
	if p.Quantity != nil && *p.Quantity <= 0 {
		return fieldErr("quantity", "Quantity must be positive")
	}
	if p.Budget != nil {
		if p.Budget.Min != nil && *p.Budget.Min < 0 {
			return fieldErr("budget.min", "Budget minimum must be at least 0")
		}
		if p.Budget.Max != nil && *p.Budget.Max < 0 {
			return fieldErr("budget.max", "Budget maximum must be at least 0")
		}
	}
	if p.Deadline != nil {
		if _, err := time.Parse(time.RFC3339, *p.Deadline); err != nil {
			return fieldErr("deadline", "Invalid deadline")
		}
	}
	if p.Vendors != nil {
		for _, v := range *p.Vendors {
			if _, err := ParseID(v); err != nil {
				return fieldErr("vendors", "Invalid vendor ID")
			}
		}
	}
	return nil
}

// Apply copies the present fields onto r. The patch must have been validated.
func (p *RFPPatch) Apply(r *RFP) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Requirements != nil {
		r.Requirements = *p.Requirements
	}
	if p.Quantity != nil {
		q := *p.Quantity
		r.Quantity = &q
	}
	if p.Budget != nil {
		currency := p.Budget.Currency
		if currency == "" {
			currency = DefaultCurrency
		}
		r.Budget = &Budget{Min: p.Budget.Min, Max: p.Budget.Max, Currency: currency}
	}
	if p.Deadline != nil {
		t, _ := time.Parse(time.RFC3339, *p.Deadline)
		t = t.UTC()
		r.Deadline = &t
	}
	if p.Specs != nil {
		r.Specs = p.Specs
	}
	if p.Vendors != nil {
		ids := make([]ID, 0, len(*p.Vendors))
		for _, v := range *p.Vendors {
			id, _ := ParseID(v)
			ids = append(ids, id)
		}
		r.Vendors = ids
	}
}

// PriceInput is the price part of a proposal submission.
type PriceInput struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// ProposalSubmission is the public form a vendor fills in.
type ProposalSubmission struct {
	VendorEmail  string     `json:"vendorEmail"`
	VendorName   string     `json:"vendorName"`
	Price        PriceInput `json:"price"`
	Timeline     string     `json:"timeline"`
	DeliveryDate string     `json:"deliveryDate"`
	Terms        string     `json:"terms"`
	Notes        string     `json:"notes"`
}

// Normalize lowercases the vendor email and defaults the currency.
func (s *ProposalSubmission) Normalize() {
	s.VendorEmail = NormalizeEmail(s.VendorEmail)
	if s.Price.Currency == "" {
		s.Price.Currency = DefaultCurrency
	}
}

// Validate checks a normalized submission.
func (s *ProposalSubmission) Validate() error {
	if !IsValidEmail(s.VendorEmail) {
		return fieldErr("vendorEmail", "Valid email required")
	}
	if s.VendorName == "" {
		return fieldErr("vendorName", "Vendor name required")
	}
	if tooLong(s.VendorName, 200) {
		return fieldErr("vendorName", "Vendor name must be at most 200 characters")
	}
	if s.Price.Amount <= 0 {
		return fieldErr("price.amount", "Price must be positive")
	}
	if s.Timeline == "" {
		return fieldErr("timeline", "Timeline required")
	}
	if tooLong(s.Timeline, 100) {
		return fieldErr("timeline", "Timeline must be at most 100 characters")
	}
	if strings.TrimSpace(s.DeliveryDate) != "" {
		if _, err := ParseDate(s.DeliveryDate); err != nil {
			return fieldErr("deliveryDate", "Invalid delivery date")
		}
	}
	if tooLong(s.Terms, 2000) {
		return fieldErr("terms", "Terms must be at most 2000 characters")
	}
	if tooLong(s.Notes, 2000) {
		return fieldErr("notes", "Notes must be at most 2000 characters")
	}
	return nil
}

// Proposal builds a submitted proposal for rfp. vendor may be empty when the
// sender is not in the RFP owner's vendor list.
func (s *ProposalSubmission) Proposal(rfp, vendor ID) *Proposal {
	p := &Proposal{
		RFP:         rfp,
		Vendor:      vendor,
		VendorEmail: s.VendorEmail,
		VendorName:  s.VendorName,
		Price:       Price{Amount: s.Price.Amount, Currency: s.Price.Currency},
		Timeline:    s.Timeline,
		Notes:       s.Notes,
		Source:      ProposalSourceForm,
		Status:      ProposalStatusSubmitted,
	}
	if strings.TrimSpace(s.Terms) != "" {
		p.Terms = []string{s.Terms}
	}
	if strings.TrimSpace(s.DeliveryDate) != "" {
		if t, err := ParseDate(s.DeliveryDate); err == nil {
			p.DeliveryDate = &t
		}
	}
	return p
}

// ProposalReview is the owner's update of a proposal.
type ProposalReview struct {
	Status      *ProposalStatus `json:"status"`
	Score       *float64        `json:"score"`
	ReviewNotes *string         `json:"reviewNotes"`
}

// Validate checks the present review fields.
func (r *ProposalReview) Validate() error {
	if r.Status != nil {
		switch *r.Status {
		case ProposalStatusSubmitted, ProposalStatusReviewed, ProposalStatusShortlisted,
			ProposalStatusRejected, ProposalStatusAwarded:
		default:
			return fieldErr("status", "Invalid status")
		}
	}
	if r.Score != nil && (*r.Score < 0 || *r.Score > 10) {
		return fieldErr("score", "Score must be between 0 and 10")
	}
	if r.ReviewNotes != nil && tooLong(*r.ReviewNotes, 1000) {
		return fieldErr("reviewNotes", "Review notes must be at most 1000 characters")
	}
	return nil
}

// Apply copies the present fields onto p.
func (r *ProposalReview) Apply(p *Proposal) {
	if r.Status != nil {
		p.Status = *r.Status
	}
	if r.Score != nil {
		s := *r.Score
		p.Score = &s
	}
	if r.ReviewNotes != nil {
		p.ReviewNotes = *r.ReviewNotes
	}
}

// Registration creates a user account.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Password string `json:"password"`
}

// Normalize trims fields and lowercases the username and email.
func (r *Registration) Normalize() {
	r.Username = strings.ToLower(strings.TrimSpace(r.Username))
	r.Email = NormalizeEmail(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
}

// Validate checks a normalized registration.
func (r *Registration) Validate() error {
	if r.Username == "" || r.Email == "" || r.FullName == "" || r.Password == "" {
		return fieldErr("", "All fields are required")
	}
	if n := utf8.RuneCountInString(r.Username); n < 3 || n > 50 {
		return fieldErr("username", "Username must be between 3 and 50 characters")
	}
	if !IsValidEmail(r.Email) {
		return fieldErr("email", "Invalid email format")
	}
	if tooLong(r.FullName, 100) {
		return fieldErr("fullName", "Full name must be less than 100 characters")
	}
	if utf8.RuneCountInString(r.Password) < 8 {
		return fieldErr("password", "Password must be at least 8 characters")
	}
	return nil
}

// Credentials identify a user by username or email plus password.
type Credentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Normalize lowercases identifiers.
func (c *Credentials) Normalize() {
	c.Username = strings.ToLower(strings.TrimSpace(c.Username))
	c.Email = NormalizeEmail(c.Email)
}

// Validate requires an identifier and a password.
func (c *Credentials) Validate() error {
	if c.Username == "" && c.Email == "" {
		return fieldErr("email", "Username or email is required")
	}
	if c.Password == "" {
		return fieldErr("password", "Password is required")
	}
	return nil
}

// AccountPatch updates a user's profile.
type AccountPatch struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// Normalize trims the name and normalizes the email.
func (a *AccountPatch) Normalize() {
	a.FullName = strings.TrimSpace(a.FullName)
	a.Email = NormalizeEmail(a.Email)
}

// Validate requires both fields.
func (a *AccountPatch) Validate() error {
	if a.FullName == "" || a.Email == "" {
		return fieldErr("", "All fields are required")
	}
	if tooLong(a.FullName, 100) {
		return fieldErr("fullName", "Full name must be less than 100 characters")
	}
	if !IsValidEmail(a.Email) {
		return fieldErr("email", "Invalid email format")
	}
	return nil
}

// PasswordChange replaces a user's password.
type PasswordChange struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// Validate requires the old password and a sufficiently long new one.
func (p *PasswordChange) Validate() error {
	if p.OldPassword == "" {
		return fieldErr("oldPassword", "Old password is required")
	}
	if utf8.RuneCountInString(p.NewPassword) < 8 {
		return fieldErr("newPassword", "Password must be at least 8 characters")
	}
	return nil
}
