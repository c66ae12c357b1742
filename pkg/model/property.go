package model

import (
	"time"

	"lofshare/pkg/sanitizer"
)

// Property is the shared resource everything else hangs off: bookings,
// expenses and member shares are all scoped to one property. Admins are
// identified by user id, roster members by email. Members are invited by
// email before they ever sign in, so the two axes must not be mixed.
type Property struct {
	ID            string           `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name          string           `json:"name" bson:"name" validate:"required,min=2,max=100"`
	OwnerID       string           `json:"owner_id" bson:"owner_id" validate:"required"`
	Admins        []string         `json:"admins" bson:"admins" validate:"required,min=1,dive,required"`
	AllowedEmails []string         `json:"allowed_emails" bson:"allowed_emails" validate:"required,min=1,dive,email"`
	Settings      PropertySettings `json:"settings" bson:"settings"`
	CreatedAt     time.Time        `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// HasAdmin reports whether the user id is on the admin list.
func (p *Property) HasAdmin(userID string) bool {
	for _, id := range p.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

// HasMember reports whether the email is on the roster, case-insensitively.
func (p *Property) HasMember(email string) bool {
	return sanitizer.ContainsEmail(p.AllowedEmails, email)
}

// Prices holds the per-day rental rates used to cost a booking.
type Prices struct {
	AdultPerDay float64 `json:"adult_per_day" bson:"adult_per_day" validate:"min=0"`
	ChildPerDay float64 `json:"child_per_day" bson:"child_per_day" validate:"min=0"`
	Currency    string  `json:"currency" bson:"currency"`
}

type Limits struct {
	ChildMaxAge   int `json:"child_max_age" bson:"child_max_age" validate:"min=0"`
	MinDaysToBook int `json:"min_days_to_book" bson:"min_days_to_book" validate:"min=1"`
}

// FixedCost is a per-booking charge configured by the admins. Mandatory costs
// are always added to a booking's total; optional ones only when the guest
// selects them.
type FixedCost struct {
	ID       string  `json:"id" bson:"id"`
	Name     string  `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Amount   float64 `json:"amount" bson:"amount" validate:"min=0"`
	Optional bool    `json:"optional" bson:"optional"`
}

type BankDetails struct {
	AccountName   string `json:"account_name,omitempty" bson:"account_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty" bson:"account_number,omitempty"`
	AccountType   string `json:"account_type,omitempty" bson:"account_type,omitempty"`
	BankName      string `json:"bank_name,omitempty" bson:"bank_name,omitempty"`
	TaxID         string `json:"tax_id,omitempty" bson:"tax_id,omitempty"`
	Email         string `json:"email,omitempty" bson:"email,omitempty"`
}

// PropertySettings is stored inline on the property document. Old documents
// predate several fields, so Normalize runs once at every load site instead of
// scattering nil checks through the callers.
type PropertySettings struct {
	Prices      Prices       `json:"prices" bson:"prices"`
	Limits      Limits       `json:"limits" bson:"limits"`
	FixedCosts  []FixedCost  `json:"fixed_costs" bson:"fixed_costs,omitempty"`
	BankDetails *BankDetails `json:"bank_details,omitempty" bson:"bank_details,omitempty"`
}

const (
	DefaultCurrency      = "CLP"
	DefaultChildMaxAge   = 6
	DefaultMinDaysToBook = 1
)

// Normalize fills in defaults for fields absent from older documents.
func (s *PropertySettings) Normalize() {
	if s.Prices.Currency == "" {
		s.Prices.Currency = DefaultCurrency
	}
	if s.Limits.ChildMaxAge == 0 {
		s.Limits.ChildMaxAge = DefaultChildMaxAge
	}
	if s.Limits.MinDaysToBook == 0 {
		s.Limits.MinDaysToBook = DefaultMinDaysToBook
	}
	if s.FixedCosts == nil {
		s.FixedCosts = []FixedCost{}
	}
}

// FixedCostByID returns nil when the id is unknown.
func (s *PropertySettings) FixedCostByID(id string) *FixedCost {
	for i := range s.FixedCosts {
		if s.FixedCosts[i].ID == id {
			return &s.FixedCosts[i]
		}
	}
	return nil
}
