package model

import (
	"time"
)

const (
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyYearly    = "yearly"
	FrequencyOneTime   = "one-time"
)

// SharedExpense is one named cost in the pool divided among the members.
// A one-time expense is charged only in its creation month; any recurring
// frequency is charged every month from creation onward. The quarterly and
// yearly labels do not change the cadence; they are display hints carried
// over from the admins' bookkeeping.
type SharedExpense struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	PropertyID string    `json:"property_id" bson:"property_id" validate:"required,mongodb"`
	Name       string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Amount     float64   `json:"amount" bson:"amount" validate:"required,gt=0"`
	Frequency  string    `json:"frequency" bson:"frequency" validate:"required,oneof=monthly quarterly yearly one-time"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// MemberTag is a reusable allocation cohort: members holding the tag split
// SharePercentage of the variable pool between them, each additionally paying
// the flat FixedFee.
type MemberTag struct {
	ID              string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	PropertyID      string    `json:"property_id" bson:"property_id" validate:"required,mongodb"`
	Name            string    `json:"name" bson:"name" validate:"required,min=1,max=100"`
	SharePercentage float64   `json:"share_percentage" bson:"share_percentage" validate:"min=0,max=100"`
	FixedFee        float64   `json:"fixed_fee" bson:"fixed_fee" validate:"min=0"`
	Color           string    `json:"color,omitempty" bson:"color,omitempty"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// MemberShare binds one member (by lowercased email) to one allocation mode
// within a property. At most one record may exist per
// (property_id, member_email, tag_id) triple; the write path enforces this.
type MemberShare struct {
	ID              string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	PropertyID      string    `json:"property_id" bson:"property_id" validate:"required,mongodb"`
	MemberEmail     string    `json:"member_email" bson:"member_email" validate:"required,email"`
	TagID           string    `json:"tag_id,omitempty" bson:"tag_id,omitempty" validate:"omitempty,mongodb"`
	SharePercentage *float64  `json:"share_percentage,omitempty" bson:"share_percentage,omitempty" validate:"omitempty,min=0,max=100"`
	CustomAmount    *float64  `json:"custom_amount,omitempty" bson:"custom_amount,omitempty" validate:"omitempty,min=0"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// AllocationMode is the tagged variant behind a share's three optional fields.
// Precedence is fixed: a custom amount beats a tag reference, which beats a
// direct percentage. Matching on the mode keeps the precedence rule in one
// place instead of an if/else chain at every read site.
type AllocationMode int

const (
	ModeUnset AllocationMode = iota
	ModeCustomAmount
	ModeTag
	ModePercentage
)

func (m AllocationMode) String() string {
	switch m {
	case ModeCustomAmount:
		return "custom_amount"
	case ModeTag:
		return "tag"
	case ModePercentage:
		return "percentage"
	default:
		return "unset"
	}
}

// Mode returns the share's active allocation mode. An explicit zero custom
// amount still counts as an override.
func (s *MemberShare) Mode() AllocationMode {
	switch {
	case s.CustomAmount != nil:
		return ModeCustomAmount
	case s.TagID != "":
		return ModeTag
	case s.SharePercentage != nil:
		return ModePercentage
	default:
		return ModeUnset
	}
}

// MemberShareUpdate carries a partial update to a share. Email, when present,
// is re-normalized to lowercase on write even for partial updates.
type MemberShareUpdate struct {
	MemberEmail     string   `json:"member_email,omitempty" validate:"omitempty,email"`
	TagID           *string  `json:"tag_id,omitempty" validate:"omitempty"`
	SharePercentage *float64 `json:"share_percentage,omitempty" validate:"omitempty,min=0,max=100"`
	CustomAmount    *float64 `json:"custom_amount,omitempty" validate:"omitempty,min=0"`
}
