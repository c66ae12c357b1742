package model

import (
	"time"
)

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingRejected  = "rejected"
)

// Booking is a request to occupy a property for [StartDate, EndDate). It is
// created pending and only an admin moves it to confirmed or rejected. A
// rejected booking releases its dates immediately; there is no auto-expiry.
type Booking struct {
	ID                   string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	PropertyID           string    `json:"property_id" bson:"property_id" validate:"required,mongodb"`
	UserID               string    `json:"user_id" bson:"user_id" validate:"required"`
	UserName             string    `json:"user_name" bson:"user_name" validate:"required,min=1,max=100"`
	StartDate            time.Time `json:"start_date" bson:"start_date" validate:"required"`
	EndDate              time.Time `json:"end_date" bson:"end_date" validate:"required,gtfield=StartDate"`
	Adults               int       `json:"adults" bson:"adults" validate:"required,min=1,max=50"`
	Children             int       `json:"children" bson:"children" validate:"min=0,max=50"`
	SelectedOptionalFees []string  `json:"selected_optional_fees" bson:"selected_optional_fees,omitempty"`
	TotalCost            float64   `json:"total_cost" bson:"total_cost" validate:"min=0"`
	Status               string    `json:"status" bson:"status" validate:"required,oneof=pending confirmed rejected"`
	CreatedAt            time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// Nights returns the number of occupied nights in the half-open range.
func (b *Booking) Nights() int {
	return int(b.EndDate.Sub(b.StartDate).Hours() / 24)
}

// Blocks reports whether this booking holds its dates on the calendar.
// Rejection fully releases the hold; pending and confirmed both block.
func (b *Booking) Blocks() bool {
	return b.Status != BookingRejected
}

// BookingUpdate carries an edit to an existing booking. Status is deliberately
// absent: an edited booking always re-enters the approval queue as pending,
// and status transitions go through their own operation.
type BookingUpdate struct {
	StartDate            *time.Time `json:"start_date,omitempty" validate:"omitempty"`
	EndDate              *time.Time `json:"end_date,omitempty" validate:"omitempty"`
	Adults               *int       `json:"adults,omitempty" validate:"omitempty,min=1,max=50"`
	Children             *int       `json:"children,omitempty" validate:"omitempty,min=0,max=50"`
	SelectedOptionalFees *[]string  `json:"selected_optional_fees,omitempty"`
}

// DateRange is a calendar span handed to the UI as unavailable.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}
