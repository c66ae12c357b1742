package model

import "time"

const (
	NotifyBookingRequest  = "booking_request"
	NotifyBookingApproved = "booking_approved"
	NotifyBookingRejected = "booking_rejected"
	NotifyExpenseCreated  = "expense_created"
	NotifyMemberAdded     = "member_added"
)

// NotificationEvent is the fire-and-forget payload published after a state
// transition. Delivery is best effort; the mutation that produced the event
// never depends on it.
type NotificationEvent struct {
	UserID string            `json:"user_id" validate:"required"`
	Type   string            `json:"type" validate:"required,oneof=booking_request booking_approved booking_rejected expense_created member_added"`
	Data   map[string]string `json:"data,omitempty"`
}

// Notification is the persisted in-app form of a delivered event.
type Notification struct {
	ID        string            `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	UserID    string            `json:"user_id" bson:"user_id" validate:"required"`
	Type      string            `json:"type" bson:"type" validate:"required"`
	Data      map[string]string `json:"data,omitempty" bson:"data,omitempty"`
	IsRead    bool              `json:"is_read" bson:"is_read"`
	CreatedAt time.Time         `json:"created_at" bson:"created_at" validate:"omitempty"`
}
