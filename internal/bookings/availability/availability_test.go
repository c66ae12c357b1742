package availability

import (
	"testing"
	"time"

	"lofshare/pkg/model"
)

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name           string
		s1, e1, s2, e2 time.Time
		want           bool
	}{
		{"identical ranges", day(1), day(5), day(1), day(5), true},
		{"partial overlap at start", day(1), day(5), day(3), day(8), true},
		{"partial overlap at end", day(3), day(8), day(1), day(5), true},
		{"contained range", day(1), day(10), day(3), day(5), true},
		{"touching boundaries do not overlap", day(1), day(5), day(5), day(8), false},
		{"touching boundaries reversed", day(5), day(8), day(1), day(5), false},
		{"disjoint ranges", day(1), day(3), day(6), day(9), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.s1, tt.e1, tt.s2, tt.e2); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindConflict(t *testing.T) {
	bookings := []model.Booking{
		{ID: "b1", StartDate: day(1), EndDate: day(5), Status: model.BookingConfirmed},
		{ID: "b2", StartDate: day(10), EndDate: day(15), Status: model.BookingPending},
		{ID: "b3", StartDate: day(20), EndDate: day(25), Status: model.BookingRejected},
	}

	tests := []struct {
		name      string
		candidate model.DateRange
		excludeID string
		wantID    string
	}{
		{
			name:      "conflicts with confirmed booking",
			candidate: model.DateRange{From: day(3), To: day(7)},
			wantID:    "b1",
		},
		{
			name:      "conflicts with pending booking",
			candidate: model.DateRange{From: day(14), To: day(16)},
			wantID:    "b2",
		},
		{
			name:      "rejected booking releases its dates",
			candidate: model.DateRange{From: day(20), To: day(25)},
			wantID:    "",
		},
		{
			name:      "free range between bookings",
			candidate: model.DateRange{From: day(5), To: day(10)},
			wantID:    "",
		},
		{
			name:      "editing a booking skips itself",
			candidate: model.DateRange{From: day(1), To: day(5)},
			excludeID: "b1",
			wantID:    "",
		},
		{
			name:      "edit still conflicts with other bookings",
			candidate: model.DateRange{From: day(4), To: day(12)},
			excludeID: "b1",
			wantID:    "b2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindConflict(bookings, tt.candidate, tt.excludeID)
			gotID := ""
			if got != nil {
				gotID = got.ID
			}
			if gotID != tt.wantID {
				t.Errorf("FindConflict() = %q, want %q", gotID, tt.wantID)
			}
		})
	}
}

func TestBlockedRanges(t *testing.T) {
	now := day(10)
	bookings := []model.Booking{
		{ID: "b1", StartDate: day(12), EndDate: day(15), Status: model.BookingConfirmed},
		{ID: "b2", StartDate: day(16), EndDate: day(18), Status: model.BookingPending},
		{ID: "b3", StartDate: day(20), EndDate: day(25), Status: model.BookingRejected},
	}

	blocked := BlockedRanges(bookings, now)

	// Past dates plus the two non-rejected bookings.
	if len(blocked) != 3 {
		t.Fatalf("len(blocked) = %d, want 3", len(blocked))
	}
	if !blocked[0].To.Equal(day(10)) {
		t.Errorf("past block ends at %v, want %v", blocked[0].To, day(10))
	}
	for _, r := range blocked[1:] {
		if r.From.Equal(day(20)) {
			t.Error("rejected booking must not appear in the blocking set")
		}
	}
}
