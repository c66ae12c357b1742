// Package availability decides whether a candidate date range may be
// requested against a property's existing bookings, and produces the set of
// calendar ranges that must render as unavailable.
//
// Ranges are half-open [start, end): two bookings touching at a boundary date
// do not conflict. Only non-rejected bookings hold their dates; rejection
// releases the hold immediately.
package availability

import (
	"time"

	"lofshare/pkg/model"
)

// Overlaps reports whether the half-open ranges [s1, e1) and [s2, e2)
// intersect.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// FindConflict returns the first non-rejected booking whose range overlaps
// the candidate, or nil. excludeID skips the booking being edited so it does
// not conflict with itself.
func FindConflict(bookings []model.Booking, candidate model.DateRange, excludeID string) *model.Booking {
	for i := range bookings {
		b := &bookings[i]
		if b.ID == excludeID || !b.Blocks() {
			continue
		}
		if Overlaps(candidate.From, candidate.To, b.StartDate, b.EndDate) {
			return b
		}
	}
	return nil
}

// BlockedRanges returns the calendar ranges unavailable for new requests:
// every non-rejected booking's range plus everything before now.
func BlockedRanges(bookings []model.Booking, now time.Time) []model.DateRange {
	blocked := make([]model.DateRange, 0, len(bookings)+1)

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	blocked = append(blocked, model.DateRange{From: time.Time{}, To: today})

	for _, b := range bookings {
		if !b.Blocks() {
			continue
		}
		blocked = append(blocked, model.DateRange{From: b.StartDate, To: b.EndDate})
	}

	return blocked
}
