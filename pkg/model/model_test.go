package model

import (
	"testing"
	"time"
)

func TestPropertySettings_Normalize(t *testing.T) {
	var s PropertySettings
	s.Normalize()

	if s.Prices.Currency != DefaultCurrency {
		t.Errorf("expected currency %q, got %q", DefaultCurrency, s.Prices.Currency)
	}
	if s.Limits.ChildMaxAge != DefaultChildMaxAge {
		t.Errorf("expected child max age %d, got %d", DefaultChildMaxAge, s.Limits.ChildMaxAge)
	}
	if s.Limits.MinDaysToBook != DefaultMinDaysToBook {
		t.Errorf("expected min days %d, got %d", DefaultMinDaysToBook, s.Limits.MinDaysToBook)
	}
	if s.FixedCosts == nil {
		t.Errorf("expected fixed costs defaulted to empty slice")
	}
}

func TestPropertySettings_NormalizeKeepsExisting(t *testing.T) {
	s := PropertySettings{
		Prices: Prices{AdultPerDay: 3600, Currency: "USD"},
		Limits: Limits{ChildMaxAge: 10, MinDaysToBook: 2},
		FixedCosts: []FixedCost{
			{ID: "fc1", Name: "Cleaning", Amount: 20000},
		},
	}
	s.Normalize()

	if s.Prices.Currency != "USD" {
		t.Errorf("Normalize must not overwrite an explicit currency")
	}
	if s.Limits.ChildMaxAge != 10 || s.Limits.MinDaysToBook != 2 {
		t.Errorf("Normalize must not overwrite explicit limits")
	}
	if len(s.FixedCosts) != 1 {
		t.Errorf("Normalize must not drop configured fixed costs")
	}
}

func TestMemberShare_Mode(t *testing.T) {
	pct := 25.0
	zero := 0.0

	tests := []struct {
		name     string
		share    MemberShare
		expected AllocationMode
	}{
		{"unset", MemberShare{}, ModeUnset},
		{"percentage only", MemberShare{SharePercentage: &pct}, ModePercentage},
		{"tag only", MemberShare{TagID: "t1"}, ModeTag},
		{"custom only", MemberShare{CustomAmount: &zero}, ModeCustomAmount},
		{"custom beats tag", MemberShare{TagID: "t1", CustomAmount: &zero}, ModeCustomAmount},
		{"tag beats percentage", MemberShare{TagID: "t1", SharePercentage: &pct}, ModeTag},
		{"custom beats everything", MemberShare{TagID: "t1", SharePercentage: &pct, CustomAmount: &zero}, ModeCustomAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.share.Mode(); got != tt.expected {
				t.Errorf("Mode() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestBooking_Blocks(t *testing.T) {
	for status, want := range map[string]bool{
		BookingPending:   true,
		BookingConfirmed: true,
		BookingRejected:  false,
	} {
		b := Booking{Status: status}
		if b.Blocks() != want {
			t.Errorf("Blocks() for %s = %v, want %v", status, b.Blocks(), want)
		}
	}
}

func TestBooking_Nights(t *testing.T) {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	b := Booking{StartDate: start, EndDate: start.AddDate(0, 0, 4)}
	if b.Nights() != 4 {
		t.Errorf("Nights() = %d, want 4", b.Nights())
	}
}
