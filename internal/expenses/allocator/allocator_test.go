package allocator

import (
	"reflect"
	"testing"
	"time"

	"lofshare/pkg/model"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func floatPtr(f float64) *float64 {
	return &f
}

func TestInEffect(t *testing.T) {
	tests := []struct {
		name      string
		frequency string
		createdAt time.Time
		month     time.Time
		want      bool
	}{
		{
			name:      "one-time in creation month",
			frequency: model.FrequencyOneTime,
			createdAt: date(2026, time.March, 15),
			month:     date(2026, time.March, 1),
			want:      true,
		},
		{
			name:      "one-time excluded the following month",
			frequency: model.FrequencyOneTime,
			createdAt: date(2026, time.March, 15),
			month:     date(2026, time.April, 1),
			want:      false,
		},
		{
			name:      "one-time excluded before creation",
			frequency: model.FrequencyOneTime,
			createdAt: date(2026, time.March, 15),
			month:     date(2026, time.February, 1),
			want:      false,
		},
		{
			name:      "monthly charged from creation onward",
			frequency: model.FrequencyMonthly,
			createdAt: date(2026, time.January, 20),
			month:     date(2026, time.June, 1),
			want:      true,
		},
		{
			name:      "monthly not charged before creation",
			frequency: model.FrequencyMonthly,
			createdAt: date(2026, time.June, 1),
			month:     date(2026, time.May, 1),
			want:      false,
		},
		{
			name:      "quarterly label does not skip months",
			frequency: model.FrequencyQuarterly,
			createdAt: date(2026, time.January, 1),
			month:     date(2026, time.February, 1),
			want:      true,
		},
		{
			name:      "yearly label does not skip months",
			frequency: model.FrequencyYearly,
			createdAt: date(2026, time.January, 1),
			month:     date(2026, time.February, 1),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expense := model.SharedExpense{
				Amount:    1000,
				Frequency: tt.frequency,
				CreatedAt: tt.createdAt,
			}
			if got := InEffect(expense, tt.month); got != tt.want {
				t.Errorf("InEffect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthlyPool(t *testing.T) {
	march := date(2026, time.March, 1)
	expenses := []model.SharedExpense{
		{Amount: 100000, Frequency: model.FrequencyMonthly, CreatedAt: date(2026, time.January, 1)},
		{Amount: 40000, Frequency: model.FrequencyOneTime, CreatedAt: date(2026, time.March, 10)},
		{Amount: 99999, Frequency: model.FrequencyOneTime, CreatedAt: date(2026, time.February, 10)},
		{Amount: 5000, Frequency: model.FrequencyMonthly, CreatedAt: date(2026, time.April, 1)},
	}

	if got := MonthlyPool(expenses, march); got != 140000 {
		t.Errorf("MonthlyPool() = %v, want 140000", got)
	}
}

func TestAllocateSharedTagSplit(t *testing.T) {
	month := date(2026, time.March, 1)
	expenses := []model.SharedExpense{
		{Amount: 100000, Frequency: model.FrequencyMonthly, CreatedAt: date(2026, time.March, 5)},
	}
	tags := []model.MemberTag{
		{ID: "tag-half", SharePercentage: 50, FixedFee: 0},
	}
	shares := []model.MemberShare{
		{MemberEmail: "ana@example.com", TagID: "tag-half"},
		{MemberEmail: "ben@example.com", TagID: "tag-half"},
	}
	roster := []string{"ana@example.com", "ben@example.com"}

	got := Allocate(expenses, shares, tags, roster, month)

	// Both members share one 50% tag, cohort size 2: each owes
	// round((100000 * 0.5) / 2) = 25000.
	want := map[string]float64{
		"ana@example.com": 25000,
		"ben@example.com": 25000,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Allocate() = %v, want %v", got, want)
	}
}

func TestAllocateCustomOverrideWins(t *testing.T) {
	month := date(2026, time.March, 1)
	expenses := []model.SharedExpense{
		{Amount: 100000, Frequency: model.FrequencyMonthly, CreatedAt: date(2026, time.January, 1)},
	}
	tags := []model.MemberTag{
		{ID: "tag-half", SharePercentage: 50, FixedFee: 1000},
	}
	shares := []model.MemberShare{
		{MemberEmail: "ana@example.com", TagID: "tag-half", CustomAmount: floatPtr(12345)},
	}

	got := Allocate(expenses, shares, tags, []string{"ana@example.com"}, month)

	if got["ana@example.com"] != 12345 {
		t.Errorf("owed = %v, want 12345 (custom amount must bypass the tag)", got["ana@example.com"])
	}
}

func TestAllocateZeroCustomAmountIsAnOverride(t *testing.T) {
	month := date(2026, time.March, 1)
	expenses := []model.SharedExpense{
		{Amount: 50000, Frequency: model.FrequencyMonthly, CreatedAt: date(2026, time.January, 1)},
	}
	shares := []model.MemberShare{
		{MemberEmail: "ana@example.com", SharePercentage: floatPtr(100), CustomAmount: floatPtr(0)},
	}

	got := Allocate(expenses, shares, nil, []string{"ana@example.com"}, month)

	if got["ana@example.com"] != 0 {
		t.Errorf("owed = %v, want 0 (explicit zero custom amount)", got["ana@example.com"])
	}
}

func TestAllocateDanglingTagOwesZero(t *testing.T) {
	month := date(2026, time.March, 1)
	expenses := []model.SharedExpense{
		{Amount: 100000, Frequency: model.FrequencyMonthly, CreatedAt: date(2026, time.January, 1)},
	}
	shares := []model.MemberShare{
		{MemberEmail: "ana@example.com", TagID: "deleted-tag"},
	}

	got := Allocate(expenses, shares, nil, []string{"ana@example.com"}, month)

	owed, ok := got["ana@example.com"]
	if !ok {
		t.Fatal("member with a share record must appear in the result")
	}
	if owed != 0 {
		t.Errorf("owed = %v, want 0 for dangling tag reference", owed)
	}
}

func TestAllocateLegacyPercentage(t *testing.T) {
	month := date(2026, time.March, 1)
	expenses := []model.SharedExpense{
		{Amount: 33333, Frequency: model.FrequencyMonthly, CreatedAt: date(2026, time.January, 1)},
	}
	shares := []model.MemberShare{
		{MemberEmail: "ana@example.com", SharePercentage: floatPtr(33)},
	}

	got := Allocate(expenses, shares, nil, []string{"ana@example.com"}, month)

	// round(33333 * 0.33) = round(10999.89) = 11000
	if got["ana@example.com"] != 11000 {
		t.Errorf("owed = %v, want 11000", got["ana@example.com"])
	}
}

func TestAllocateRosterRestriction(t *testing.T) {
	month := date(2026, time.March, 1)
	expenses := []model.SharedExpense{
		{Amount: 100000, Frequency: model.FrequencyMonthly, CreatedAt: date(2026, time.January, 1)},
	}
	tags := []model.MemberTag{
		{ID: "tag-full", SharePercentage: 100, FixedFee: 0},
	}
	shares := []model.MemberShare{
		{MemberEmail: "ana@example.com", TagID: "tag-full"},
		{MemberEmail: "removed@example.com", TagID: "tag-full"},
	}

	got := Allocate(expenses, shares, tags, []string{"ana@example.com"}, month)

	if _, ok := got["removed@example.com"]; ok {
		t.Error("share for a member removed from the roster must be discarded")
	}
	// Removed member must not inflate the cohort divisor either.
	if got["ana@example.com"] != 100000 {
		t.Errorf("owed = %v, want 100000 (cohort of one)", got["ana@example.com"])
	}
}

func TestAllocateDuplicateShareRowsCountOnce(t *testing.T) {
	month := date(2026, time.March, 1)
	expenses := []model.SharedExpense{
		{Amount: 100000, Frequency: model.FrequencyMonthly, CreatedAt: date(2026, time.January, 1)},
	}
	tags := []model.MemberTag{
		{ID: "tag-full", SharePercentage: 100, FixedFee: 0},
	}
	shares := []model.MemberShare{
		{MemberEmail: "ana@example.com", TagID: "tag-full"},
		{MemberEmail: "ana@example.com", TagID: "tag-full"},
		{MemberEmail: "ben@example.com", TagID: "tag-full"},
	}
	roster := []string{"ana@example.com", "ben@example.com"}

	got := Allocate(expenses, shares, tags, roster, month)

	// Cohort is 2 distinct members, not 3 share rows.
	want := map[string]float64{
		"ana@example.com": 50000,
		"ben@example.com": 50000,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Allocate() = %v, want %v", got, want)
	}
}

func TestAllocateLastDuplicateRowWins(t *testing.T) {
	month := date(2026, time.March, 1)
	shares := []model.MemberShare{
		{MemberEmail: "ana@example.com", CustomAmount: floatPtr(10000)},
		{MemberEmail: "ana@example.com", CustomAmount: floatPtr(25000)},
	}
	roster := []string{"ana@example.com"}

	got := Allocate(nil, shares, nil, roster, month)

	if got["ana@example.com"] != 25000 {
		t.Errorf("owed = %v, the later of two conflicting rows must win", got["ana@example.com"])
	}
}

func TestAllocateConservationSingleTag(t *testing.T) {
	month := date(2026, time.March, 1)
	expenses := []model.SharedExpense{
		{Amount: 100001, Frequency: model.FrequencyMonthly, CreatedAt: date(2026, time.January, 1)},
	}
	tags := []model.MemberTag{
		{ID: "tag-all", SharePercentage: 100, FixedFee: 0},
	}
	roster := []string{"a@x.com", "b@x.com", "c@x.com"}
	shares := make([]model.MemberShare, 0, len(roster))
	for _, email := range roster {
		shares = append(shares, model.MemberShare{MemberEmail: email, TagID: "tag-all"})
	}

	got := Allocate(expenses, shares, tags, roster, month)

	var sum float64
	for _, owed := range got {
		sum += owed
	}

	// Sum over the cohort must equal the pool within rounding error bounded
	// by cohortSize - 1 currency units.
	diff := sum - 100001
	if diff < 0 {
		diff = -diff
	}
	if diff > float64(len(roster)-1) {
		t.Errorf("sum = %v, want within %d of 100001", sum, len(roster)-1)
	}
}

func TestAllocateFixedFeeAddedAfterDivision(t *testing.T) {
	month := date(2026, time.March, 1)
	expenses := []model.SharedExpense{
		{Amount: 100000, Frequency: model.FrequencyMonthly, CreatedAt: date(2026, time.January, 1)},
	}
	tags := []model.MemberTag{
		{ID: "tag-fee", SharePercentage: 50, FixedFee: 3600},
	}
	shares := []model.MemberShare{
		{MemberEmail: "ana@example.com", TagID: "tag-fee"},
		{MemberEmail: "ben@example.com", TagID: "tag-fee"},
	}
	roster := []string{"ana@example.com", "ben@example.com"}

	got := Allocate(expenses, shares, tags, roster, month)

	// round((100000 * 0.5) / 2) + 3600 = 28600 each.
	for email, owed := range got {
		if owed != 28600 {
			t.Errorf("owed[%s] = %v, want 28600", email, owed)
		}
	}
}

func TestAllocateIdempotent(t *testing.T) {
	month := date(2026, time.March, 1)
	expenses := []model.SharedExpense{
		{Amount: 77777, Frequency: model.FrequencyMonthly, CreatedAt: date(2026, time.January, 1)},
		{Amount: 1234, Frequency: model.FrequencyOneTime, CreatedAt: date(2026, time.March, 2)},
	}
	tags := []model.MemberTag{
		{ID: "t1", SharePercentage: 60, FixedFee: 100},
		{ID: "t2", SharePercentage: 40, FixedFee: 0},
	}
	shares := []model.MemberShare{
		{MemberEmail: "a@x.com", TagID: "t1"},
		{MemberEmail: "b@x.com", TagID: "t1"},
		{MemberEmail: "c@x.com", TagID: "t2"},
		{MemberEmail: "d@x.com", SharePercentage: floatPtr(10)},
		{MemberEmail: "e@x.com", CustomAmount: floatPtr(500)},
	}
	roster := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com"}

	first := Allocate(expenses, shares, tags, roster, month)
	second := Allocate(expenses, shares, tags, roster, month)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated runs differ: %v vs %v", first, second)
	}
}

func TestAllocateEmailCaseInsensitive(t *testing.T) {
	month := date(2026, time.March, 1)
	expenses := []model.SharedExpense{
		{Amount: 100000, Frequency: model.FrequencyMonthly, CreatedAt: date(2026, time.January, 1)},
	}
	tags := []model.MemberTag{
		{ID: "tag-full", SharePercentage: 100, FixedFee: 0},
	}
	shares := []model.MemberShare{
		{MemberEmail: "Ana@Example.com", TagID: "tag-full"},
	}

	got := Allocate(expenses, shares, tags, []string{"ana@example.com"}, month)

	if got["ana@example.com"] != 100000 {
		t.Errorf("owed = %v, want 100000 (emails compare case-insensitively)", got["ana@example.com"])
	}
}
