// Package allocator computes how a property's shared-expense pool is divided
// among its active members for one calendar month.
//
// The division follows each member's share record in strict precedence order:
// a custom amount is taken verbatim, a tag reference takes the tag's slice of
// the pool divided across the tag's cohort plus the tag's fixed fee, and a
// direct percentage takes that percentage of the pool. Rounding to the nearest
// currency unit happens after the division, never before.
//
// Everything here is pure computation over in-memory inputs; identical inputs
// always produce identical output.
package allocator

import (
	"math"
	"strings"
	"time"

	"lofshare/pkg/model"
)

// Month truncates t to the first instant of its calendar month in UTC.
func Month(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// InEffect reports whether an expense is charged in the evaluation month.
// A one-time expense counts only in its creation month. A recurring expense
// counts every month from its creation onward; the quarterly and yearly
// labels do not gate inclusion.
func InEffect(expense model.SharedExpense, month time.Time) bool {
	created := Month(expense.CreatedAt)
	month = Month(month)

	if expense.Frequency == model.FrequencyOneTime {
		return created.Equal(month)
	}
	return !created.After(month)
}

// MonthlyPool sums the amounts of every expense in effect for the month.
func MonthlyPool(expenses []model.SharedExpense, month time.Time) float64 {
	var total float64
	for _, expense := range expenses {
		if InEffect(expense, month) {
			total += expense.Amount
		}
	}
	return total
}

// Allocate maps each active member with a share record to the amount they owe
// for the month. Members on the roster without any share record are absent
// from the result; callers list them as unassigned.
//
// Shares whose email is not on the roster are discarded. A share pointing at
// a tag that no longer exists resolves to zero rather than failing, so one
// dangling reference cannot break the run for everyone else.
func Allocate(
	expenses []model.SharedExpense,
	shares []model.MemberShare,
	tags []model.MemberTag,
	activeEmails []string,
	month time.Time,
) map[string]float64 {
	roster := make(map[string]struct{}, len(activeEmails))
	for _, email := range activeEmails {
		roster[strings.ToLower(email)] = struct{}{}
	}

	active := make([]model.MemberShare, 0, len(shares))
	for _, share := range shares {
		email := strings.ToLower(share.MemberEmail)
		if _, ok := roster[email]; ok {
			share.MemberEmail = email
			active = append(active, share)
		}
	}

	pool := MonthlyPool(expenses, month)

	tagByID := make(map[string]model.MemberTag, len(tags))
	for _, tag := range tags {
		tagByID[tag.ID] = tag
	}

	cohorts := cohortSizes(active)

	// Last share record per member wins; duplicates exist only when the
	// write-path de-dup was bypassed, and must not double anyone's total.
	owed := make(map[string]float64, len(active))
	for _, share := range active {
		owed[share.MemberEmail] = amountFor(share, pool, tagByID, cohorts)
	}

	return owed
}

// cohortSizes counts the distinct member emails holding each tag. A member
// with duplicate share rows for the same tag contributes to the divisor
// exactly once.
func cohortSizes(shares []model.MemberShare) map[string]int {
	members := make(map[string]map[string]struct{})
	for _, share := range shares {
		if share.TagID == "" {
			continue
		}
		if members[share.TagID] == nil {
			members[share.TagID] = make(map[string]struct{})
		}
		members[share.TagID][share.MemberEmail] = struct{}{}
	}

	sizes := make(map[string]int, len(members))
	for tagID, emails := range members {
		sizes[tagID] = len(emails)
	}
	return sizes
}

func amountFor(share model.MemberShare, pool float64, tagByID map[string]model.MemberTag, cohorts map[string]int) float64 {
	switch share.Mode() {
	case model.ModeCustomAmount:
		// Manual override, taken verbatim. An explicit zero counts.
		return *share.CustomAmount

	case model.ModeTag:
		tag, ok := tagByID[share.TagID]
		if !ok {
			// Dangling reference: fail open to zero.
			return 0
		}
		cohort := cohorts[share.TagID]
		if cohort == 0 {
			return tag.FixedFee
		}
		return math.Round(pool*tag.SharePercentage/100/float64(cohort)) + tag.FixedFee

	case model.ModePercentage:
		return math.Round(pool * *share.SharePercentage / 100)

	default:
		return 0
	}
}
