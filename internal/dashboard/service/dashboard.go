package service

import (
	"context"
	"time"

	"lofshare/internal/expenses/allocator"
	"lofshare/pkg/config"
	apperrors "lofshare/pkg/errors"
	"lofshare/pkg/model"
	"lofshare/pkg/sanitizer"
)

// The dashboard reads across every domain, so it depends on narrow read-only
// slices of their repositories instead of the full interfaces.

type PropertyLister interface {
	FindForUser(ctx context.Context, userID string, email string) ([]*model.Property, error)
}

type BookingFinder interface {
	FindByUserAndProperty(ctx context.Context, userID string, propertyID string) ([]*model.Booking, error)
}

type ExpenseFinder interface {
	FindByProperty(ctx context.Context, propertyID string) ([]*model.SharedExpense, error)
}

type TagFinder interface {
	FindByProperty(ctx context.Context, propertyID string) ([]*model.MemberTag, error)
}

type ShareFinder interface {
	FindByProperty(ctx context.Context, propertyID string) ([]*model.MemberShare, error)
}

// PropertyLine is one property's contribution to the user's monthly total.
// Properties where the user owes nothing are omitted from the report entirely.
type PropertyLine struct {
	PropertyID    string   `json:"property_id"`
	PropertyName  string   `json:"property_name"`
	SharedAmount  float64  `json:"shared_amount"`
	BookingAmount float64  `json:"booking_amount"`
	Total         float64  `json:"total"`
	Unassigned    []string `json:"unassigned_members,omitempty"`
}

// MonthlyReport is the per-user rollup for one calendar month. It carries no
// persisted state; every dashboard load recomputes it from the stores.
type MonthlyReport struct {
	Month      time.Time      `json:"month"`
	Total      float64        `json:"total"`
	Properties []PropertyLine `json:"properties"`
}

type DashboardService interface {
	MonthlyReport(ctx context.Context, userID string, email string, month time.Time) (*MonthlyReport, error)
}

type dashboardService struct {
	properties PropertyLister
	bookings   BookingFinder
	expenses   ExpenseFinder
	tags       TagFinder
	shares     ShareFinder
	cfg        *config.Config
}

func NewDashboardService(
	properties PropertyLister,
	bookings BookingFinder,
	expenses ExpenseFinder,
	tags TagFinder,
	shares ShareFinder,
	cfg *config.Config,
) DashboardService {
	return &dashboardService{
		properties: properties,
		bookings:   bookings,
		expenses:   expenses,
		tags:       tags,
		shares:     shares,
		cfg:        cfg,
	}
}

func (s *dashboardService) MonthlyReport(ctx context.Context, userID string, email string, month time.Time) (*MonthlyReport, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	month = allocator.Month(month)
	email = sanitizer.NormalizeEmail(email)

	properties, err := s.properties.FindForUser(ctx, userID, email)
	if err != nil {
		s.cfg.Log.Error("Failed to list user properties", "user_id", userID, "error", err)
		return nil, apperrors.Internal("Failed to load dashboard", err)
	}

	report := &MonthlyReport{
		Month:      month,
		Properties: []PropertyLine{},
	}

	for _, property := range properties {
		line, err := s.propertyLine(ctx, property, userID, email, month)
		if err != nil {
			return nil, err
		}
		if line == nil {
			continue
		}
		report.Properties = append(report.Properties, *line)
		report.Total += line.Total
	}

	return report, nil
}

// propertyLine computes one property's line item, or nil when the user owes
// nothing there for the month.
func (s *dashboardService) propertyLine(ctx context.Context, property *model.Property, userID string, email string, month time.Time) (*PropertyLine, error) {
	sharedAmount, unassigned, err := s.sharedAmount(ctx, property, email, month)
	if err != nil {
		return nil, err
	}

	bookingAmount, err := s.bookingAmount(ctx, property.ID, userID, month)
	if err != nil {
		return nil, err
	}

	if sharedAmount+bookingAmount <= 0 {
		return nil, nil
	}

	return &PropertyLine{
		PropertyID:    property.ID,
		PropertyName:  property.Name,
		SharedAmount:  sharedAmount,
		BookingAmount: bookingAmount,
		Total:         sharedAmount + bookingAmount,
		Unassigned:    unassigned,
	}, nil
}

// sharedAmount runs the allocation for the whole roster and picks out the
// user's entry. Running the full roster is required: tag cohort sizes depend
// on every member, not just the one being asked about.
func (s *dashboardService) sharedAmount(ctx context.Context, property *model.Property, email string, month time.Time) (float64, []string, error) {
	expenses, err := s.expenses.FindByProperty(ctx, property.ID)
	if err != nil {
		return 0, nil, apperrors.Internal("Failed to load expenses", err)
	}
	shares, err := s.shares.FindByProperty(ctx, property.ID)
	if err != nil {
		return 0, nil, apperrors.Internal("Failed to load member shares", err)
	}
	tags, err := s.tags.FindByProperty(ctx, property.ID)
	if err != nil {
		return 0, nil, apperrors.Internal("Failed to load tags", err)
	}

	roster := sanitizer.NormalizeEmails(property.AllowedEmails)
	amounts := allocator.Allocate(
		dereference(expenses),
		dereference(shares),
		dereference(tags),
		roster,
		month,
	)

	var unassigned []string
	for _, member := range roster {
		if _, ok := amounts[member]; !ok {
			unassigned = append(unassigned, member)
		}
	}

	return amounts[email], unassigned, nil
}

// bookingAmount sums the user's confirmed bookings whose stay intersects the
// month: starting in it, ending in it, or spanning across it.
func (s *dashboardService) bookingAmount(ctx context.Context, propertyID string, userID string, month time.Time) (float64, error) {
	bookings, err := s.bookings.FindByUserAndProperty(ctx, userID, propertyID)
	if err != nil {
		return 0, apperrors.Internal("Failed to load bookings", err)
	}

	monthEnd := month.AddDate(0, 1, 0)
	var total float64
	for _, b := range bookings {
		if b.Status != model.BookingConfirmed {
			continue
		}
		if b.StartDate.Before(monthEnd) && month.Before(b.EndDate) {
			total += b.TotalCost
		}
	}
	return total, nil
}

func dereference[T any](in []*T) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		out = append(out, *v)
	}
	return out
}
