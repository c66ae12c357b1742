package service

import (
	"context"
	"testing"
	"time"

	"lofshare/pkg/config"
	"lofshare/pkg/logger"
	"lofshare/pkg/model"
)

const (
	casaID  = "507f1f77bcf86cd799439011"
	cabinID = "507f1f77bcf86cd799439022"
)

type stubStore struct {
	properties []*model.Property
	bookings   map[string][]*model.Booking
	expenses   map[string][]*model.SharedExpense
	tags       map[string][]*model.MemberTag
	shares     map[string][]*model.MemberShare
}

func (s *stubStore) FindForUser(ctx context.Context, userID string, email string) ([]*model.Property, error) {
	var out []*model.Property
	for _, p := range s.properties {
		if p.HasAdmin(userID) || p.HasMember(email) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubStore) FindByUserAndProperty(ctx context.Context, userID string, propertyID string) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, b := range s.bookings[propertyID] {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubStore) FindByProperty(ctx context.Context, propertyID string) ([]*model.SharedExpense, error) {
	return s.expenses[propertyID], nil
}

type tagStore struct{ s *stubStore }

func (t tagStore) FindByProperty(ctx context.Context, propertyID string) ([]*model.MemberTag, error) {
	return t.s.tags[propertyID], nil
}

type shareStore struct{ s *stubStore }

func (t shareStore) FindByProperty(ctx context.Context, propertyID string) ([]*model.MemberShare, error) {
	return t.s.shares[propertyID], nil
}

func newService(store *stubStore) DashboardService {
	log := logger.New(logger.Config{Level: "error", Format: "json", Service: "dashboard-test"})
	cfg := &config.Config{Log: log}
	return NewDashboardService(store, store, store, tagStore{store}, shareStore{store}, cfg)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func floatPtr(v float64) *float64 { return &v }

func fixtureStore() *stubStore {
	return &stubStore{
		properties: []*model.Property{
			{
				ID:            casaID,
				Name:          "Casa del Lago",
				OwnerID:       "admin-1",
				Admins:        []string{"admin-1"},
				AllowedEmails: []string{"alice@example.com", "bob@example.com"},
			},
			{
				ID:            cabinID,
				Name:          "Mountain Cabin",
				OwnerID:       "admin-2",
				Admins:        []string{"admin-2"},
				AllowedEmails: []string{"alice@example.com"},
			},
		},
		bookings: map[string][]*model.Booking{},
		expenses: map[string][]*model.SharedExpense{},
		tags:     map[string][]*model.MemberTag{},
		shares:   map[string][]*model.MemberShare{},
	}
}

func TestMonthlyReportCombinesSharesAndBookings(t *testing.T) {
	store := fixtureStore()
	month := date(2026, time.March, 1)

	store.expenses[casaID] = []*model.SharedExpense{
		{PropertyID: casaID, Name: "Maintenance", Amount: 100000, Frequency: model.FrequencyMonthly, CreatedAt: date(2026, time.January, 10)},
	}
	store.shares[casaID] = []*model.MemberShare{
		{PropertyID: casaID, MemberEmail: "alice@example.com", SharePercentage: floatPtr(40)},
	}
	store.bookings[casaID] = []*model.Booking{
		{PropertyID: casaID, UserID: "user-alice", StartDate: date(2026, time.March, 10), EndDate: date(2026, time.March, 14), TotalCost: 8000, Status: model.BookingConfirmed},
	}

	report, err := newService(store).MonthlyReport(context.Background(), "user-alice", "alice@example.com", month)
	if err != nil {
		t.Fatalf("MonthlyReport() error = %v", err)
	}

	if len(report.Properties) != 1 {
		t.Fatalf("properties = %d, want 1 (cabin has nothing owed)", len(report.Properties))
	}
	line := report.Properties[0]
	if line.SharedAmount != 40000 {
		t.Errorf("SharedAmount = %v, want 40000", line.SharedAmount)
	}
	if line.BookingAmount != 8000 {
		t.Errorf("BookingAmount = %v, want 8000", line.BookingAmount)
	}
	if report.Total != 48000 {
		t.Errorf("Total = %v, want 48000", report.Total)
	}
}

func TestMonthlyReportOmitsZeroLines(t *testing.T) {
	store := fixtureStore()

	report, err := newService(store).MonthlyReport(context.Background(), "user-alice", "alice@example.com", date(2026, time.March, 1))
	if err != nil {
		t.Fatalf("MonthlyReport() error = %v", err)
	}

	if len(report.Properties) != 0 {
		t.Errorf("properties = %v, want none when nothing is owed anywhere", report.Properties)
	}
	if report.Total != 0 {
		t.Errorf("Total = %v, want 0", report.Total)
	}
}

func TestMonthlyReportSkipsPendingAndRejectedBookings(t *testing.T) {
	store := fixtureStore()
	month := date(2026, time.March, 1)

	store.bookings[casaID] = []*model.Booking{
		{PropertyID: casaID, UserID: "user-alice", StartDate: date(2026, time.March, 10), EndDate: date(2026, time.March, 14), TotalCost: 8000, Status: model.BookingPending},
		{PropertyID: casaID, UserID: "user-alice", StartDate: date(2026, time.March, 20), EndDate: date(2026, time.March, 24), TotalCost: 9000, Status: model.BookingRejected},
	}

	report, err := newService(store).MonthlyReport(context.Background(), "user-alice", "alice@example.com", month)
	if err != nil {
		t.Fatalf("MonthlyReport() error = %v", err)
	}

	if len(report.Properties) != 0 {
		t.Errorf("only confirmed bookings may charge; got %v", report.Properties)
	}
}

func TestMonthlyReportCountsSpanningBooking(t *testing.T) {
	store := fixtureStore()
	month := date(2026, time.March, 1)

	// Stay covers the entire month without starting or ending inside it.
	store.bookings[casaID] = []*model.Booking{
		{PropertyID: casaID, UserID: "user-alice", StartDate: date(2026, time.February, 20), EndDate: date(2026, time.April, 5), TotalCost: 50000, Status: model.BookingConfirmed},
	}

	report, err := newService(store).MonthlyReport(context.Background(), "user-alice", "alice@example.com", month)
	if err != nil {
		t.Fatalf("MonthlyReport() error = %v", err)
	}

	if len(report.Properties) != 1 || report.Properties[0].BookingAmount != 50000 {
		t.Errorf("spanning booking must charge in the month: %+v", report.Properties)
	}
}

func TestMonthlyReportIgnoresBookingOutsideMonth(t *testing.T) {
	store := fixtureStore()

	store.bookings[casaID] = []*model.Booking{
		{PropertyID: casaID, UserID: "user-alice", StartDate: date(2026, time.May, 10), EndDate: date(2026, time.May, 14), TotalCost: 8000, Status: model.BookingConfirmed},
	}

	report, err := newService(store).MonthlyReport(context.Background(), "user-alice", "alice@example.com", date(2026, time.March, 1))
	if err != nil {
		t.Fatalf("MonthlyReport() error = %v", err)
	}

	if len(report.Properties) != 0 {
		t.Errorf("booking outside the month must not charge: %+v", report.Properties)
	}
}

func TestMonthlyReportListsUnassignedMembers(t *testing.T) {
	store := fixtureStore()
	month := date(2026, time.March, 1)

	store.expenses[casaID] = []*model.SharedExpense{
		{PropertyID: casaID, Name: "Maintenance", Amount: 50000, Frequency: model.FrequencyMonthly, CreatedAt: date(2026, time.January, 10)},
	}
	store.shares[casaID] = []*model.MemberShare{
		{PropertyID: casaID, MemberEmail: "alice@example.com", SharePercentage: floatPtr(50)},
	}

	report, err := newService(store).MonthlyReport(context.Background(), "user-alice", "alice@example.com", month)
	if err != nil {
		t.Fatalf("MonthlyReport() error = %v", err)
	}

	if len(report.Properties) != 1 {
		t.Fatalf("properties = %d, want 1", len(report.Properties))
	}
	unassigned := report.Properties[0].Unassigned
	if len(unassigned) != 1 || unassigned[0] != "bob@example.com" {
		t.Errorf("Unassigned = %v, want [bob@example.com]", unassigned)
	}
}

func TestMonthlyReportAggregatesAcrossProperties(t *testing.T) {
	store := fixtureStore()
	month := date(2026, time.March, 1)

	store.shares[casaID] = []*model.MemberShare{
		{PropertyID: casaID, MemberEmail: "alice@example.com", CustomAmount: floatPtr(15000)},
	}
	store.shares[cabinID] = []*model.MemberShare{
		{PropertyID: cabinID, MemberEmail: "alice@example.com", CustomAmount: floatPtr(5000)},
	}

	report, err := newService(store).MonthlyReport(context.Background(), "user-alice", "alice@example.com", month)
	if err != nil {
		t.Fatalf("MonthlyReport() error = %v", err)
	}

	if len(report.Properties) != 2 {
		t.Fatalf("properties = %d, want 2", len(report.Properties))
	}
	if report.Total != 20000 {
		t.Errorf("Total = %v, want 20000", report.Total)
	}
}
