package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	bookingserrors "lofshare/internal/bookings/errors"
	"lofshare/internal/bookings/validator"
	"lofshare/pkg/config"
	mongotx "lofshare/pkg/db/mongo"
	apperrors "lofshare/pkg/errors"
	"lofshare/pkg/logger"
	"lofshare/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

const testPropertyID = "507f1f77bcf86cd799439011"

type mockBookingRepository struct {
	bookings map[string]*model.Booking
	nextID   int
}

func newMockBookingRepository() *mockBookingRepository {
	return &mockBookingRepository{
		bookings: make(map[string]*model.Booking),
		nextID:   1,
	}
}

func (m *mockBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	booking.ID = fmt.Sprintf("64f1f77bcf86cd7994390%03d", m.nextID)
	m.nextID++
	clone := *booking
	m.bookings[booking.ID] = &clone
	return nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	clone := *b
	return &clone, nil
}

func (m *mockBookingRepository) FindByProperty(ctx context.Context, propertyID string, limit int, offset int64) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.PropertyID == propertyID {
			clone := *b
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *mockBookingRepository) CountByProperty(ctx context.Context, propertyID string) (int64, error) {
	var count int64
	for _, b := range m.bookings {
		if b.PropertyID == propertyID {
			count++
		}
	}
	return count, nil
}

func (m *mockBookingRepository) FindInWindow(ctx context.Context, propertyID string, start, end time.Time) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.PropertyID == propertyID && b.StartDate.Before(end) && start.Before(b.EndDate) {
			clone := *b
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *mockBookingRepository) FindByUserAndProperty(ctx context.Context, userID, propertyID string) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.PropertyID == propertyID && b.UserID == userID {
			clone := *b
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *mockBookingRepository) Update(ctx context.Context, id string, booking *model.Booking) error {
	if _, ok := m.bookings[id]; !ok {
		return bookingserrors.ErrNotFound
	}
	clone := *booking
	clone.ID = id
	m.bookings[id] = &clone
	return nil
}

func (m *mockBookingRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	b, ok := m.bookings[id]
	if !ok {
		return bookingserrors.ErrNotFound
	}
	b.Status = status
	return nil
}

func (m *mockBookingRepository) Delete(ctx context.Context, id string) error {
	if _, ok := m.bookings[id]; !ok {
		return bookingserrors.ErrNotFound
	}
	delete(m.bookings, id)
	return nil
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.SessionContext(nil))
}

type mockLockRepository struct {
	held map[string]bool
}

func newMockLockRepository() *mockLockRepository {
	return &mockLockRepository{held: make(map[string]bool)}
}

func (m *mockLockRepository) Acquire(ctx context.Context, lockID string, ttl time.Duration) (*model.AdvisoryLock, error) {
	if m.held[lockID] {
		return nil, mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
	}
	m.held[lockID] = true
	return &model.AdvisoryLock{ID: lockID, ExpiresAt: time.Now().Add(ttl)}, nil
}

func (m *mockLockRepository) Release(ctx context.Context, lockID string) error {
	delete(m.held, lockID)
	return nil
}

type mockPropertyFinder struct {
	property *model.Property
}

func (m *mockPropertyFinder) FindByID(ctx context.Context, id string) (*model.Property, error) {
	if m.property == nil || m.property.ID != id {
		return nil, fmt.Errorf("property not found")
	}
	clone := *m.property
	clone.Settings.Normalize()
	return &clone, nil
}

type recordingNotifier struct {
	events []model.NotificationEvent
}

func (r *recordingNotifier) Notify(ctx context.Context, event model.NotificationEvent) error {
	r.events = append(r.events, event)
	return nil
}

func testProperty() *model.Property {
	return &model.Property{
		ID:            testPropertyID,
		Name:          "Casa del Lago",
		OwnerID:       "admin-1",
		Admins:        []string{"admin-1"},
		AllowedEmails: []string{"admin@example.com", "guest@example.com"},
		Settings: model.PropertySettings{
			Prices: model.Prices{AdultPerDay: 100, ChildPerDay: 50},
			Limits: model.Limits{MinDaysToBook: 2},
			FixedCosts: []model.FixedCost{
				{ID: "fc-cleaning", Name: "Cleaning", Amount: 200},
				{ID: "fc-firewood", Name: "Firewood", Amount: 80, Optional: true},
			},
		},
	}
}

type fixture struct {
	repo     *mockBookingRepository
	locks    *mockLockRepository
	notifier *recordingNotifier
	svc      BookingService
}

func newFixture(property *model.Property) *fixture {
	log := logger.New(logger.Config{Level: "error", Format: "json", Service: "bookings-test"})
	cfg := &config.Config{Log: log, LockTTL: 30 * time.Second}
	repo := newMockBookingRepository()
	locks := newMockLockRepository()
	notifier := &recordingNotifier{}
	svc := NewBookingService(repo, locks, &mockPropertyFinder{property: property}, validator.NewBookingValidator(log), notifier, cfg)
	return &fixture{repo: repo, locks: locks, notifier: notifier, svc: svc}
}

func day(offset int) time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func newBooking(start, end time.Time) *model.Booking {
	return &model.Booking{
		PropertyID: testPropertyID,
		UserID:     "guest-1",
		UserName:   "Guest One",
		StartDate:  start,
		EndDate:    end,
		Adults:     2,
		Children:   1,
	}
}

func TestCreateComputesTotalCost(t *testing.T) {
	f := newFixture(testProperty())

	booking := newBooking(day(10), day(13))
	booking.SelectedOptionalFees = []string{"fc-firewood"}
	booking.TotalCost = 1 // client-supplied value must be ignored

	if err := f.svc.Create(context.Background(), booking, "guest@example.com"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// 2 adults * 100 * 3 nights + 1 child * 50 * 3 nights + cleaning 200 + firewood 80
	want := 600.0 + 150.0 + 200.0 + 80.0
	if booking.TotalCost != want {
		t.Errorf("TotalCost = %v, want %v", booking.TotalCost, want)
	}
	if booking.Status != model.BookingPending {
		t.Errorf("Status = %q, want pending", booking.Status)
	}
}

func TestCreateRejectsUnknownOptionalFee(t *testing.T) {
	f := newFixture(testProperty())

	booking := newBooking(day(10), day(13))
	booking.SelectedOptionalFees = []string{"no-such-fee"}

	err := f.svc.Create(context.Background(), booking, "guest@example.com")
	if err == nil {
		t.Fatal("unknown optional fee must be rejected")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeInvalidInput {
		t.Errorf("error = %v, want invalid input", err)
	}
}

func TestCreateRejectsOverlap(t *testing.T) {
	f := newFixture(testProperty())

	first := newBooking(day(10), day(14))
	if err := f.svc.Create(context.Background(), first, "guest@example.com"); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}

	second := newBooking(day(12), day(16))
	err := f.svc.Create(context.Background(), second, "guest@example.com")
	if err == nil {
		t.Fatal("overlapping booking must be rejected")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeConflict {
		t.Errorf("error = %v, want conflict", err)
	}
}

func TestCreateBackToBackBookingsDoNotConflict(t *testing.T) {
	f := newFixture(testProperty())

	first := newBooking(day(10), day(14))
	if err := f.svc.Create(context.Background(), first, "guest@example.com"); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}

	// Half-open ranges: checkout day equals the next check-in day.
	second := newBooking(day(14), day(18))
	if err := f.svc.Create(context.Background(), second, "guest@example.com"); err != nil {
		t.Errorf("back-to-back booking rejected: %v", err)
	}
}

func TestCreateAllowsDatesOfRejectedBooking(t *testing.T) {
	f := newFixture(testProperty())

	first := newBooking(day(10), day(14))
	if err := f.svc.Create(context.Background(), first, "guest@example.com"); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}
	if err := f.svc.UpdateStatus(context.Background(), first.ID, "admin-1", model.BookingRejected); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	second := newBooking(day(10), day(14))
	if err := f.svc.Create(context.Background(), second, "guest@example.com"); err != nil {
		t.Errorf("rejected booking must release its dates: %v", err)
	}
}

func TestCreateEnforcesMinimumStay(t *testing.T) {
	f := newFixture(testProperty())

	booking := newBooking(day(10), day(11))
	err := f.svc.Create(context.Background(), booking, "guest@example.com")
	if err == nil {
		t.Fatal("one-night booking must fail when the minimum stay is two")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeValidation {
		t.Errorf("error = %v, want validation error", err)
	}
}

func TestCreateRequiresPropertyAccess(t *testing.T) {
	f := newFixture(testProperty())

	booking := newBooking(day(10), day(13))
	err := f.svc.Create(context.Background(), booking, "stranger@example.com")
	if err == nil {
		t.Fatal("booking by a non-member must be rejected")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeForbidden {
		t.Errorf("error = %v, want forbidden", err)
	}
}

func TestCreateLockContention(t *testing.T) {
	f := newFixture(testProperty())
	f.locks.held["booking_"+testPropertyID] = true

	booking := newBooking(day(10), day(13))
	err := f.svc.Create(context.Background(), booking, "guest@example.com")
	if err == nil {
		t.Fatal("held lock must reject the request")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeConflict {
		t.Errorf("error = %v, want conflict", err)
	}
}

func TestCreateReleasesLock(t *testing.T) {
	f := newFixture(testProperty())

	booking := newBooking(day(10), day(13))
	if err := f.svc.Create(context.Background(), booking, "guest@example.com"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if f.locks.held["booking_"+testPropertyID] {
		t.Error("lock still held after Create")
	}
}

func TestCreateNotifiesAdmins(t *testing.T) {
	f := newFixture(testProperty())

	booking := newBooking(day(10), day(13))
	if err := f.svc.Create(context.Background(), booking, "guest@example.com"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if len(f.notifier.events) != 1 {
		t.Fatalf("events = %d, want 1", len(f.notifier.events))
	}
	event := f.notifier.events[0]
	if event.UserID != "admin-1" || event.Type != model.NotifyBookingRequest {
		t.Errorf("event = %+v, want booking_request to admin-1", event)
	}
}

func TestCreateDoesNotNotifyRequestingAdmin(t *testing.T) {
	property := testProperty()
	property.Admins = []string{"admin-1", "admin-2"}
	f := newFixture(property)

	booking := newBooking(day(10), day(13))
	booking.UserID = "admin-1"
	if err := f.svc.Create(context.Background(), booking, "admin@example.com"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if len(f.notifier.events) != 1 {
		t.Fatalf("events = %d, want 1", len(f.notifier.events))
	}
	if event := f.notifier.events[0]; event.UserID != "admin-2" {
		t.Errorf("event delivered to %q, the requesting admin must be skipped", event.UserID)
	}
}

func TestUpdateResetsStatusToPending(t *testing.T) {
	f := newFixture(testProperty())

	booking := newBooking(day(10), day(14))
	if err := f.svc.Create(context.Background(), booking, "guest@example.com"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := f.svc.UpdateStatus(context.Background(), booking.ID, "admin-1", model.BookingConfirmed); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	newEnd := day(15)
	if err := f.svc.Update(context.Background(), booking.ID, "guest-1", &model.BookingUpdate{EndDate: &newEnd}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	stored := f.repo.bookings[booking.ID]
	if stored.Status != model.BookingPending {
		t.Errorf("Status = %q, edited booking must return to pending", stored.Status)
	}
	if !stored.EndDate.Equal(newEnd) {
		t.Errorf("EndDate = %v, want %v", stored.EndDate, newEnd)
	}
	// 2 adults * 100 * 5 nights + 1 child * 50 * 5 nights + cleaning 200
	if want := 1000.0 + 250.0 + 200.0; stored.TotalCost != want {
		t.Errorf("TotalCost = %v, want recomputed %v", stored.TotalCost, want)
	}
}

func TestUpdateExcludesSelfFromConflictCheck(t *testing.T) {
	f := newFixture(testProperty())

	booking := newBooking(day(10), day(14))
	if err := f.svc.Create(context.Background(), booking, "guest@example.com"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Shift within the booking's own range: only itself occupies those dates.
	newStart, newEnd := day(11), day(15)
	if err := f.svc.Update(context.Background(), booking.ID, "guest-1", &model.BookingUpdate{StartDate: &newStart, EndDate: &newEnd}); err != nil {
		t.Errorf("Update() must not conflict with the booking being edited: %v", err)
	}
}

func TestUpdateRejectsConflictWithOtherBooking(t *testing.T) {
	f := newFixture(testProperty())

	first := newBooking(day(10), day(14))
	if err := f.svc.Create(context.Background(), first, "guest@example.com"); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}
	second := newBooking(day(14), day(18))
	if err := f.svc.Create(context.Background(), second, "guest@example.com"); err != nil {
		t.Fatalf("second Create() error = %v", err)
	}

	newEnd := day(15)
	err := f.svc.Update(context.Background(), first.ID, "guest-1", &model.BookingUpdate{EndDate: &newEnd})
	if err == nil {
		t.Fatal("edit overlapping another booking must be rejected")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeConflict {
		t.Errorf("error = %v, want conflict", err)
	}
}

func TestUpdateStatusRequiresAdmin(t *testing.T) {
	f := newFixture(testProperty())

	booking := newBooking(day(10), day(14))
	if err := f.svc.Create(context.Background(), booking, "guest@example.com"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	err := f.svc.UpdateStatus(context.Background(), booking.ID, "guest-1", model.BookingConfirmed)
	if err == nil {
		t.Fatal("non-admin status change must fail")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeForbidden {
		t.Errorf("error = %v, want forbidden", err)
	}
}

func TestUpdateStatusNotifiesRequester(t *testing.T) {
	f := newFixture(testProperty())

	booking := newBooking(day(10), day(14))
	if err := f.svc.Create(context.Background(), booking, "guest@example.com"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	f.notifier.events = nil

	if err := f.svc.UpdateStatus(context.Background(), booking.ID, "admin-1", model.BookingConfirmed); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	if len(f.notifier.events) != 1 {
		t.Fatalf("events = %d, want 1", len(f.notifier.events))
	}
	event := f.notifier.events[0]
	if event.UserID != "guest-1" || event.Type != model.NotifyBookingApproved {
		t.Errorf("event = %+v, want booking_approved to guest-1", event)
	}
}

func TestUpdateStatusRejectsInvalidValue(t *testing.T) {
	f := newFixture(testProperty())

	booking := newBooking(day(10), day(14))
	if err := f.svc.Create(context.Background(), booking, "guest@example.com"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := f.svc.UpdateStatus(context.Background(), booking.ID, "admin-1", "pending"); err == nil {
		t.Error("status may only move to confirmed or rejected")
	}
}

func TestDeleteRequiresOwnerOrAdmin(t *testing.T) {
	f := newFixture(testProperty())

	booking := newBooking(day(10), day(14))
	if err := f.svc.Create(context.Background(), booking, "guest@example.com"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := f.svc.Delete(context.Background(), booking.ID, "someone-else"); err == nil {
		t.Fatal("delete by a third party must fail")
	}
	if err := f.svc.Delete(context.Background(), booking.ID, "guest-1"); err != nil {
		t.Errorf("delete by the requester failed: %v", err)
	}
}

func TestBlockedDatesSkipRejected(t *testing.T) {
	f := newFixture(testProperty())

	kept := newBooking(day(10), day(14))
	if err := f.svc.Create(context.Background(), kept, "guest@example.com"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	dropped := newBooking(day(20), day(24))
	if err := f.svc.Create(context.Background(), dropped, "guest@example.com"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := f.svc.UpdateStatus(context.Background(), dropped.ID, "admin-1", model.BookingRejected); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	ranges, err := f.svc.BlockedDates(context.Background(), testPropertyID)
	if err != nil {
		t.Fatalf("BlockedDates() error = %v", err)
	}

	for _, r := range ranges {
		if r.From.Equal(day(20)) {
			t.Error("rejected booking must not appear in blocked dates")
		}
	}

	var found bool
	for _, r := range ranges {
		if r.From.Equal(day(10)) && r.To.Equal(day(14)) {
			found = true
		}
	}
	if !found {
		t.Errorf("pending booking range missing from blocked dates: %v", ranges)
	}
}
