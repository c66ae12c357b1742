package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"lofshare/internal/bookings/availability"
	bookingserrors "lofshare/internal/bookings/errors"
	"lofshare/internal/bookings/repository"
	"lofshare/internal/bookings/validator"
	"lofshare/internal/notifications"
	"lofshare/pkg/config"
	mongotx "lofshare/pkg/db/mongo"
	apperrors "lofshare/pkg/errors"
	"lofshare/pkg/model"
	"lofshare/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

// PropertyFinder is the slice of the properties repository this service
// needs: settings for costing, roster and admin list for access checks.
type PropertyFinder interface {
	FindByID(ctx context.Context, id string) (*model.Property, error)
}

type BookingService interface {
	Create(ctx context.Context, booking *model.Booking, requesterEmail string) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	ListByProperty(ctx context.Context, propertyID string, limit int, offset int64) ([]*model.Booking, int64, error)
	Update(ctx context.Context, id string, userID string, updates *model.BookingUpdate) error
	UpdateStatus(ctx context.Context, id string, adminID string, status string) error
	Delete(ctx context.Context, id string, userID string) error
	BlockedDates(ctx context.Context, propertyID string) ([]model.DateRange, error)
}

type bookingService struct {
	repo       repository.BookingRepository
	lockRepo   mongotx.LockRepository
	properties PropertyFinder
	validator  *validator.BookingValidator
	notifier   notifications.Notifier
	cfg        *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo mongotx.LockRepository,
	properties PropertyFinder,
	validator *validator.BookingValidator,
	notifier notifications.Notifier,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:       repo,
		lockRepo:   lockRepo,
		properties: properties,
		validator:  validator,
		notifier:   notifier,
		cfg:        cfg,
	}
}

func (s *bookingService) Create(ctx context.Context, booking *model.Booking, requesterEmail string) error {
	property, err := s.findProperty(ctx, booking.PropertyID)
	if err != nil {
		return err
	}
	if !property.HasAdmin(booking.UserID) && !property.HasMember(requesterEmail) {
		return apperrors.Forbidden("You do not have access to this property")
	}

	s.applyDefaults(booking)
	s.sanitize(booking)

	if err := s.validate(booking, property.Settings.Limits.MinDaysToBook); err != nil {
		return err
	}

	if err := s.computeTotalCost(booking, &property.Settings); err != nil {
		return err
	}

	// Advisory lock serializes the overlap check against concurrent requests
	// for the same property.
	lockID, err := s.acquirePropertyLock(ctx, booking.PropertyID)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.lockRepo.Release(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyNoConflict(sessCtx, booking); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create booking", "property_id", booking.PropertyID, "error", err)
		return err
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"property_id", booking.PropertyID,
		"user_id", booking.UserID,
		"start_date", booking.StartDate,
		"total_cost", booking.TotalCost,
	)

	s.notifyAdmins(ctx, property, model.NotifyBookingRequest, booking)
	return nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	return booking, nil
}

func (s *bookingService) ListByProperty(ctx context.Context, propertyID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if propertyID == "" {
		return nil, 0, apperrors.InvalidInput("Property ID cannot be empty")
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByProperty(ctx, propertyID)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "property_id", propertyID, "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindByProperty(ctx, propertyID, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "property_id", propertyID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

// Update merges an edit into the existing booking and resets its status to
// pending: an edited booking always re-enters the approval queue. The merged
// range is re-checked for conflicts, excluding the booking itself.
func (s *bookingService) Update(ctx context.Context, id string, userID string, updates *model.BookingUpdate) error {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	property, err := s.findProperty(ctx, existing.PropertyID)
	if err != nil {
		return err
	}
	if existing.UserID != userID && !property.HasAdmin(userID) {
		return apperrors.Forbidden("Only the requester or a property admin may edit a booking")
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Booking update validation failed", "id", id, "error", err)
		return apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged := s.mergeBookingUpdates(existing, updates)
	merged.Status = model.BookingPending

	if err := s.validate(merged, property.Settings.Limits.MinDaysToBook); err != nil {
		return err
	}
	if err := s.computeTotalCost(merged, &property.Settings); err != nil {
		return err
	}

	lockID, err := s.acquirePropertyLock(ctx, merged.PropertyID)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.lockRepo.Release(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyNoConflict(sessCtx, merged); err != nil {
			return err
		}
		if err := s.repo.Update(sessCtx, id, merged); err != nil {
			return apperrors.Internal("Failed to update booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update booking", "id", id, "error", err)
		return err
	}

	s.cfg.Log.Info("Booking updated and reset to pending", "id", id)

	s.notifyAdmins(ctx, property, model.NotifyBookingRequest, merged)
	return nil
}

// UpdateStatus moves a booking to confirmed or rejected. Admin only.
func (s *bookingService) UpdateStatus(ctx context.Context, id string, adminID string, status string) error {
	if status != model.BookingConfirmed && status != model.BookingRejected {
		return apperrors.InvalidInput("Status must be confirmed or rejected")
	}

	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	property, err := s.findProperty(ctx, booking.PropertyID)
	if err != nil {
		return err
	}
	if !property.HasAdmin(adminID) {
		return apperrors.Forbidden("Only property admins may confirm or reject bookings")
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Booking", id)
		}
		return apperrors.Internal("Failed to update booking status", err)
	}

	s.cfg.Log.Info("Booking status updated", "id", id, "status", status, "admin_id", adminID)

	eventType := model.NotifyBookingApproved
	if status == model.BookingRejected {
		eventType = model.NotifyBookingRejected
	}
	s.notifyUser(ctx, booking.UserID, eventType, property.Name, booking)

	return nil
}

func (s *bookingService) Delete(ctx context.Context, id string, userID string) error {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	property, err := s.findProperty(ctx, booking.PropertyID)
	if err != nil {
		return err
	}
	if booking.UserID != userID && !property.HasAdmin(userID) {
		return apperrors.Forbidden("Only the requester or a property admin may delete a booking")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Booking", id)
		}
		return apperrors.Internal("Failed to delete booking", err)
	}

	s.cfg.Log.Info("Booking deleted", "id", id)
	return nil
}

// BlockedDates returns the unavailable calendar ranges for the property:
// every non-rejected booking from today onward plus all past dates.
func (s *bookingService) BlockedDates(ctx context.Context, propertyID string) ([]model.DateRange, error) {
	if propertyID == "" {
		return nil, apperrors.InvalidInput("Property ID cannot be empty")
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	horizon := today.AddDate(2, 0, 0)

	bookings, err := s.repo.FindInWindow(ctx, propertyID, today, horizon)
	if err != nil {
		s.cfg.Log.Error("Failed to load bookings for calendar", "property_id", propertyID, "error", err)
		return nil, apperrors.Internal("Failed to compute blocked dates", err)
	}

	dereferenced := make([]model.Booking, 0, len(bookings))
	for _, b := range bookings {
		dereferenced = append(dereferenced, *b)
	}

	return availability.BlockedRanges(dereferenced, now), nil
}

// --- Helpers ---

func (s *bookingService) sanitize(b *model.Booking) {
	b.UserName = sanitizer.NormalizeName(b.UserName)
	b.SelectedOptionalFees = sanitizer.SanitizeSlice(b.SelectedOptionalFees, strings.TrimSpace)
}

func (s *bookingService) applyDefaults(b *model.Booking) {
	b.Status = model.BookingPending
	b.StartDate = b.StartDate.UTC().Truncate(24 * time.Hour)
	b.EndDate = b.EndDate.UTC().Truncate(24 * time.Hour)
}

func (s *bookingService) mergeBookingUpdates(existing *model.Booking, updates *model.BookingUpdate) *model.Booking {
	merged := *existing

	if updates.StartDate != nil {
		merged.StartDate = updates.StartDate.UTC().Truncate(24 * time.Hour)
	}
	if updates.EndDate != nil {
		merged.EndDate = updates.EndDate.UTC().Truncate(24 * time.Hour)
	}
	if updates.Adults != nil {
		merged.Adults = *updates.Adults
	}
	if updates.Children != nil {
		merged.Children = *updates.Children
	}
	if updates.SelectedOptionalFees != nil {
		merged.SelectedOptionalFees = sanitizer.SanitizeSlice(*updates.SelectedOptionalFees, strings.TrimSpace)
	}

	return &merged
}

func (s *bookingService) validate(booking *model.Booking, minNights int) error {
	if err := s.validator.Validate(booking, minNights); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

// computeTotalCost prices the stay from the property settings: per-day rates
// times nights, plus every mandatory fixed cost, plus the selected optional
// ones. The client-supplied total is always overwritten.
func (s *bookingService) computeTotalCost(b *model.Booking, settings *model.PropertySettings) error {
	nights := float64(b.Nights())

	total := float64(b.Adults)*settings.Prices.AdultPerDay*nights +
		float64(b.Children)*settings.Prices.ChildPerDay*nights

	selected := make(map[string]struct{}, len(b.SelectedOptionalFees))
	for _, id := range b.SelectedOptionalFees {
		selected[id] = struct{}{}
	}

	for _, fc := range settings.FixedCosts {
		if !fc.Optional {
			total += fc.Amount
			continue
		}
		if _, ok := selected[fc.ID]; ok {
			total += fc.Amount
			delete(selected, fc.ID)
		}
	}

	if len(selected) > 0 {
		return apperrors.InvalidInput("Selected optional fee does not exist for this property")
	}

	b.TotalCost = total
	return nil
}

func (s *bookingService) verifyNoConflict(ctx context.Context, booking *model.Booking) error {
	existing, err := s.repo.FindInWindow(ctx, booking.PropertyID, booking.StartDate, booking.EndDate)
	if err != nil {
		return apperrors.Internal("Failed to check existing bookings", err)
	}

	dereferenced := make([]model.Booking, 0, len(existing))
	for _, b := range existing {
		dereferenced = append(dereferenced, *b)
	}

	candidate := model.DateRange{From: booking.StartDate, To: booking.EndDate}
	if conflict := availability.FindConflict(dereferenced, candidate, booking.ID); conflict != nil {
		return apperrors.Conflict(fmt.Sprintf(
			"Booking dates overlap with an existing booking (%s - %s)",
			conflict.StartDate.Format("2006-01-02"),
			conflict.EndDate.Format("2006-01-02"),
		))
	}
	return nil
}

func (s *bookingService) findProperty(ctx context.Context, propertyID string) (*model.Property, error) {
	if propertyID == "" {
		return nil, apperrors.InvalidInput("Property ID cannot be empty")
	}

	property, err := s.properties.FindByID(ctx, propertyID)
	if err != nil {
		return nil, apperrors.NotFoundWithID("Property", propertyID)
	}
	return property, nil
}

func (s *bookingService) acquirePropertyLock(ctx context.Context, propertyID string) (string, error) {
	lockID := fmt.Sprintf("booking_%s", propertyID)

	if _, err := s.lockRepo.Acquire(ctx, lockID, s.cfg.LockTTL); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("Another booking request for this property is in progress. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire booking lock", err)
	}

	return lockID, nil
}

func (s *bookingService) notifyAdmins(ctx context.Context, property *model.Property, eventType string, booking *model.Booking) {
	for _, adminID := range property.Admins {
		if adminID == booking.UserID {
			continue
		}
		if err := s.notifier.Notify(ctx, model.NotificationEvent{
			UserID: adminID,
			Type:   eventType,
			Data: map[string]string{
				"booking_id":    booking.ID,
				"property_id":   property.ID,
				"property_name": property.Name,
				"user_name":     booking.UserName,
				"start_date":    booking.StartDate.Format("2006-01-02"),
				"end_date":      booking.EndDate.Format("2006-01-02"),
			},
		}); err != nil {
			s.cfg.Log.Warn("Failed to notify admin", "admin_id", adminID, "type", eventType, "error", err)
		}
	}
}

func (s *bookingService) notifyUser(ctx context.Context, userID string, eventType string, propertyName string, booking *model.Booking) {
	if err := s.notifier.Notify(ctx, model.NotificationEvent{
		UserID: userID,
		Type:   eventType,
		Data: map[string]string{
			"booking_id":    booking.ID,
			"property_id":   booking.PropertyID,
			"property_name": propertyName,
			"start_date":    booking.StartDate.Format("2006-01-02"),
			"end_date":      booking.EndDate.Format("2006-01-02"),
		},
	}); err != nil {
		s.cfg.Log.Warn("Failed to notify user", "user_id", userID, "type", eventType, "error", err)
	}
}
