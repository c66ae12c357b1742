package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"lofshare/internal/expenses/allocator"
	expenseserrors "lofshare/internal/expenses/errors"
	"lofshare/internal/expenses/repository"
	"lofshare/internal/expenses/validator"
	"lofshare/internal/notifications"
	"lofshare/pkg/config"
	mongotx "lofshare/pkg/db/mongo"
	apperrors "lofshare/pkg/errors"
	"lofshare/pkg/model"
	"lofshare/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

// PropertyFinder is the slice of the properties repository this service
// needs: roster for allocation, admin list for write guards.
type PropertyFinder interface {
	FindByID(ctx context.Context, id string) (*model.Property, error)
}

// MemberPayment is one line of a monthly payments report.
type MemberPayment struct {
	Email  string  `json:"email"`
	Amount float64 `json:"amount"`
}

// PaymentsReport is the allocation of one property's expense pool for one
// month. Unassigned lists roster members with no share record; they owe an
// undetermined amount until an admin assigns them one.
type PaymentsReport struct {
	PropertyID string          `json:"property_id"`
	Month      time.Time       `json:"month"`
	Pool       float64         `json:"pool"`
	Payments   []MemberPayment `json:"payments"`
	Unassigned []string        `json:"unassigned_members"`
}

// UpsertResult reports whether the share write created a new record or folded
// into an existing one.
type UpsertResult struct {
	Share   *model.MemberShare `json:"share"`
	Created bool               `json:"created"`
}

type ExpenseService interface {
	CreateExpense(ctx context.Context, expense *model.SharedExpense, userID string) error
	DeleteExpense(ctx context.Context, id string, userID string) error
	ListExpenses(ctx context.Context, propertyID string, userID string, email string) ([]*model.SharedExpense, error)

	CreateTag(ctx context.Context, tag *model.MemberTag, userID string) error
	DeleteTag(ctx context.Context, id string, userID string) error
	ListTags(ctx context.Context, propertyID string, userID string, email string) ([]*model.MemberTag, error)

	UpsertShare(ctx context.Context, share *model.MemberShare, userID string) (*UpsertResult, error)
	UpdateShare(ctx context.Context, id string, userID string, update *model.MemberShareUpdate) error
	DeleteShare(ctx context.Context, id string, userID string) error
	ListShares(ctx context.Context, propertyID string, userID string, email string) ([]*model.MemberShare, error)

	Payments(ctx context.Context, propertyID string, userID string, email string, month time.Time) (*PaymentsReport, error)
}

type expenseService struct {
	expenses   repository.ExpenseRepository
	tags       repository.TagRepository
	shares     repository.ShareRepository
	lockRepo   mongotx.LockRepository
	properties PropertyFinder
	validator  *validator.ExpenseValidator
	notifier   notifications.Notifier
	cfg        *config.Config
}

func NewExpenseService(
	expenses repository.ExpenseRepository,
	tags repository.TagRepository,
	shares repository.ShareRepository,
	lockRepo mongotx.LockRepository,
	properties PropertyFinder,
	validator *validator.ExpenseValidator,
	notifier notifications.Notifier,
	cfg *config.Config,
) ExpenseService {
	return &expenseService{
		expenses:   expenses,
		tags:       tags,
		shares:     shares,
		lockRepo:   lockRepo,
		properties: properties,
		validator:  validator,
		notifier:   notifier,
		cfg:        cfg,
	}
}

// --- Expenses ---

func (s *expenseService) CreateExpense(ctx context.Context, expense *model.SharedExpense, userID string) error {
	property, err := s.requireAdmin(ctx, expense.PropertyID, userID)
	if err != nil {
		return err
	}

	expense.Name = sanitizer.NormalizeName(expense.Name)
	if err := s.validator.ValidateExpense(expense); err != nil {
		return apperrors.Validation("Expense validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.expenses.Create(ctx, expense); err != nil {
		s.cfg.Log.Error("Failed to create expense", "property_id", expense.PropertyID, "error", err)
		return apperrors.Internal("Failed to create expense", err)
	}

	s.cfg.Log.Info("Expense created",
		"id", expense.ID,
		"property_id", expense.PropertyID,
		"amount", expense.Amount,
		"frequency", expense.Frequency,
	)

	s.notifyAdmins(ctx, property, userID, model.NotifyExpenseCreated, map[string]string{
		"expense_id":    expense.ID,
		"property_id":   property.ID,
		"property_name": property.Name,
		"name":          expense.Name,
		"frequency":     expense.Frequency,
	})
	return nil
}

// Expenses are immutable once created; correcting one means deleting it and
// creating a replacement.
func (s *expenseService) DeleteExpense(ctx context.Context, id string, userID string) error {
	existing, err := s.findExpense(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.requireAdmin(ctx, existing.PropertyID, userID); err != nil {
		return err
	}

	if err := s.expenses.Delete(ctx, id); err != nil {
		if errors.Is(err, expenseserrors.ErrExpenseNotFound) {
			return apperrors.NotFoundWithID("Expense", id)
		}
		return apperrors.Internal("Failed to delete expense", err)
	}

	s.cfg.Log.Info("Expense deleted", "id", id)
	return nil
}

func (s *expenseService) ListExpenses(ctx context.Context, propertyID string, userID string, email string) ([]*model.SharedExpense, error) {
	if _, err := s.requireAccess(ctx, propertyID, userID, email); err != nil {
		return nil, err
	}

	expenses, err := s.expenses.FindByProperty(ctx, propertyID)
	if err != nil {
		s.cfg.Log.Error("Failed to list expenses", "property_id", propertyID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve expenses", err)
	}
	return expenses, nil
}

// --- Tags ---

func (s *expenseService) CreateTag(ctx context.Context, tag *model.MemberTag, userID string) error {
	if _, err := s.requireAdmin(ctx, tag.PropertyID, userID); err != nil {
		return err
	}

	tag.Name = sanitizer.NormalizeLabel(tag.Name)
	if err := s.validator.ValidateTag(tag); err != nil {
		return apperrors.Validation("Tag validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.tags.Create(ctx, tag); err != nil {
		s.cfg.Log.Error("Failed to create tag", "property_id", tag.PropertyID, "error", err)
		return apperrors.Internal("Failed to create tag", err)
	}

	s.cfg.Log.Info("Tag created", "id", tag.ID, "property_id", tag.PropertyID, "name", tag.Name)
	return nil
}

// DeleteTag removes the tag without touching shares that reference it. Those
// shares keep their dangling reference and allocate zero until an admin
// re-points or deletes them.
func (s *expenseService) DeleteTag(ctx context.Context, id string, userID string) error {
	existing, err := s.findTag(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.requireAdmin(ctx, existing.PropertyID, userID); err != nil {
		return err
	}

	if err := s.tags.Delete(ctx, id); err != nil {
		if errors.Is(err, expenseserrors.ErrTagNotFound) {
			return apperrors.NotFoundWithID("Tag", id)
		}
		return apperrors.Internal("Failed to delete tag", err)
	}

	s.cfg.Log.Info("Tag deleted", "id", id)
	return nil
}

func (s *expenseService) ListTags(ctx context.Context, propertyID string, userID string, email string) ([]*model.MemberTag, error) {
	if _, err := s.requireAccess(ctx, propertyID, userID, email); err != nil {
		return nil, err
	}

	tags, err := s.tags.FindByProperty(ctx, propertyID)
	if err != nil {
		s.cfg.Log.Error("Failed to list tags", "property_id", propertyID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve tags", err)
	}
	return tags, nil
}

// --- Shares ---

// UpsertShare writes a member's share record, folding into the existing
// record for the same (property, email, tag) triple instead of creating a
// second one. An advisory lock serializes concurrent upserts for the triple;
// the unique index on the collection backstops anything that slips through.
func (s *expenseService) UpsertShare(ctx context.Context, share *model.MemberShare, userID string) (*UpsertResult, error) {
	property, err := s.requireAdmin(ctx, share.PropertyID, userID)
	if err != nil {
		return nil, err
	}

	share.MemberEmail = sanitizer.NormalizeEmail(share.MemberEmail)
	if err := s.validator.ValidateShare(share); err != nil {
		return nil, apperrors.Validation("Share validation failed", map[string]any{"error": err.Error()})
	}
	if !property.HasMember(share.MemberEmail) {
		return nil, apperrors.Validation("Member is not on the property roster",
			map[string]any{"member_email": share.MemberEmail})
	}
	if share.TagID != "" {
		if _, err := s.findTag(ctx, share.TagID); err != nil {
			return nil, err
		}
	}

	lockID := fmt.Sprintf("share_%s_%s_%s", share.PropertyID, share.MemberEmail, share.TagID)
	if _, err := s.lockRepo.Acquire(ctx, lockID, s.cfg.LockTTL); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperrors.Conflict("Another update for this member share is in progress. Please try again.")
		}
		return nil, apperrors.Internal("Failed to acquire share lock", err)
	}
	defer func() {
		if releaseErr := s.lockRepo.Release(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release share lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	result := &UpsertResult{Share: share}
	err = s.shares.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		existing, err := s.shares.FindByPropertyEmailTag(sessCtx, share.PropertyID, share.MemberEmail, share.TagID)
		if err != nil {
			if !errors.Is(err, expenseserrors.ErrShareNotFound) {
				return apperrors.Internal("Failed to look up existing share", err)
			}
			if err := s.shares.Create(sessCtx, share); err != nil {
				return apperrors.Internal("Failed to create member share", err)
			}
			result.Created = true
			return nil
		}

		// Same triple again: overwrite the allocation fields in place.
		share.ID = existing.ID
		if err := s.shares.Update(sessCtx, existing.ID, share); err != nil {
			return apperrors.Internal("Failed to update member share", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to upsert member share",
			"property_id", share.PropertyID,
			"member_email", share.MemberEmail,
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Member share upserted",
		"id", share.ID,
		"property_id", share.PropertyID,
		"member_email", share.MemberEmail,
		"mode", share.Mode().String(),
		"created", result.Created,
	)
	return result, nil
}

func (s *expenseService) UpdateShare(ctx context.Context, id string, userID string, update *model.MemberShareUpdate) error {
	existing, err := s.findShare(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.requireAdmin(ctx, existing.PropertyID, userID); err != nil {
		return err
	}

	if err := s.validator.ValidateShareUpdate(update); err != nil {
		return apperrors.Validation("Share validation failed", map[string]any{"error": err.Error()})
	}

	merged := *existing
	if update.MemberEmail != "" {
		merged.MemberEmail = sanitizer.NormalizeEmail(update.MemberEmail)
	}
	if update.TagID != nil {
		merged.TagID = *update.TagID
	}
	if update.SharePercentage != nil {
		merged.SharePercentage = update.SharePercentage
	}
	if update.CustomAmount != nil {
		merged.CustomAmount = update.CustomAmount
	}

	if err := s.validator.ValidateShare(&merged); err != nil {
		return apperrors.Validation("Share validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.shares.Update(ctx, id, &merged); err != nil {
		if errors.Is(err, expenseserrors.ErrShareNotFound) {
			return apperrors.NotFoundWithID("Share", id)
		}
		// Re-pointing onto an occupied (property, email, tag) triple trips
		// the unique index.
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("An allocation for this member and tag already exists")
		}
		return apperrors.Internal("Failed to update member share", err)
	}

	s.cfg.Log.Info("Member share updated", "id", id)
	return nil
}

func (s *expenseService) DeleteShare(ctx context.Context, id string, userID string) error {
	existing, err := s.findShare(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.requireAdmin(ctx, existing.PropertyID, userID); err != nil {
		return err
	}

	if err := s.shares.Delete(ctx, id); err != nil {
		if errors.Is(err, expenseserrors.ErrShareNotFound) {
			return apperrors.NotFoundWithID("Share", id)
		}
		return apperrors.Internal("Failed to delete member share", err)
	}

	s.cfg.Log.Info("Member share deleted", "id", id)
	return nil
}

func (s *expenseService) ListShares(ctx context.Context, propertyID string, userID string, email string) ([]*model.MemberShare, error) {
	if _, err := s.requireAccess(ctx, propertyID, userID, email); err != nil {
		return nil, err
	}

	shares, err := s.shares.FindByProperty(ctx, propertyID)
	if err != nil {
		s.cfg.Log.Error("Failed to list shares", "property_id", propertyID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve member shares", err)
	}
	return shares, nil
}

// --- Payments ---

// Payments runs the monthly allocation for the property and reports each
// assigned member's amount plus the roster members still without a share.
func (s *expenseService) Payments(ctx context.Context, propertyID string, userID string, email string, month time.Time) (*PaymentsReport, error) {
	property, err := s.requireAccess(ctx, propertyID, userID, email)
	if err != nil {
		return nil, err
	}

	expenses, err := s.expenses.FindByProperty(ctx, propertyID)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve expenses", err)
	}
	shares, err := s.shares.FindByProperty(ctx, propertyID)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve member shares", err)
	}
	tags, err := s.tags.FindByProperty(ctx, propertyID)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve tags", err)
	}

	month = allocator.Month(month)
	roster := sanitizer.NormalizeEmails(property.AllowedEmails)

	amounts := allocator.Allocate(
		dereference(expenses),
		dereference(shares),
		dereference(tags),
		roster,
		month,
	)

	report := &PaymentsReport{
		PropertyID: propertyID,
		Month:      month,
		Pool:       allocator.MonthlyPool(dereference(expenses), month),
		Payments:   make([]MemberPayment, 0, len(amounts)),
		Unassigned: []string{},
	}

	for email, amount := range amounts {
		report.Payments = append(report.Payments, MemberPayment{Email: email, Amount: amount})
	}
	sort.Slice(report.Payments, func(i, j int) bool {
		return report.Payments[i].Email < report.Payments[j].Email
	})

	for _, member := range roster {
		if _, ok := amounts[member]; !ok {
			report.Unassigned = append(report.Unassigned, member)
		}
	}
	sort.Strings(report.Unassigned)

	return report, nil
}

// --- Helpers ---

func dereference[T any](in []*T) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		out = append(out, *v)
	}
	return out
}

func (s *expenseService) findExpense(ctx context.Context, id string) (*model.SharedExpense, error) {
	expense, err := s.expenses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, expenseserrors.ErrExpenseNotFound) {
			return nil, apperrors.NotFoundWithID("Expense", id)
		}
		if errors.Is(err, expenseserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid expense ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve expense", err)
	}
	return expense, nil
}

func (s *expenseService) findTag(ctx context.Context, id string) (*model.MemberTag, error) {
	tag, err := s.tags.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, expenseserrors.ErrTagNotFound) {
			return nil, apperrors.NotFoundWithID("Tag", id)
		}
		if errors.Is(err, expenseserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid tag ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve tag", err)
	}
	return tag, nil
}

func (s *expenseService) findShare(ctx context.Context, id string) (*model.MemberShare, error) {
	share, err := s.shares.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, expenseserrors.ErrShareNotFound) {
			return nil, apperrors.NotFoundWithID("Share", id)
		}
		if errors.Is(err, expenseserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid share ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve member share", err)
	}
	return share, nil
}

func (s *expenseService) findProperty(ctx context.Context, propertyID string) (*model.Property, error) {
	if propertyID == "" {
		return nil, apperrors.InvalidInput("Property ID cannot be empty")
	}
	property, err := s.properties.FindByID(ctx, propertyID)
	if err != nil {
		return nil, apperrors.NotFoundWithID("Property", propertyID)
	}
	return property, nil
}

func (s *expenseService) requireAdmin(ctx context.Context, propertyID string, userID string) (*model.Property, error) {
	property, err := s.findProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !property.HasAdmin(userID) {
		return nil, apperrors.Forbidden("Only property admins may manage expenses")
	}
	return property, nil
}

func (s *expenseService) requireAccess(ctx context.Context, propertyID string, userID string, email string) (*model.Property, error) {
	property, err := s.findProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !property.HasAdmin(userID) && !property.HasMember(email) {
		return nil, apperrors.Forbidden("You do not have access to this property")
	}
	return property, nil
}

func (s *expenseService) notifyAdmins(ctx context.Context, property *model.Property, actorID string, eventType string, data map[string]string) {
	for _, adminID := range property.Admins {
		if adminID == actorID {
			continue
		}
		if err := s.notifier.Notify(ctx, model.NotificationEvent{
			UserID: adminID,
			Type:   eventType,
			Data:   data,
		}); err != nil {
			s.cfg.Log.Warn("Failed to notify admin", "admin_id", adminID, "type", eventType, "error", err)
		}
	}
}
