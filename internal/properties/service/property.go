package service

import (
	"context"
	"errors"
	"strings"

	"lofshare/internal/notifications"
	propertieserrors "lofshare/internal/properties/errors"
	"lofshare/internal/properties/repository"
	"lofshare/internal/properties/validator"
	"lofshare/pkg/config"
	apperrors "lofshare/pkg/errors"
	"lofshare/pkg/model"
	"lofshare/pkg/sanitizer"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

type PropertyService interface {
	Create(ctx context.Context, property *model.Property) error
	GetByID(ctx context.Context, id string, userID string, email string) (*model.Property, error)
	ListForUser(ctx context.Context, userID string, email string) ([]*model.Property, error)
	AddMember(ctx context.Context, propertyID string, adminID string, email string) error
	RemoveMember(ctx context.Context, propertyID string, adminID string, email string) error
	AddAdmin(ctx context.Context, propertyID string, adminID string, newAdminID string) error
	RemoveAdmin(ctx context.Context, propertyID string, adminID string, targetID string) error
	UpdateSettings(ctx context.Context, propertyID string, adminID string, settings *model.PropertySettings) error
}

type propertyService struct {
	repo      repository.PropertyRepository
	validator *validator.PropertyValidator
	notifier  notifications.Notifier
	cfg       *config.Config
}

func NewPropertyService(
	repo repository.PropertyRepository,
	validator *validator.PropertyValidator,
	notifier notifications.Notifier,
	cfg *config.Config,
) PropertyService {
	return &propertyService{
		repo:      repo,
		validator: validator,
		notifier:  notifier,
		cfg:       cfg,
	}
}

func (s *propertyService) Create(ctx context.Context, property *model.Property) error {
	s.sanitize(property)
	s.applyDefaults(property)

	if err := s.validate(property); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, property); err != nil {
		s.cfg.Log.Error("Failed to create property", "error", err)
		return apperrors.Internal("Failed to create property", err)
	}

	s.cfg.Log.Info("Property created successfully",
		"id", property.ID,
		"owner_id", property.OwnerID,
		"members", len(property.AllowedEmails),
	)
	return nil
}

func (s *propertyService) GetByID(ctx context.Context, id string, userID string, email string) (*model.Property, error) {
	property, err := s.findProperty(ctx, id)
	if err != nil {
		return nil, err
	}

	if !property.HasAdmin(userID) && !property.HasMember(email) {
		return nil, apperrors.Forbidden("You do not have access to this property")
	}

	return property, nil
}

func (s *propertyService) ListForUser(ctx context.Context, userID string, email string) ([]*model.Property, error) {
	if userID == "" && email == "" {
		return nil, apperrors.InvalidInput("User identity is required")
	}

	properties, err := s.repo.FindForUser(ctx, userID, sanitizer.NormalizeEmail(email))
	if err != nil {
		s.cfg.Log.Error("Failed to list properties", "user_id", userID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve properties", err)
	}

	return properties, nil
}

// AddMember appends an email to the roster. The read-modify-write runs inside
// a transaction so two concurrent roster mutations cannot drop each other's
// entries.
func (s *propertyService) AddMember(ctx context.Context, propertyID string, adminID string, email string) error {
	email = sanitizer.NormalizeEmail(email)
	if email == "" {
		return apperrors.InvalidInput("Member email cannot be empty")
	}

	var added *model.Property
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		property, err := s.requireAdmin(sessCtx, propertyID, adminID)
		if err != nil {
			return err
		}

		if property.HasMember(email) {
			return apperrors.Conflict("Email is already on the roster")
		}

		roster := append(property.AllowedEmails, email)
		if err := s.repo.UpdateRoster(sessCtx, propertyID, sanitizer.NormalizeEmails(roster)); err != nil {
			return apperrors.Internal("Failed to update roster", err)
		}

		added = property
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to add member", "property_id", propertyID, "error", err)
		return err
	}

	s.cfg.Log.Info("Member added to roster", "property_id", propertyID, "email", email)

	if notifyErr := s.notifier.Notify(ctx, model.NotificationEvent{
		UserID: added.OwnerID,
		Type:   model.NotifyMemberAdded,
		Data: map[string]string{
			"property_id":   propertyID,
			"property_name": added.Name,
			"member_email":  email,
		},
	}); notifyErr != nil {
		s.cfg.Log.Warn("Failed to send member-added notification", "property_id", propertyID, "error", notifyErr)
	}

	return nil
}

func (s *propertyService) RemoveMember(ctx context.Context, propertyID string, adminID string, email string) error {
	email = sanitizer.NormalizeEmail(email)
	if email == "" {
		return apperrors.InvalidInput("Member email cannot be empty")
	}

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		property, err := s.requireAdmin(sessCtx, propertyID, adminID)
		if err != nil {
			return err
		}

		if !property.HasMember(email) {
			return apperrors.NotFound("Roster member")
		}

		roster := make([]string, 0, len(property.AllowedEmails))
		for _, e := range property.AllowedEmails {
			if sanitizer.NormalizeEmail(e) != email {
				roster = append(roster, e)
			}
		}

		if err := s.repo.UpdateRoster(sessCtx, propertyID, sanitizer.NormalizeEmails(roster)); err != nil {
			return apperrors.Internal("Failed to update roster", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to remove member", "property_id", propertyID, "error", err)
		return err
	}

	s.cfg.Log.Info("Member removed from roster", "property_id", propertyID, "email", email)
	return nil
}

func (s *propertyService) AddAdmin(ctx context.Context, propertyID string, adminID string, newAdminID string) error {
	if newAdminID == "" {
		return apperrors.InvalidInput("Admin ID cannot be empty")
	}

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		property, err := s.requireAdmin(sessCtx, propertyID, adminID)
		if err != nil {
			return err
		}

		if property.HasAdmin(newAdminID) {
			return apperrors.Conflict("User is already an admin")
		}

		admins := append(property.Admins, newAdminID)
		if err := s.repo.UpdateAdmins(sessCtx, propertyID, admins); err != nil {
			return apperrors.Internal("Failed to update admins", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to add admin", "property_id", propertyID, "error", err)
		return err
	}

	s.cfg.Log.Info("Admin added", "property_id", propertyID, "admin_id", newAdminID)
	return nil
}

func (s *propertyService) RemoveAdmin(ctx context.Context, propertyID string, adminID string, targetID string) error {
	if targetID == "" {
		return apperrors.InvalidInput("Admin ID cannot be empty")
	}

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		property, err := s.requireAdmin(sessCtx, propertyID, adminID)
		if err != nil {
			return err
		}

		// The owner must always remain an admin.
		if targetID == property.OwnerID {
			return apperrors.Forbidden("The property owner cannot be removed from the admin list")
		}
		if !property.HasAdmin(targetID) {
			return apperrors.NotFound("Admin")
		}

		admins := make([]string, 0, len(property.Admins))
		for _, id := range property.Admins {
			if id != targetID {
				admins = append(admins, id)
			}
		}

		if err := s.repo.UpdateAdmins(sessCtx, propertyID, admins); err != nil {
			return apperrors.Internal("Failed to update admins", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to remove admin", "property_id", propertyID, "error", err)
		return err
	}

	s.cfg.Log.Info("Admin removed", "property_id", propertyID, "admin_id", targetID)
	return nil
}

func (s *propertyService) UpdateSettings(ctx context.Context, propertyID string, adminID string, settings *model.PropertySettings) error {
	if settings == nil {
		return apperrors.InvalidInput("Settings cannot be empty")
	}

	settings.Normalize()
	for i := range settings.FixedCosts {
		settings.FixedCosts[i].Name = sanitizer.NormalizeLabel(settings.FixedCosts[i].Name)
		if settings.FixedCosts[i].ID == "" {
			settings.FixedCosts[i].ID = uuid.New().String()
		}
	}

	if err := s.validator.ValidateSettings(settings); err != nil {
		s.cfg.Log.Warn("Settings validation failed", "property_id", propertyID, "error", err)
		return apperrors.Validation("Invalid settings", map[string]any{"error": err.Error()})
	}

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := s.requireAdmin(sessCtx, propertyID, adminID); err != nil {
			return err
		}
		if err := s.repo.UpdateSettings(sessCtx, propertyID, settings); err != nil {
			return apperrors.Internal("Failed to update settings", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update settings", "property_id", propertyID, "error", err)
		return err
	}

	s.cfg.Log.Info("Settings updated", "property_id", propertyID)
	return nil
}

// --- Helpers ---

func (s *propertyService) sanitize(p *model.Property) {
	p.Name = sanitizer.NormalizeName(p.Name)
	p.AllowedEmails = sanitizer.NormalizeEmails(p.AllowedEmails)
	p.Admins = sanitizer.SanitizeSlice(p.Admins, strings.TrimSpace)
}

// applyDefaults guarantees the owner is an admin and on the roster, and that
// new fixed costs receive ids.
func (s *propertyService) applyDefaults(p *model.Property) {
	if p.OwnerID != "" && !p.HasAdmin(p.OwnerID) {
		p.Admins = append(p.Admins, p.OwnerID)
	}

	p.Settings.Normalize()
	for i := range p.Settings.FixedCosts {
		if p.Settings.FixedCosts[i].ID == "" {
			p.Settings.FixedCosts[i].ID = uuid.New().String()
		}
	}
}

func (s *propertyService) validate(p *model.Property) error {
	if err := s.validator.Validate(p); err != nil {
		s.cfg.Log.Warn("Property validation failed", "error", err)
		return apperrors.Validation("Property validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *propertyService) findProperty(ctx context.Context, id string) (*model.Property, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Property ID cannot be empty")
	}

	property, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, propertieserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Property", id)
		}
		if errors.Is(err, propertieserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid property ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve property", err)
	}

	return property, nil
}

func (s *propertyService) requireAdmin(ctx context.Context, propertyID string, userID string) (*model.Property, error) {
	property, err := s.findProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !property.HasAdmin(userID) {
		return nil, apperrors.Forbidden("Only property admins may perform this action")
	}
	return property, nil
}
