package service

import (
	"context"
	"testing"

	"lofshare/internal/notifications"
	propertieserrors "lofshare/internal/properties/errors"
	"lofshare/internal/properties/validator"
	"lofshare/pkg/config"
	apperrors "lofshare/pkg/errors"
	mongotx "lofshare/pkg/db/mongo"
	"lofshare/pkg/logger"
	"lofshare/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

type mockPropertyRepository struct {
	properties map[string]*model.Property
	nextID     int
}

func newMockPropertyRepository() *mockPropertyRepository {
	return &mockPropertyRepository{
		properties: make(map[string]*model.Property),
		nextID:     1,
	}
}

func (m *mockPropertyRepository) Create(ctx context.Context, property *model.Property) error {
	property.ID = "507f1f77bcf86cd79943901" + string(rune('0'+m.nextID))
	m.nextID++
	clone := *property
	m.properties[property.ID] = &clone
	return nil
}

func (m *mockPropertyRepository) FindByID(ctx context.Context, id string) (*model.Property, error) {
	p, ok := m.properties[id]
	if !ok {
		return nil, propertieserrors.ErrNotFound
	}
	clone := *p
	clone.Settings.Normalize()
	return &clone, nil
}

func (m *mockPropertyRepository) FindForUser(ctx context.Context, userID string, email string) ([]*model.Property, error) {
	var out []*model.Property
	for _, p := range m.properties {
		if p.HasAdmin(userID) || p.HasMember(email) {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *mockPropertyRepository) UpdateSettings(ctx context.Context, id string, settings *model.PropertySettings) error {
	p, ok := m.properties[id]
	if !ok {
		return propertieserrors.ErrNotFound
	}
	p.Settings = *settings
	return nil
}

func (m *mockPropertyRepository) UpdateRoster(ctx context.Context, id string, allowedEmails []string) error {
	p, ok := m.properties[id]
	if !ok {
		return propertieserrors.ErrNotFound
	}
	p.AllowedEmails = allowedEmails
	return nil
}

func (m *mockPropertyRepository) UpdateAdmins(ctx context.Context, id string, admins []string) error {
	p, ok := m.properties[id]
	if !ok {
		return propertieserrors.ErrNotFound
	}
	p.Admins = admins
	return nil
}

func (m *mockPropertyRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.SessionContext(nil))
}

func newTestService(repo *mockPropertyRepository) PropertyService {
	log := logger.New(logger.Config{Level: "error", Format: "json", Service: "properties-test"})
	cfg := &config.Config{Log: log}
	return NewPropertyService(repo, validator.NewPropertyValidator(log), notifications.NoopNotifier{}, cfg)
}

func seedProperty(t *testing.T, repo *mockPropertyRepository, svc PropertyService) *model.Property {
	t.Helper()
	property := &model.Property{
		Name:          "Casa del Lago",
		OwnerID:       "owner-1",
		Admins:        []string{"owner-1"},
		AllowedEmails: []string{"owner@example.com"},
	}
	if err := svc.Create(context.Background(), property); err != nil {
		t.Fatalf("seed property: %v", err)
	}
	return property
}

func TestCreateOwnerMustBeAdmin(t *testing.T) {
	repo := newMockPropertyRepository()
	svc := newTestService(repo)

	property := &model.Property{
		Name:          "Casa del Lago",
		OwnerID:       "owner-1",
		Admins:        []string{"someone-else"},
		AllowedEmails: []string{"owner@example.com"},
	}

	if err := svc.Create(context.Background(), property); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if !property.HasAdmin("owner-1") {
		t.Error("owner must be appended to the admin list on create")
	}
}

func TestCreateNormalizesRosterEmails(t *testing.T) {
	repo := newMockPropertyRepository()
	svc := newTestService(repo)

	property := &model.Property{
		Name:          "Casa del Lago",
		OwnerID:       "owner-1",
		Admins:        []string{"owner-1"},
		AllowedEmails: []string{"Owner@Example.com ", "owner@example.com"},
	}

	if err := svc.Create(context.Background(), property); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if len(property.AllowedEmails) != 1 || property.AllowedEmails[0] != "owner@example.com" {
		t.Errorf("AllowedEmails = %v, want deduplicated lowercase roster", property.AllowedEmails)
	}
}

func TestCreateTrimsAdminIDs(t *testing.T) {
	repo := newMockPropertyRepository()
	svc := newTestService(repo)

	property := &model.Property{
		Name:          "Casa del Lago",
		OwnerID:       "owner-1",
		Admins:        []string{" owner-1 ", "  "},
		AllowedEmails: []string{"owner@example.com"},
	}

	if err := svc.Create(context.Background(), property); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if len(property.Admins) != 1 || property.Admins[0] != "owner-1" {
		t.Errorf("Admins = %v, want trimmed ids with blanks dropped", property.Admins)
	}
}

func TestAddMemberRejectsDuplicate(t *testing.T) {
	repo := newMockPropertyRepository()
	svc := newTestService(repo)
	property := seedProperty(t, repo, svc)

	err := svc.AddMember(context.Background(), property.ID, "owner-1", "OWNER@example.com")
	if err == nil {
		t.Fatal("adding an email already on the roster must fail")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeConflict {
		t.Errorf("error = %v, want conflict", err)
	}
}

func TestAddMemberRequiresAdmin(t *testing.T) {
	repo := newMockPropertyRepository()
	svc := newTestService(repo)
	property := seedProperty(t, repo, svc)

	err := svc.AddMember(context.Background(), property.ID, "not-an-admin", "new@example.com")
	if err == nil {
		t.Fatal("non-admin roster mutation must fail")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeForbidden {
		t.Errorf("error = %v, want forbidden", err)
	}
}

func TestAddAndRemoveMember(t *testing.T) {
	repo := newMockPropertyRepository()
	svc := newTestService(repo)
	property := seedProperty(t, repo, svc)

	if err := svc.AddMember(context.Background(), property.ID, "owner-1", "Guest@Example.com"); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}

	stored := repo.properties[property.ID]
	if !stored.HasMember("guest@example.com") {
		t.Fatal("member missing from roster after AddMember")
	}

	if err := svc.RemoveMember(context.Background(), property.ID, "owner-1", "guest@example.com"); err != nil {
		t.Fatalf("RemoveMember() error = %v", err)
	}
	if repo.properties[property.ID].HasMember("guest@example.com") {
		t.Error("member still on roster after RemoveMember")
	}
}

func TestRemoveAdminProtectsOwner(t *testing.T) {
	repo := newMockPropertyRepository()
	svc := newTestService(repo)
	property := seedProperty(t, repo, svc)

	err := svc.RemoveAdmin(context.Background(), property.ID, "owner-1", "owner-1")
	if err == nil {
		t.Fatal("removing the owner from the admin list must fail")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeForbidden {
		t.Errorf("error = %v, want forbidden", err)
	}
}

func TestUpdateSettingsAssignsFixedCostIDs(t *testing.T) {
	repo := newMockPropertyRepository()
	svc := newTestService(repo)
	property := seedProperty(t, repo, svc)

	settings := &model.PropertySettings{
		Prices: model.Prices{AdultPerDay: 3600, ChildPerDay: 1800},
		FixedCosts: []model.FixedCost{
			{Name: "Cleaning", Amount: 20000},
			{ID: "keep-me", Name: "Firewood", Amount: 5000, Optional: true},
		},
	}

	if err := svc.UpdateSettings(context.Background(), property.ID, "owner-1", settings); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}

	stored := repo.properties[property.ID].Settings
	if stored.FixedCosts[0].ID == "" {
		t.Error("new fixed cost must receive a generated id")
	}
	if stored.FixedCosts[1].ID != "keep-me" {
		t.Error("existing fixed cost id must be preserved")
	}
	if stored.Prices.Currency != model.DefaultCurrency {
		t.Errorf("currency = %q, want default %q", stored.Prices.Currency, model.DefaultCurrency)
	}
}

func TestGetByIDAccessGuard(t *testing.T) {
	repo := newMockPropertyRepository()
	svc := newTestService(repo)
	property := seedProperty(t, repo, svc)

	if _, err := svc.GetByID(context.Background(), property.ID, "owner-1", ""); err != nil {
		t.Errorf("admin access failed: %v", err)
	}
	if _, err := svc.GetByID(context.Background(), property.ID, "", "owner@example.com"); err != nil {
		t.Errorf("roster member access failed: %v", err)
	}
	if _, err := svc.GetByID(context.Background(), property.ID, "stranger", "stranger@example.com"); err == nil {
		t.Error("stranger access must be forbidden")
	}
}
