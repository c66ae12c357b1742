package service

import (
	"context"
	"errors"
	"sync"

	notificationserrors "lofshare/internal/notifications/errors"
	"lofshare/internal/notifications/repository"
	"lofshare/pkg/config"
	apperrors "lofshare/pkg/errors"
	"lofshare/pkg/kafka"
	"lofshare/pkg/model"
)

type NotificationService interface {
	ListForUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Notification, int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id string, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	HandleEvent(ctx context.Context, msg kafka.Message) error
}

type notificationService struct {
	repo repository.NotificationRepository
	cfg  *config.Config
}

func NewNotificationService(repo repository.NotificationRepository, cfg *config.Config) NotificationService {
	return &notificationService{
		repo: repo,
		cfg:  cfg,
	}
}

// HandleEvent is the Kafka consumer handler: it persists a published
// notification event as an unread in-app notification.
func (s *notificationService) HandleEvent(ctx context.Context, msg kafka.Message) error {
	var event model.NotificationEvent
	if err := msg.DecodeValue(&event); err != nil {
		return kafka.NewPermanentError("failed to decode notification event", err)
	}
	if event.UserID == "" || event.Type == "" {
		return kafka.NewPermanentError("notification event missing user_id or type", nil)
	}

	notification := &model.Notification{
		UserID: event.UserID,
		Type:   event.Type,
		Data:   event.Data,
		IsRead: false,
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return kafka.NewTransientError("failed to persist notification", err)
	}

	s.cfg.Log.Info("Notification persisted",
		"id", notification.ID,
		"user_id", event.UserID,
		"type", event.Type,
		"event_id", msg.GetEventID(),
	)
	return nil
}

func (s *notificationService) ListForUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Notification, int64, error) {
	if userID == "" {
		return nil, 0, apperrors.InvalidInput("User ID cannot be empty")
	}

	var count int64
	var notifications []*model.Notification
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByUser(ctx, userID)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count notifications", "user_id", userID, "error", errCount)
			errCount = apperrors.Internal("Failed to count notifications", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		notifications, errFind = s.repo.FindByUser(ctx, userID, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list notifications", "user_id", userID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve notifications", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return notifications, count, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, apperrors.InvalidInput("User ID cannot be empty")
	}

	count, err := s.repo.CountUnreadByUser(ctx, userID)
	if err != nil {
		s.cfg.Log.Error("Failed to count unread notifications", "user_id", userID, "error", err)
		return 0, apperrors.Internal("Failed to count unread notifications", err)
	}
	return count, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id string, userID string) error {
	if id == "" {
		return apperrors.InvalidInput("Notification ID cannot be empty")
	}

	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, notificationserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Notification", id)
		}
		if errors.Is(err, notificationserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid notification ID format")
		}
		return apperrors.Internal("Failed to mark notification read", err)
	}

	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, apperrors.InvalidInput("User ID cannot be empty")
	}

	modified, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, apperrors.Internal("Failed to mark notifications read", err)
	}

	s.cfg.Log.Info("Notifications marked read", "user_id", userID, "count", modified)
	return modified, nil
}
