package notifications

import (
	"context"

	"lofshare/pkg/kafka"
	"lofshare/pkg/logger"
	"lofshare/pkg/model"
)

const (
	Topic    = "lofshare.notifications"
	DLQTopic = "lofshare.notifications.dlq"

	ConsumerGroup = "lofshare-notifications"
)

// Notifier is the fire-and-forget sink services call after a state
// transition. Callers log failures and move on; no mutation depends on
// delivery.
type Notifier interface {
	Notify(ctx context.Context, event model.NotificationEvent) error
}

// KafkaNotifier publishes notification events for the notifications service
// to persist and deliver.
type KafkaNotifier struct {
	producer *kafka.Producer
	source   string
	log      *logger.Logger
}

func NewKafkaNotifier(producer *kafka.Producer, source string, log *logger.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		producer: producer,
		source:   source,
		log:      log,
	}
}

func (n *KafkaNotifier) Notify(ctx context.Context, event model.NotificationEvent) error {
	msg := kafka.NewMessage().
		WithKey(event.UserID).
		WithValue(event).
		WithEventType(event.Type).
		WithSource(n.source).
		Build()

	if err := n.producer.Publish(ctx, msg); err != nil {
		n.log.Warn("Failed to publish notification event",
			"user_id", event.UserID,
			"type", event.Type,
			"error", err,
		)
		return err
	}

	return nil
}

// NoopNotifier discards events. Used when no broker is configured and in
// tests.
type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, event model.NotificationEvent) error {
	return nil
}
