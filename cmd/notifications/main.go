package main

import (
	"context"

	"lofshare/internal/notifications"
	"lofshare/internal/notifications/handler"
	"lofshare/internal/notifications/repository"
	"lofshare/internal/notifications/service"
	"lofshare/pkg/app"
	"lofshare/pkg/config"
	"lofshare/pkg/kafka"
	kafka_config "lofshare/pkg/kafka/config"
	kafka_middleware "lofshare/pkg/kafka/middleware"
)

const ServiceName = "notifications"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Notifications service")

	notificationService := initServices(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	consumer := startConsumer(ctx, cfg, notificationService)
	if consumer != nil {
		defer consumer.Close()
	}

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewNotificationHandler(notificationService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) service.NotificationService {
	notificationRepo := repository.NewMongoNotificationRepository(cfg)
	notificationService := service.NewNotificationService(notificationRepo, cfg)

	cfg.Log.Info("Notification service initialized", "database", cfg.MongoDatabaseName)
	return notificationService
}

// startConsumer subscribes to the notification topic and persists events as
// in-app notifications. The HTTP API still serves reads if the broker is
// down; only ingestion stops.
func startConsumer(ctx context.Context, cfg *config.Config, svc service.NotificationService) *kafka.Consumer {
	kafkaCfg := kafka_config.Load()
	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		notifications.Topic,
		notifications.ConsumerGroup,
		notifications.DLQTopic,
		svc.HandleEvent,
	)
	if err != nil {
		cfg.Log.Warn("Kafka consumer unavailable, event ingestion disabled", "error", err)
		return nil
	}

	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware())
		consumer.Use(kafka_middleware.MetricsConsumerMiddleware())
	}

	go func() {
		if err := consumer.Start(ctx); err != nil {
			cfg.Log.Error("Kafka consumer stopped", "error", err)
		}
	}()

	return consumer
}
