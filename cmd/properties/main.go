package main

import (
	"lofshare/internal/notifications"
	"lofshare/internal/properties/handler"
	"lofshare/internal/properties/repository"
	"lofshare/internal/properties/service"
	"lofshare/internal/properties/validator"
	"lofshare/pkg/app"
	"lofshare/pkg/config"
	"lofshare/pkg/kafka"
	kafka_config "lofshare/pkg/kafka/config"
	kafka_middleware "lofshare/pkg/kafka/middleware"
)

const ServiceName = "properties"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Properties service")
	propertyService := initServices(cfg)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewPropertyHandler(propertyService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) service.PropertyService {
	propertyValidator := validator.NewPropertyValidator(cfg.Log)
	propertyRepo := repository.NewMongoPropertyRepository(cfg)
	propertyService := service.NewPropertyService(
		propertyRepo,
		propertyValidator,
		newNotifier(cfg),
		cfg,
	)

	cfg.Log.Info("Property service initialized", "database", cfg.MongoDatabaseName)
	return propertyService
}

// newNotifier builds the Kafka notifier, falling back to a no-op when the
// broker is unreachable: notification delivery is best effort and must never
// keep the service from starting.
func newNotifier(cfg *config.Config) notifications.Notifier {
	kafkaCfg := kafka_config.Load()
	producer, err := kafka.NewProducer(kafkaCfg, notifications.Topic, notifications.DLQTopic)
	if err != nil {
		cfg.Log.Warn("Kafka producer unavailable, notifications disabled", "error", err)
		return notifications.NoopNotifier{}
	}

	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware())
		producer.Use(kafka_middleware.MetricsProducerMiddleware())
	}

	return notifications.NewKafkaNotifier(producer, ServiceName, cfg.Log)
}
