package main

import (
	"lofshare/internal/bookings/handler"
	"lofshare/internal/bookings/repository"
	"lofshare/internal/bookings/service"
	"lofshare/internal/bookings/validator"
	"lofshare/internal/notifications"
	propertiesrepo "lofshare/internal/properties/repository"
	"lofshare/pkg/app"
	"lofshare/pkg/config"
	mongotx "lofshare/pkg/db/mongo"
	"lofshare/pkg/kafka"
	kafka_config "lofshare/pkg/kafka/config"
	kafka_middleware "lofshare/pkg/kafka/middleware"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Bookings service")
	bookingService := initServices(cfg)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewBookingHandler(bookingService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) service.BookingService {
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	lockRepo := mongotx.NewLockRepository(cfg.Client.Mongo, cfg.MongoDatabaseName)
	propertyRepo := propertiesrepo.NewMongoPropertyRepository(cfg)

	bookingService := service.NewBookingService(
		bookingRepo,
		lockRepo,
		propertyRepo,
		bookingValidator,
		newNotifier(cfg),
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}

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
