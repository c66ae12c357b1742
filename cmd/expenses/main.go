package main

import (
	"lofshare/internal/expenses/handler"
	"lofshare/internal/expenses/repository"
	"lofshare/internal/expenses/service"
	"lofshare/internal/expenses/validator"
	"lofshare/internal/notifications"
	propertiesrepo "lofshare/internal/properties/repository"
	"lofshare/pkg/app"
	"lofshare/pkg/config"
	mongotx "lofshare/pkg/db/mongo"
	"lofshare/pkg/kafka"
	kafka_config "lofshare/pkg/kafka/config"
	kafka_middleware "lofshare/pkg/kafka/middleware"
)

const ServiceName = "expenses"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Expenses service")
	expenseService := initServices(cfg)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewExpenseHandler(expenseService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) service.ExpenseService {
	expenseValidator := validator.NewExpenseValidator(cfg.Log)
	expenseRepo := repository.NewMongoExpenseRepository(cfg)
	tagRepo := repository.NewMongoTagRepository(cfg)
	shareRepo := repository.NewMongoShareRepository(cfg)
	lockRepo := mongotx.NewLockRepository(cfg.Client.Mongo, cfg.MongoDatabaseName)
	propertyRepo := propertiesrepo.NewMongoPropertyRepository(cfg)

	expenseService := service.NewExpenseService(
		expenseRepo,
		tagRepo,
		shareRepo,
		lockRepo,
		propertyRepo,
		expenseValidator,
		newNotifier(cfg),
		cfg,
	)

	cfg.Log.Info("Expense service initialized", "database", cfg.MongoDatabaseName)
	return expenseService
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
