package main

import (
	bookingsrepo "lofshare/internal/bookings/repository"
	"lofshare/internal/dashboard/handler"
	"lofshare/internal/dashboard/service"
	expensesrepo "lofshare/internal/expenses/repository"
	propertiesrepo "lofshare/internal/properties/repository"
	"lofshare/pkg/app"
	"lofshare/pkg/config"
)

const ServiceName = "dashboard"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Dashboard service")
	dashboardService := initServices(cfg)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewDashboardHandler(dashboardService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) service.DashboardService {
	dashboardService := service.NewDashboardService(
		propertiesrepo.NewMongoPropertyRepository(cfg),
		bookingsrepo.NewMongoBookingRepository(cfg),
		expensesrepo.NewMongoExpenseRepository(cfg),
		expensesrepo.NewMongoTagRepository(cfg),
		expensesrepo.NewMongoShareRepository(cfg),
		cfg,
	)

	cfg.Log.Info("Dashboard service initialized", "database", cfg.MongoDatabaseName)
	return dashboardService
}
