package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/home-service-booking/internal/config"
	"github.com/iliyamo/home-service-booking/internal/database"
	"github.com/iliyamo/home-service-booking/internal/handler"
	"github.com/iliyamo/home-service-booking/internal/repository"
	"github.com/iliyamo/home-service-booking/internal/router"
	"github.com/iliyamo/home-service-booking/internal/workflow"
)

// main boots the booking API: config, database, Redis, the lifecycle
// engine and the HTTP router.  Notification delivery runs in the
// separate worker binary; the API only writes outbox rows.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	zl, err := zap.NewProduction()
	if cfg.Env == "dev" {
		zl, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	logger := zl.Sugar()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatalw("database connect failed", "error", err)
	}
	defer func() { _ = db.Close() }()
	logger.Infow("database connected", "host", cfg.DBHost, "name", cfg.DBName)

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warnw("redis unavailable, rate limiting disabled")
	}

	store := repository.NewStore(db)
	engine := workflow.NewEngine(store, logger)

	h := router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, store.Users),
		Bookings:      handler.NewBookingHandler(engine, store.Bookings, store.Claims),
		Warranty:      handler.NewWarrantyHandler(engine, store.Claims),
		Notifications: handler.NewNotificationHandler(store.Notifications),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	router.RegisterRoutes(e, cfg, rdb, h)

	logger.Infow("server starting", "port", cfg.Port, "env", cfg.Env)
	if err := e.Start(":" + cfg.Port); err != nil {
		logger.Fatalw("server stopped", "error", err)
	}
}
