package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/home-service-booking/internal/config"
	"github.com/iliyamo/home-service-booking/internal/database"
	"github.com/iliyamo/home-service-booking/internal/notifier"
	"github.com/iliyamo/home-service-booking/internal/queue"
	"github.com/iliyamo/home-service-booking/internal/repository"
)

// main boots the notification pipeline: the outbox relay that turns
// committed notification rows into dispatch jobs, and the consumer that
// delivers them.  Both stop on SIGINT/SIGTERM.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	qcfg := config.LoadQueueConfig()
	smtp := config.LoadSMTPConfig()

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

	notifications := repository.NewNotificationRepo(db)
	users := repository.NewUserRepo(db)

	publisher, err := queue.NewPublisher(qcfg.URL)
	if err != nil {
		logger.Fatalw("broker connect failed", "url", qcfg.URL, "error", err)
	}
	defer func() { _ = publisher.Close() }()

	var sender notifier.Sender
	if smtp.Host != "" {
		sender = notifier.NewSMTPSender(smtp.Host, smtp.Port, smtp.Username, smtp.Password, smtp.From)
		logger.Infow("email provider configured", "host", smtp.Host)
	} else {
		sender = notifier.NewLogSender(logger)
		logger.Warnw("no SMTP host configured, logging deliveries instead")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	relay := queue.NewRelay(notifications, publisher, logger, qcfg.RelayInterval, qcfg.RelayBatch)
	go relay.Run(ctx)

	worker := queue.NewWorker(queue.WorkerConfig{
		URL:         qcfg.URL,
		Prefetch:    qcfg.Prefetch,
		MaxAttempts: uint32(qcfg.MaxAttempts),
		BackoffBase: qcfg.BackoffBase,
		BackoffMax:  qcfg.BackoffMax,
	}, notifications, users, sender, logger)

	logger.Infow("worker starting", "queue", queue.DispatchQueue, "prefetch", qcfg.Prefetch)
	if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatalw("worker stopped", "error", err)
	}
	logger.Infow("worker shut down")
}
