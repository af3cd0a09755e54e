package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/SeakMengs/OceanSeal/internal/config"
	"github.com/SeakMengs/OceanSeal/internal/database"
	"github.com/SeakMengs/OceanSeal/internal/env"
	"github.com/SeakMengs/OceanSeal/internal/mailer"
	"github.com/SeakMengs/OceanSeal/internal/queue"
	"github.com/SeakMengs/OceanSeal/internal/repository"
	"github.com/SeakMengs/OceanSeal/internal/util"
)

// this function run before main
func init() {
	env.LoadEnv(".env")
}

const (
	MAX_WORKER = 3
)

func main() {
	cfg := config.GetConfig()
	logger := util.NewLogger(cfg.ENV)
	defer logger.Sync()

	if !cfg.RabbitMQ.Enabled() {
		logger.Fatal("RABBITMQ_HOST is not set, nothing to consume")
	}

	db, err := database.ConnectReturnGormDB(cfg.DB)
	if err != nil {
		logger.Panic(err)
	}

	sqlDb, err := db.DB()
	if err != nil {
		logger.Panic(err)
	}
	defer sqlDb.Close()
	logger.Info("Database connected")

	repo := repository.NewRepository(db, logger)
	app := queue.EventConsumerContext{
		Logger:        logger,
		AuditLog:      repo.CertificateLog,
		VerifyBaseURL: cfg.VerifyWebURL,
	}

	if cfg.Mail.Enabled() {
		app.Mailer = mailer.NewSendgrid(cfg.Mail.SEND_GRID.API_KEY, cfg.Mail.FROM_EMAIL, cfg.IsProduction(), logger)
	} else {
		logger.Warn("Mail is not configured, certificate issued emails are disabled")
	}

	rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQ.GetConnectionString())
	if err != nil {
		logger.Panic("Error connecting to RabbitMQ: ", err)
	}
	defer func() {
		if err := rabbitMQ.Close(); err != nil {
			logger.Errorf("Failed to close RabbitMQ connection: %v", err)
		}
	}()
	logger.Infof("Connected to RabbitMQ at %s:%s", cfg.RabbitMQ.HOST, cfg.RabbitMQ.PORT)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rabbitMQ.ConsumeCertificateEvents(ctx, queue.HandleCertificateEvent, util.DetermineWorkers(MAX_WORKER), &app); err != nil {
		logger.Fatalf("Failed to consume certificate events: %v", err)
	}

	logger.Infof("Started consuming certificate events")

	<-ctx.Done()
	logger.Info("Shutting down event consumer")
}
