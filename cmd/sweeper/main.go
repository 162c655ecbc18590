package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/inkwell/inkwell-api/internal/config"
	"github.com/inkwell/inkwell-api/internal/domain/ledger"
	"github.com/inkwell/inkwell-api/internal/domain/purchase"
	"github.com/inkwell/inkwell-api/internal/pkg/database"
	"github.com/inkwell/inkwell-api/internal/pkg/logger"
)

// One-shot sweep that expires purchase intents stuck in PENDING longer
// than the configured window. Run it from cron or a scheduler.
func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	repo := purchase.NewRepository(db, ledger.NewRepository(db))
	svc := purchase.NewService(repo, nil, nil, purchase.Config{
		WebhookSecret: cfg.OmiseWebhookSecret,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := svc.ExpireStale(ctx, cfg.IntentExpiryWindow)
	if err != nil {
		log.Fatal().Err(err).Msg("Sweep failed")
	}

	log.Info().
		Int64("expired", n).
		Dur("window", cfg.IntentExpiryWindow).
		Msg("Sweep complete")
}
