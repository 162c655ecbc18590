package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/inkwell/inkwell-api/internal/config"
	"github.com/inkwell/inkwell-api/internal/domain/catalog"
	"github.com/inkwell/inkwell-api/internal/domain/chapter"
	"github.com/inkwell/inkwell-api/internal/domain/ledger"
	"github.com/inkwell/inkwell-api/internal/domain/purchase"
	"github.com/inkwell/inkwell-api/internal/domain/revenue"
	"github.com/inkwell/inkwell-api/internal/domain/unlock"
	"github.com/inkwell/inkwell-api/internal/middleware"
	"github.com/inkwell/inkwell-api/internal/pkg/database"
	"github.com/inkwell/inkwell-api/internal/pkg/jwt"
	"github.com/inkwell/inkwell-api/internal/pkg/logger"
	"github.com/inkwell/inkwell-api/internal/pkg/omise"
	"github.com/inkwell/inkwell-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Inkwell API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	omiseClient := omise.NewClient(omise.Config{
		SecretKey: cfg.OmiseSecretKey,
		BaseURL:   cfg.OmiseBaseURL,
		Timeout:   cfg.OmiseTimeout,
	})

	// ---------- Repositories ----------
	ledgerRepo := ledger.NewRepository(db)
	catalogRepo := catalog.NewRepository(db)
	chapterRepo := chapter.NewRepository(db)
	revenueRepo := revenue.NewRepository(db)
	unlockRepo := unlock.NewRepository(db, ledgerRepo, revenueRepo)
	purchaseRepo := purchase.NewRepository(db, ledgerRepo)

	// ---------- Services ----------
	catalogService := catalog.NewService(catalogRepo)
	ledgerService := ledger.NewService(ledgerRepo)
	revenueService := revenue.NewService(revenueRepo, cfg.MinWithdrawal)
	unlockService := unlock.NewService(unlockRepo, chapterRepo, ledgerRepo, unlock.Config{
		WriterRevenuePercent: cfg.WriterRevenuePercent,
		AuthorFree:           cfg.UnlockAuthorFree,
	})
	purchaseService := purchase.NewService(purchaseRepo, catalogService, omiseClient, purchase.Config{
		WebhookSecret:    cfg.OmiseWebhookSecret,
		DefaultReturnURI: cfg.FrontendURL + "/coins/return",
	})

	// ---------- Handlers ----------
	catalogHandler := catalog.NewHandler(catalogService)
	ledgerHandler := ledger.NewHandler(ledgerService)
	revenueHandler := revenue.NewHandler(revenueService)
	unlockHandler := unlock.NewHandler(unlockService)
	purchaseHandler := purchase.NewHandler(purchaseService)

	authMiddleware := middleware.Auth(jwtService)
	checkoutLimit := middleware.RateLimit(redis, "checkout", cfg.CheckoutRateLimit, time.Minute)
	unlockLimit := middleware.RateLimit(redis, "unlock", cfg.UnlockRateLimit, time.Minute)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/coins", catalogHandler.Routes())
		r.Mount("/wallet", ledgerHandler.Routes(authMiddleware))
		r.Mount("/purchases", purchaseHandler.Routes(authMiddleware, checkoutLimit))
		r.Mount("/unlocks", unlockHandler.Routes(authMiddleware, unlockLimit))
		r.Mount("/writer", revenueHandler.Routes(authMiddleware))
	})

	// Gateway callbacks live outside the authenticated API tree.
	r.Mount("/webhooks", purchaseHandler.WebhookRoutes())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
