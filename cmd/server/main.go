package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/songoftheday/backend/internal/calendar"
	"github.com/anonto42/songoftheday/backend/internal/handlers"
	"github.com/anonto42/songoftheday/backend/internal/jobs"
	"github.com/anonto42/songoftheday/backend/internal/repositories"
	"github.com/anonto42/songoftheday/backend/internal/router"
	"github.com/anonto42/songoftheday/backend/internal/session"
	"github.com/anonto42/songoftheday/backend/pkg/config"
	"github.com/anonto42/songoftheday/backend/pkg/firebase"
	"github.com/anonto42/songoftheday/backend/pkg/logger"
	"github.com/anonto42/songoftheday/backend/pkg/spotify"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize databases")
	}
	defer db.CloseDB()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Firebase
	var firebaseAuth handlers.IDTokenVerifier
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Firebase")
	}
	if firebaseApp != nil {
		firebaseAuth = firebaseApp.AuthClient
	}

	cal := calendar.New(cfg.Location())
	deps := router.Dependencies{
		SQL:          db.SQL,
		Sessions:     session.NewManager(cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction()),
		Calendar:     cal,
		FirebaseAuth: firebaseAuth,
		AlbumArt: spotify.NewClient(spotify.Config{
			ClientID:     cfg.SpotifyClientID,
			ClientSecret: cfg.SpotifyClientSecret,
			Timeout:      cfg.SpotifyTimeout,
		}),
		UploadDir:      cfg.UploadDir,
		UploadMaxSize:  cfg.UploadMaxSize,
		LoginRateLimit: cfg.LoginRateLimit,
		SecureCookies:  cfg.IsProduction(),
	}
	if db.Mongo != nil {
		deps.Mongo = db.Mongo.Database(cfg.MongoDatabase)
	}

	e, err := router.New(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up server")
	}

	var scheduler *jobs.Scheduler
	if cfg.SchedulerEnabled {
		sweep := jobs.NewResetSweep(repositories.NewPostgresDailySongRepository(db.SQL), cal, time.Minute)
		scheduler, err = jobs.NewScheduler(cfg.ResetSchedule, sweep, cal)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to set up reset scheduler")
		}
		scheduler.Start()
	}

	var metricsServer *http.Server
	if cfg.MetricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: ":" + cfg.MetricsPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	// Start server
	go func() {
		log.Info().Str("port", cfg.Port).Str("database", cfg.DatabaseDriver).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
