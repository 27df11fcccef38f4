// Command sweep runs the daily reset once and exits. Schedule it with the
// host's cron or an orchestrator CronJob at the configured reset time.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/anonto42/songoftheday/backend/internal/calendar"
	"github.com/anonto42/songoftheday/backend/internal/jobs"
	"github.com/anonto42/songoftheday/backend/internal/models"
	"github.com/anonto42/songoftheday/backend/internal/repositories"
	"github.com/anonto42/songoftheday/backend/pkg/config"
	"github.com/anonto42/songoftheday/backend/pkg/logger"
	"github.com/rs/zerolog/log"
)

func main() {
	timeout := flag.Duration("timeout", time.Minute, "maximum duration of the sweep")
	migrate := flag.Bool("migrate", false, "apply schema migrations before sweeping")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	db, err := config.OpenSQL(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}

	code := 0
	if *migrate {
		if err := models.AutoMigrate(db); err != nil {
			log.Error().Err(err).Msg("auto migrate failed")
			code = 1
		}
	}

	if code == 0 {
		sweep := jobs.NewResetSweep(repositories.NewPostgresDailySongRepository(db), calendar.New(cfg.Location()), *timeout)
		if _, err := sweep.Run(context.Background()); err != nil {
			code = 1
		}
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	os.Exit(code)
}
