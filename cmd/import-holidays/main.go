package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/stemsi/attendance-backend/internal/cache"
	"github.com/stemsi/attendance-backend/internal/config"
	"github.com/stemsi/attendance-backend/internal/database"
	"github.com/stemsi/attendance-backend/internal/importer"
	"github.com/stemsi/attendance-backend/internal/logger"
	"github.com/stemsi/attendance-backend/internal/repository"
	"github.com/stemsi/attendance-backend/internal/service"
)

func main() {
	var (
		path   string
		dryRun bool
	)
	flag.StringVar(&path, "file", "holidays.yaml", "Path to the YAML holiday calendar")
	flag.BoolVar(&dryRun, "dry-run", false, "Validate the file without writing")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to open holiday file")
	}
	defer f.Close()

	holidays, err := importer.DecodeHolidays(f)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Invalid holiday file")
	}
	if dryRun {
		for _, h := range holidays {
			fmt.Printf("%s  %s\n", h.Date, h.Name)
		}
		fmt.Printf("%d holidays OK\n", len(holidays))
		return
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// Without Redis the import still runs; dashboards then refresh on their TTL.
	var dashboards *service.DashboardCache
	if rdb, err := database.NewRedisClient(ctx, cfg, log); err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, cached dashboards are left to expire")
	} else {
		defer rdb.Close()
		dashboards = service.NewDashboardCache(cache.New(rdb), log)
	}

	holidayService := service.NewHolidayService(repository.NewHolidayRepository(pool), dashboards)
	n, err := holidayService.Import(ctx, holidays)
	if err != nil {
		log.Fatal().Err(err).Msg("Holiday import failed")
	}
	log.Info().Int("holidays", n).Str("file", path).Msg("Holidays imported")
}
