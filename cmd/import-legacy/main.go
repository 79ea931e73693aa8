package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/stemsi/attendance-backend/internal/config"
	"github.com/stemsi/attendance-backend/internal/database"
	"github.com/stemsi/attendance-backend/internal/importer"
	"github.com/stemsi/attendance-backend/internal/logger"
	"github.com/stemsi/attendance-backend/internal/repository"
)

// import-legacy loads the JSON export of the old document store. Imported
// accounts have no password; set one from the user management screen.
func main() {
	var path string
	flag.StringVar(&path, "file", "export.json", "Path to the exported collections")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to open export")
	}
	defer f.Close()

	exp, err := importer.DecodeExport(f)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to decode export")
	}
	ds, err := importer.Convert(exp, time.Now().UTC())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to convert export")
	}
	log.Info().
		Int("users", len(ds.Users)).
		Int("classes", len(ds.Classes)).
		Int("attendance", len(ds.Attendance)).
		Int("holidays", len(ds.Holidays)).
		Int("archived", len(ds.Archived)).
		Msg("Export converted")

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	stats, err := repository.NewImportRepository(pool).Import(ctx, ds)
	if err != nil {
		log.Fatal().Err(err).Msg("Import failed")
	}
	log.Info().Interface("written", stats).Msg("Import committed")

	n, err := repository.NewSummaryRepository(pool).RebuildAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Summary rebuild failed")
	}
	log.Info().Int("summaries", n).Msg("Summaries rebuilt")
}
