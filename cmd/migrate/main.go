package main

import (
	"flag"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/inkwell/inkwell-api/internal/config"
	"github.com/inkwell/inkwell-api/internal/pkg/database"
	"github.com/inkwell/inkwell-api/internal/pkg/logger"
)

// Applies the .sql files under -dir in lexical order, once each,
// tracked in schema_migrations.
func main() {
	dir := flag.String("dir", "migrations", "directory with .sql migration files")
	flag.Parse()

	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		log.Fatal().Err(err).Msg("Failed to create schema_migrations")
	}

	names, err := migrationFiles(*dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", *dir).Msg("Failed to read migrations")
	}

	applied := 0
	for _, name := range names {
		ok, err := apply(db, *dir, name)
		if err != nil {
			log.Fatal().Err(err).Str("migration", name).Msg("Migration failed")
		}
		if ok {
			log.Info().Str("migration", name).Msg("Applied")
			applied++
		}
	}

	log.Info().Int("applied", applied).Int("total", len(names)).Msg("Migrations up to date")
}

func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func apply(db *sqlx.DB, dir, name string) (bool, error) {
	var exists bool
	if err := db.Get(&exists, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE name = $1)`, name); err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	sqlBytes, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return false, err
	}

	tx, err := db.Beginx()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(sqlBytes)); err != nil {
		return false, err
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
		return false, err
	}
	return true, tx.Commit()
}
