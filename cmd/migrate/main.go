package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"

	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/config"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/database"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/env"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/logging"
)

func main() {
	env.SetupEnvFile()
	logging.Setup(env.GetEnv("LOG_LEVEL", "info"), true)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	dbURL, err := database.MigrateURL(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot build migration URL")
	}
	log.Info().Str("driver", cfg.Database.Driver).Str("host", cfg.Database.Host).Str("db", cfg.Database.Name).Msg("connecting to database")

	source := env.GetEnv("MIGRATIONS_PATH", "file://migrations/"+database.MigrationsDir(cfg.Database))
	m, err := migrate.New(source, dbURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize migrations")
	}

	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Error().AnErr("source", sourceErr).AnErr("db", dbErr).Msg("failed to close migration resources")
		}
	}()

	switch command {
	case "up":
		// run all pending migrations
		if err := m.Up(); errors.Is(err, migrate.ErrNoChange) {
			log.Info().Msg("no change: database is up to date")
		} else if err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		} else {
			log.Info().Msg("migrations applied")
		}

	case "down":
		// roll back the last migration
		if err := m.Steps(-1); err != nil {
			log.Fatal().Err(err).Msg("rollback failed")
		}
		log.Info().Msg("last migration rolled back")

	case "goto":
		if len(os.Args) < 3 {
			log.Fatal().Msg("goto needs a version number")
		}
		version, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid version number")
		}

		if err := m.Migrate(uint(version)); errors.Is(err, migrate.ErrNoChange) {
			log.Info().Uint64("version", version).Msg("no change: database already at version")
		} else if err != nil {
			log.Fatal().Err(err).Uint64("version", version).Msg("migration failed")
		} else {
			log.Info().Uint64("version", version).Msg("migrated")
		}

	case "status":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Info().Msg("no migrations applied yet")
		} else if err != nil {
			log.Fatal().Err(err).Msg("cannot read migration version")
		} else {
			log.Info().Uint("version", version).Bool("dirty", dirty).Msg("current migration version")
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: go run ./cmd/migrate [command]")
	fmt.Println("Commands:")
	fmt.Println("  up     - apply all pending migrations")
	fmt.Println("  down   - roll back the last migration")
	fmt.Println("  goto N - migrate to version N")
	fmt.Println("  status - show the current migration version")
}
