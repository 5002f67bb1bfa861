package main

import (
	"flag"
	"os"

	"mercado/pkg/config"
	"mercado/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	var (
		dir  = flag.String("dir", "migrations", "migrations directory")
		down = flag.Bool("down", false, "roll back one migration instead of applying all")
	)
	flag.Parse()

	log := logger.New("governance-migrate")
	cfg := config.Load()
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required", nil)
	}

	m, err := migrate.New("file://"+*dir, cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to initialize migrations", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer m.Close()

	if *down {
		err = m.Steps(-1)
	} else {
		err = m.Up()
	}
	if err != nil && err != migrate.ErrNoChange {
		log.Fatal("Migration failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	version, dirty, verr := m.Version()
	if verr != nil && verr != migrate.ErrNilVersion {
		log.Error("Failed to read migration version", map[string]interface{}{
			"error": verr.Error(),
		})
		os.Exit(1)
	}
	log.Info("Migrations complete", map[string]interface{}{
		"version": version,
		"dirty":   dirty,
	})
}
