package migrate

import (
	"errors"
	"flag"
	"log"

	"dinehub/pkg/config"
	"dinehub/pkg/db"
	"dinehub/pkg/logger"

	gomigrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func Main() {
	dir := flag.String("migrations", "migrations", "Directory holding the SQL migration files")
	direction := flag.String("direction", "up", "Migration direction: up or down")
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file")
	flag.Parse()

	logger := logger.NewLogger("migrate")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Error("startup", "config_load_failed", "Failed to load configuration", err)
		log.Fatal(err)
	}

	m, err := gomigrate.New("file://"+*dir, db.DSN(&cfg.Database))
	if err != nil {
		logger.Error("startup", "migrate_setup_failed", "Failed to open migration source", err)
		log.Fatal(err)
	}
	defer m.Close()

	switch *direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	default:
		log.Fatalf("invalid direction %q: use up or down", *direction)
	}

	if errors.Is(err, gomigrate.ErrNoChange) {
		logger.Info("migrate", "no_change", "Database schema already current")
		return
	}
	if err != nil {
		logger.Error("migrate", "migrate_failed", "Migration failed", err)
		log.Fatal(err)
	}

	logger.Info("migrate", "migrated", "Database schema migrated "+*direction)
}
