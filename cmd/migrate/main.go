package main

import (
	"log"
	"log/slog"

	"social-service/internal/config"
	"social-service/internal/database"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	config.NewLogger(cfg.Log)

	slog.Info("Starting database migration...", "driver", cfg.Database.Driver)

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatal("Migration failed:", err)
	}

	slog.Info("Database migration completed successfully!")
}
