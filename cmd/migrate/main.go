package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/punchamoorthee/idempay/internal/config"
	"github.com/punchamoorthee/idempay/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log.Println("--- Applying Migrations ---")
	if err := store.RunMigrations(cfg.DBSource, cfg.MigrationsPath); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
}
