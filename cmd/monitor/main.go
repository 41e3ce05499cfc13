// Command monitor serves stored experiment results over HTTP.
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gopuf/adapters/postgres"
	"gopuf/internal/config"
	"gopuf/ui"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if !cfg.Database.Enabled {
		log.Fatal("DATABASE_URL is required for the monitor")
	}

	db, err := postgres.Connect(cfg.Database.URL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	logger := log.New(os.Stderr, "", log.LstdFlags)
	server := ui.NewServer(postgres.NewResultStore(db), logger)
	if err := server.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
