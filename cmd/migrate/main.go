package main

import (
	"log"
	"os"

	"taskboard-backend/internal/config"
	"taskboard-backend/internal/db"
)

func main() {
	cfg := config.Load()

	database, err := db.Connect(cfg.ConnString())
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer database.Close()

	migration, err := os.ReadFile("migrations/001_initial_schema.sql")
	if err != nil {
		log.Fatalf("Error reading migration file: %v", err)
	}

	if _, err := database.Exec(string(migration)); err != nil {
		log.Fatalf("Error executing migration: %v", err)
	}

	log.Println("Migration completed successfully")
}
