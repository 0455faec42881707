package main

import (
	"database/sql"
	"flag"
	"log"
	"train-allocation-service/internal/adapters/repositories"
	"train-allocation-service/internal/config"
	"train-allocation-service/internal/platform/db"
)

// dbtool initializes the schema and loads seed data without starting the server.
func main() {
	schemaOnly := flag.Bool("schema-only", false, "create tables without loading seed data")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	var (
		conn    *sql.DB
		dialect repositories.Dialect
	)
	if cfg.DatabaseURL != "" {
		conn, err = db.Open(cfg.DatabaseURL)
		dialect = repositories.Postgres
	} else {
		conn, err = db.OpenSQLite(cfg.DBPath)
		dialect = repositories.SQLite
	}
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	log.Printf("Initializing database schema... store=%s", dialect)
	if err := repositories.InitSchema(conn, dialect); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	if *schemaOnly {
		return
	}

	log.Printf("Seeding database... path=%s", cfg.SeedPath)
	if err := repositories.SeedFromJSON(conn, dialect, cfg.SeedPath); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("Seeding complete.")
}
