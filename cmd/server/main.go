package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"
	"train-allocation-service/internal/adapters/cache"
	"train-allocation-service/internal/adapters/repositories"
	"train-allocation-service/internal/api"
	"train-allocation-service/internal/config"
	"train-allocation-service/internal/platform/db"
	"train-allocation-service/internal/ports"
	"train-allocation-service/internal/services"

	"github.com/redis/go-redis/v9"
)

// main is the application composition root.
// It wires concrete adapters (Postgres or SQLite, Redis) behind ports and starts the HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	conn, dialect, err := openDB(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	// Initialize schema and seed demo data on startup for local runs.
	if err := initAndSeed(conn, dialect, cfg.SeedPath); err != nil {
		log.Fatal(err)
	}

	store := repositories.NewSQLStore(conn, dialect, cfg.OriginCity)

	var reportCache ports.ReportCache
	if client := openRedis(cfg.RedisURL); client != nil {
		defer client.Close()
		reportCache = cache.NewRedisReportCache(client, "train-allocation:")
	}

	sizer := services.NewSizer(store)
	allocator := &services.Allocator{
		Orders:      store,
		Allocations: store,
		Ledger:      store,
		Tx:          store,
		Sizer:       sizer,
		Selector:    services.NewTripSelector(store),
		Window:      services.WindowPolicy{LeadTime: cfg.LeadTime, DeliveryBuffer: cfg.DeliveryBuffer},
	}
	reporter := services.NewReporter(store, reportCache, cfg.ReportCacheTTL)

	router := api.NewRouter(api.Deps{
		Allocator:       allocator,
		Reporter:        reporter,
		AllocateTimeout: cfg.AllocateTimeout,
		Ping:            conn.PingContext,
	})

	log.Printf("Server listening addr=:%s store=%s origin=%s", cfg.Port, dialect, cfg.OriginCity)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.AllocateTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}

// openDB prefers Postgres when DATABASE_URL is set and falls back to a local SQLite file.
func openDB(cfg config.Config) (*sql.DB, repositories.Dialect, error) {
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(cfg.DatabaseURL)
		return conn, repositories.Postgres, err
	}
	conn, err := db.OpenSQLite(cfg.DBPath)
	return conn, repositories.SQLite, err
}

// openRedis returns nil when no URL is configured or the server is unreachable;
// reports are then served straight from storage.
func openRedis(url string) *redis.Client {
	if url == "" {
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("report cache disabled: parse REDIS_URL: %v", err)
		return nil
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("report cache disabled: ping redis: %v", err)
		_ = client.Close()
		return nil
	}

	return client
}

func initAndSeed(conn *sql.DB, dialect repositories.Dialect, seedPath string) error {
	if err := repositories.InitSchema(conn, dialect); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if err := repositories.SeedFromJSON(conn, dialect, seedPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	return nil
}
