package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime settings for the allocation service.
type Config struct {
	Port            string
	DatabaseURL     string
	DBPath          string
	SeedPath        string
	RedisURL        string
	OriginCity      string
	LeadTime        time.Duration
	DeliveryBuffer  time.Duration
	ReportCacheTTL  time.Duration
	AllocateTimeout time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg := Config{
		Port:        Get("PORT", "8080"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBPath:      Get("DB_PATH", "data/app.db"),
		SeedPath:    Get("SEED_PATH", "data/seeds/seed.json"),
		RedisURL:    strings.TrimSpace(os.Getenv("REDIS_URL")),
		OriginCity:  Get("ORIGIN_CITY", "Kandy"),
	}

	var err error
	if cfg.LeadTime, err = GetDuration("LEAD_TIME", 7*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.DeliveryBuffer, err = GetDuration("DELIVERY_BUFFER", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.ReportCacheTTL, err = GetDuration("REPORT_CACHE_TTL", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.AllocateTimeout, err = GetDuration("ALLOCATE_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}

	if cfg.LeadTime < cfg.DeliveryBuffer {
		return Config{}, fmt.Errorf("config: LEAD_TIME (%s) must not be shorter than DELIVERY_BUFFER (%s)", cfg.LeadTime, cfg.DeliveryBuffer)
	}

	return cfg, nil
}

// Get returns the environment value for key, or fallback when unset or blank.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// GetDuration parses a Go duration string (e.g. "168h") from the environment.
func GetDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: parse %s=%q: %w", key, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: %s must not be negative, got %s", key, d)
	}

	return d, nil
}
