package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all environment variables for the feed-import-service.
type Config struct {
	Port string // Service port (default: 8090)

	MongoURL string
	MongoDB  string

	RedisURL string

	OracleURL       string // OpenAI-compatible chat completions base URL
	OracleAPIKey    string
	OracleModel     string
	OracleTimeout   time.Duration
	OracleCacheSize int

	CatalogURL string // catalog HTTP API products are imported into

	ChunkSize      int
	StrictMode     bool   // strict attribute collision handling
	FeedStorageDir string // local fallback when S3 is not configured
}

// LoadConfig loads environment variables into Config struct and validates them.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:           os.Getenv("PORT"),
		MongoURL:       os.Getenv("MONGO_URL"),
		MongoDB:        os.Getenv("MONGO_DB"),
		RedisURL:       os.Getenv("REDIS_URL"),
		OracleURL:      os.Getenv("ORACLE_URL"),
		OracleAPIKey:   os.Getenv("ORACLE_API_KEY"),
		OracleModel:    os.Getenv("ORACLE_MODEL"),
		CatalogURL:     os.Getenv("CATALOG_URL"),
		FeedStorageDir: os.Getenv("FEED_STORAGE_DIR"),
	}

	if cfg.Port == "" {
		cfg.Port = "8090"
	}
	if cfg.MongoURL == "" {
		cfg.MongoURL = "mongodb://mongodb:27017"
	}
	if cfg.MongoDB == "" {
		cfg.MongoDB = "feed_imports"
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = "redis://redis:6379"
	}
	if cfg.OracleModel == "" {
		cfg.OracleModel = "gpt-4o-mini"
	}

	cfg.OracleTimeout = envDuration("ORACLE_TIMEOUT", 60*time.Second)
	cfg.OracleCacheSize = envInt("ORACLE_CACHE_SIZE", 64)
	cfg.ChunkSize = envInt("CHUNK_SIZE", 10)
	cfg.StrictMode = os.Getenv("STRICT_ATTRIBUTES") == "true"

	if cfg.CatalogURL == "" {
		return nil, fmt.Errorf("CATALOG_URL is required")
	}
	if cfg.OracleURL == "" {
		return nil, fmt.Errorf("ORACLE_URL is required")
	}

	return cfg, nil
}

func envInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
