package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr       string
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	CORSOrigin string
	// Content store (Sanity-compatible HTTP API)
	ContentURL     string
	ContentDataset string
	ContentAPIVer  string
	ReadToken      string
	WriteToken     string
	// Redis Configuration
	RedisURL string
	// Meilisearch Configuration
	MeiliURL       string
	MeiliMasterKey string
}

func Load() Config {
	return Config{
		Addr:       getenv("API_ADDR", ":8686"),
		JWTSecret:  getenv("PITCHBAY_JWT_SECRET", "pitchbay-dev-secret"),
		AccessTTL:  time.Duration(getenvInt("PITCHBAY_ACCESS_TTL_SECONDS", 900)) * time.Second,
		RefreshTTL: time.Duration(getenvInt("PITCHBAY_REFRESH_TTL_SECONDS", 2592000)) * time.Second,
		CORSOrigin: getenv("PITCHBAY_CORS_ORIGIN", "*"),

		ContentURL:     getenv("CONTENT_API_URL", "http://localhost:3333"),
		ContentDataset: getenv("CONTENT_DATASET", "production"),
		ContentAPIVer:  getenv("CONTENT_API_VERSION", "2021-10-21"),
		ReadToken:      getenv("CONTENT_READ_TOKEN", ""),
		// Empty by default; mutations fail with a configuration error until set
		WriteToken: getenv("CONTENT_WRITE_TOKEN", ""),

		// Redis - optional, refresh tokens fall back to in-memory storage
		RedisURL: getenv("REDIS_URL", ""),

		// Meilisearch - optional, search falls back to content-store matching
		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
