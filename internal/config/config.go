package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	DataDir   string
	OutputDir string

	// Matching thresholds. Pairwise description similarity required to
	// pull a record into a fuzzy group, and the higher bar at which a
	// seed description is treated as already processed.
	MatchDescThreshold  float64
	MatchDedupThreshold float64
	MatchFuzzyEnabled   bool
	MatchMinSources     int
	MatchWorkers        int

	FetchRateLimitRPS int
	FetchTimeoutMs    int
	FetchMaxRetries   int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "pricing.db")),
		DataDir:   getEnv("DATA_DIR", filepath.Join(cwd, "data")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		MatchDescThreshold:  getEnvFloat("MATCH_DESC_THRESHOLD", 0.8),
		MatchDedupThreshold: getEnvFloat("MATCH_DEDUP_THRESHOLD", 0.9),
		MatchFuzzyEnabled:   getEnvBool("MATCH_FUZZY_ENABLED", true),
		MatchMinSources:     getEnvInt("MATCH_MIN_SOURCES", 2),
		MatchWorkers:        getEnvInt("MATCH_WORKERS", 4),

		FetchRateLimitRPS: getEnvInt("FETCH_RATE_LIMIT_RPS", 2),
		FetchTimeoutMs:    getEnvInt("FETCH_TIMEOUT_MS", 60000),
		FetchMaxRetries:   getEnvInt("FETCH_MAX_RETRIES", 5),
	}

	if cfg.MatchDescThreshold <= 0 || cfg.MatchDescThreshold > 1 {
		return Config{}, fmt.Errorf("MATCH_DESC_THRESHOLD out of range: %v", cfg.MatchDescThreshold)
	}
	if cfg.MatchDedupThreshold < cfg.MatchDescThreshold || cfg.MatchDedupThreshold > 1 {
		return Config{}, fmt.Errorf("MATCH_DEDUP_THRESHOLD out of range: %v", cfg.MatchDedupThreshold)
	}
	if cfg.MatchMinSources < 2 {
		cfg.MatchMinSources = 2
	}
	if cfg.MatchWorkers < 1 {
		cfg.MatchWorkers = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
