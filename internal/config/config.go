package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Quote cache
	CacheBackend       string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	QuoteTTL           time.Duration
	CacheMaxEntries    int
	CacheSweepInterval time.Duration

	// Upstream provider; an empty URL selects the embedded fixture fares
	ProviderURL     string
	ProviderAPIKey  string
	ProviderTimeout time.Duration
	ProviderRPS     float64
	ProviderBurst   int

	// Rate budget
	RateBudget   int
	BudgetPeriod time.Duration

	// Search
	SearchTimeout       time.Duration
	StrategyConcurrency int
	MaxResults          int

	// Booking
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
}

const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Load reads configuration from the environment, after an optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		CacheBackend:       strings.ToLower(getEnv("CACHE_BACKEND", CacheMemory)),
		RedisHost:          getEnv("REDIS_HOST", "localhost"),
		RedisPort:          getEnv("REDIS_PORT", "6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		QuoteTTL:           getEnvDuration("QUOTE_TTL", 30*time.Minute),
		CacheMaxEntries:    getEnvInt("CACHE_MAX_ENTRIES", 10000),
		CacheSweepInterval: getEnvDuration("CACHE_SWEEP_INTERVAL", 5*time.Minute),

		ProviderURL:     os.Getenv("PROVIDER_URL"),
		ProviderAPIKey:  os.Getenv("PROVIDER_API_KEY"),
		ProviderTimeout: getEnvDuration("PROVIDER_TIMEOUT", 10*time.Second),
		ProviderRPS:     getEnvFloat("PROVIDER_RPS", 10),
		ProviderBurst:   getEnvInt("PROVIDER_BURST", 20),

		RateBudget:   getEnvInt("RATE_BUDGET", 1800),
		BudgetPeriod: getEnvDuration("BUDGET_PERIOD", 0),

		SearchTimeout:       getEnvDuration("SEARCH_TIMEOUT", 20*time.Second),
		StrategyConcurrency: getEnvInt("STRATEGY_CONCURRENCY", 4),
		MaxResults:          getEnvInt("MAX_RESULTS", 20),

		SessionTTL:           getEnvDuration("SESSION_TTL", 30*time.Minute),
		SessionSweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", time.Minute),
	}

	switch cfg.CacheBackend {
	case CacheMemory, CacheRedis, CacheNone:
	default:
		log.Printf("WARNING: Unknown CACHE_BACKEND: %s (using memory)", cfg.CacheBackend)
		cfg.CacheBackend = CacheMemory
	}
	if cfg.ProviderURL != "" && cfg.ProviderAPIKey == "" {
		log.Println("WARNING: PROVIDER_API_KEY not set")
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
