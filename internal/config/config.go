package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Service auth
	ServiceTokenSecret string

	// Gemini AI
	GeminiAPIKey         string
	GeminiConcurrentReqs int

	// Hosted playback platform (optional-caption embeds)
	HostedCaptionsBaseURL string

	// Storage for uploaded media files
	StoragePath string

	// Pipeline
	WorkerCount        int
	CreatorConcurrency int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                  getEnvOrDefault("PORT", "8080"),
		Env:                   getEnvOrDefault("ENV", "development"),
		DatabaseURL:           mustGetEnv("DATABASE_URL"),
		RedisURL:              mustGetEnv("REDIS_URL"),
		ServiceTokenSecret:    mustGetEnv("SERVICE_TOKEN_SECRET"),
		GeminiAPIKey:          mustGetEnv("GEMINI_API_KEY"),
		GeminiConcurrentReqs:  getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		HostedCaptionsBaseURL: getEnvOrDefault("HOSTED_CAPTIONS_BASE_URL", ""),
		StoragePath:           getEnvOrDefault("STORAGE_PATH", "./uploads"),
		WorkerCount:           getEnvAsIntOrDefault("WORKER_COUNT", 4),
		CreatorConcurrency:    getEnvAsIntOrDefault("CREATOR_CONCURRENCY_CAP", 20),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
