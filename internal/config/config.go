package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Port     string
	MongoURI string

	// OpenAI-compatible AI provider
	AIBaseURL      string
	AIAPIKey       string
	ChatModel      string
	EmbeddingModel string

	// Tool provider credentials
	GoogleMapsAPIKey string

	// Auth
	JWTSecret string

	// Feed expiry sweep interval in minutes
	SweepIntervalMinutes int
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "3002"),
		MongoURI: getEnv("MONGODB_URI", "mongodb://localhost:27017/daybrief"),

		AIBaseURL:      getEnv("AI_BASE_URL", "https://api.openai.com/v1"),
		AIAPIKey:       getEnv("AI_API_KEY", ""),
		ChatModel:      getEnv("CHAT_MODEL", "gpt-4o-mini"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),

		GoogleMapsAPIKey: getEnv("GOOGLE_MAPS_API_KEY", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),

		SweepIntervalMinutes: getIntEnv("FEED_SWEEP_INTERVAL_MINUTES", 15),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
