package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	WorkerCount               int
	QueueCapacity             int
	ShutdownGrace             time.Duration
	MaxMessagesPerMinute      int
	MaxConversationsPerMinute int
	AnalyticsBatchSize        int

	CORSAllowedOrigins []string
	ThrottleRate       int
	ThrottleBurst      int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		WorkerCount:               getEnvAsInt("WORKER_COUNT", 5),
		QueueCapacity:             getEnvAsInt("QUEUE_CAPACITY", 1000),
		ShutdownGrace:             getEnvAsDuration("SHUTDOWN_GRACE", 5*time.Second),
		MaxMessagesPerMinute:      getEnvAsInt("MAX_MESSAGES_PER_MINUTE", 100),
		MaxConversationsPerMinute: getEnvAsInt("MAX_CONVERSATIONS_PER_MINUTE", 20),
		AnalyticsBatchSize:        getEnvAsInt("ANALYTICS_BATCH_SIZE", 50),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS"),
		ThrottleRate:       getEnvAsInt("THROTTLE_RATE", 10),
		ThrottleBurst:      getEnvAsInt("THROTTLE_BURST", 20),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsSlice splits a comma-separated environment variable, dropping empty entries
func getEnvAsSlice(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
