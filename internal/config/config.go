package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	ServerPort       string
	DirectoryBackend string
	DatabaseURL      string
	RedisURL         string
	JWTSecret        string
	JWTExpiry        time.Duration
	AllowedOrigins   []string
	LogLevel         string
	LogFormat        string
	WebSocket        WebSocketConfig
}

// WebSocketConfig tunes each realtime connection.
type WebSocketConfig struct {
	SendBuffer     int
	MaxMessageSize int64
	RateLimit      float64
	RateBurst      int
}

func LoadConfig() (*Config, error) {
	expiry, err := time.ParseDuration(getEnv("JWT_EXPIRY", "168h"))
	if err != nil {
		return nil, errors.New("invalid JWT_EXPIRY format")
	}

	sendBuffer, err := getEnvInt("WS_SEND_BUFFER", 256)
	if err != nil {
		return nil, err
	}
	maxSize, err := getEnvInt("WS_MAX_MESSAGE_SIZE", 64*1024)
	if err != nil {
		return nil, err
	}
	burst, err := getEnvInt("WS_RATE_BURST", 20)
	if err != nil {
		return nil, err
	}
	rate, err := strconv.ParseFloat(getEnv("WS_RATE_LIMIT", "10"), 64)
	if err != nil || rate <= 0 {
		return nil, errors.New("invalid WS_RATE_LIMIT")
	}

	cfg := &Config{
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		DirectoryBackend: getEnv("DIRECTORY_BACKEND", BackendPostgres),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTExpiry:        expiry,
		AllowedOrigins:   splitList(getEnv("ALLOWED_ORIGINS", "*")),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "console"),
		WebSocket: WebSocketConfig{
			SendBuffer:     sendBuffer,
			MaxMessageSize: int64(maxSize),
			RateLimit:      rate,
			RateBurst:      burst,
		},
	}

	// Validate required fields
	switch cfg.DirectoryBackend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required")
		}
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required")
		}
	case BackendMemory:
	default:
		return nil, fmt.Errorf("unknown DIRECTORY_BACKEND %q", cfg.DirectoryBackend)
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return parsed, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
