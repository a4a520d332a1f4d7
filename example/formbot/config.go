package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/tbxark/tgform/lang"
)

type Config struct {
	BotToken        string
	Debug           bool
	SentryDSN       string
	RedisURL        string
	MongoDBURI      string
	MongoDBDatabase string
	MetricsAddr     string
	DefaultLanguage lang.Language
	FormTTL         time.Duration
}

// loadConfig reads the environment, loading .env first when present.
func loadConfig() (*Config, error) {
	_ = godotenv.Load()

	debug, _ := strconv.ParseBool(getEnv("DEBUG", "false"))
	ttl, err := time.ParseDuration(getEnv("FORM_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid FORM_TTL: %w", err)
	}
	cfg := &Config{
		BotToken:        getEnv("TELEGRAM_BOT_TOKEN", ""),
		Debug:           debug,
		SentryDSN:       getEnv("SENTRY_DSN", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		MongoDBURI:      getEnv("MONGODB_URI", ""),
		MongoDBDatabase: getEnv("MONGODB_DATABASE", "formbot"),
		MetricsAddr:     getEnv("METRICS_ADDR", ""),
		DefaultLanguage: lang.Language(getEnv("DEFAULT_LANGUAGE", "en")),
		FormTTL:         ttl,
	}
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.RedisURL != "" && cfg.MongoDBURI != "" {
		return nil, fmt.Errorf("set only one of REDIS_URL and MONGODB_URI")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
