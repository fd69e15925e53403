// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath string
	LogLevel     string

	// GeminiAPIKey enables AI extraction and enrichment when set.
	GeminiAPIKey string
	// GitHubToken raises the rate limit for the code-host fetcher when set.
	GitHubToken string
	// PushgatewayURL enables a metrics push at the end of each batch when set.
	PushgatewayURL string

	DiscoveryMaxItems      int
	DiscoveryPerSourceCap  int
	DiscoveryMinConfidence float64

	CrawlBatchSize   int
	CrawlConcurrency int
	PageLoadTimeout  time.Duration

	LinkCheckLimit   int
	LinkCheckTimeout time.Duration

	TelegramBotToken string
	TelegramChatID   int64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath: getEnv("DATABASE_PATH", "./data/catalog.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GitHubToken:    os.Getenv("GITHUB_TOKEN"),
		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),

		DiscoveryMaxItems:     getEnvInt("DISCOVERY_MAX_ITEMS", 3),
		DiscoveryPerSourceCap: getEnvInt("DISCOVERY_PER_SOURCE_CAP", 10),

		CrawlBatchSize:   getEnvInt("CRAWL_BATCH_SIZE", 10),
		CrawlConcurrency: getEnvInt("CRAWL_CONCURRENCY", 2),
		PageLoadTimeout:  getEnvDuration("PAGE_LOAD_TIMEOUT", 30*time.Second),

		LinkCheckLimit:   getEnvInt("LINK_CHECK_LIMIT", 0),
		LinkCheckTimeout: getEnvDuration("LINK_CHECK_TIMEOUT", 20*time.Second),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	conf, err := getEnvFloat("DISCOVERY_MIN_CONFIDENCE", 0.70)
	if err != nil {
		return nil, err
	}
	if conf < 0 || conf > 1 {
		return nil, fmt.Errorf("DISCOVERY_MIN_CONFIDENCE must be in [0,1], got %v", conf)
	}
	cfg.DiscoveryMinConfidence = conf

	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", raw, err)
		}
		cfg.TelegramChatID = chatID
	}

	if cfg.DiscoveryMaxItems < 1 {
		return nil, fmt.Errorf("DISCOVERY_MAX_ITEMS must be positive, got %d", cfg.DiscoveryMaxItems)
	}
	if cfg.CrawlConcurrency < 1 {
		return nil, fmt.Errorf("CRAWL_CONCURRENCY must be positive, got %d", cfg.CrawlConcurrency)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
