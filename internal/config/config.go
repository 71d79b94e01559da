package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Pipeline configuration
	DBPath         string
	TargetLanguage string // ISO 639-1 code, e.g. "en"
	RecordBudget   int    // global cap on records stored per run
	Schedule       string // "daily", "weekly" or "off"
	TimeZone       string

	// Outbound HTTP policy
	RequestTimeoutSeconds int
	RetryCount            int
	RetryWaitSeconds      int

	// Image matcher configuration
	HashThreshold       int // max Hamming distance accepted as a match
	ImageTimeoutSeconds int
	MatchWorkers        int

	// API keys and credentials
	RapidAPIKey         string
	GitHubToken         string
	TwitterBearerToken  string
	MastodonAccessToken string
	MastodonBaseURL     string
	RedditClientID      string
	RedditClientSecret  string

	// Azure Blob batch archive (optional)
	StorageAccount   string
	StorageContainer string

	// Notification configuration (optional)
	WebhookURL        string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// Per-platform collection queries, e.g. "twitter:AI,reddit:technology"
	Queries map[string]string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		DBPath:         getEnv("DB_PATH", "data/socialscope.db"),
		TargetLanguage: strings.ToLower(getEnv("TARGET_LANGUAGE", "en")),
		RecordBudget:   getIntEnv("RECORD_BUDGET", 100),
		Schedule:       getEnv("SCHEDULE", "daily"),
		TimeZone:       getEnv("TIMEZONE", "UTC"),

		RequestTimeoutSeconds: getIntEnv("REQUEST_TIMEOUT_SECONDS", 10),
		RetryCount:            getIntEnv("RETRY_COUNT", 3),
		RetryWaitSeconds:      getIntEnv("RETRY_WAIT_SECONDS", 1),

		HashThreshold:       getIntEnv("HASH_THRESHOLD", 10),
		ImageTimeoutSeconds: getIntEnv("IMAGE_TIMEOUT_SECONDS", 8),
		MatchWorkers:        getIntEnv("MATCH_WORKERS", 4),

		RapidAPIKey:         getEnv("RAPIDAPI_KEY", ""),
		GitHubToken:         getEnv("GITHUB_TOKEN", ""),
		TwitterBearerToken:  getEnv("TWITTER_BEARER_TOKEN", ""),
		MastodonAccessToken: getEnv("MASTODON_ACCESS_TOKEN", ""),
		MastodonBaseURL:     getEnv("MASTODON_BASE_URL", "https://mastodon.social"),
		RedditClientID:      getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret:  getEnv("REDDIT_CLIENT_SECRET", ""),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "batches"),

		WebhookURL:        getEnv("WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		Queries: getMapEnv("QUERIES", map[string]string{
			"twitter":   "AI",
			"reddit":    "technology",
			"facebook":  "cnn",
			"instagram": "gaming",
			"tiktok":    "cybersecurity",
			"mastodon":  "ai",
			"github":    "leak",
			"snapchat":  "mrbeast",
		}),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Schedule {
	case "daily", "weekly", "off":
	default:
		return fmt.Errorf("SCHEDULE must be 'daily', 'weekly' or 'off'")
	}

	if c.RecordBudget <= 0 {
		return fmt.Errorf("RECORD_BUDGET must be positive")
	}

	if c.HashThreshold < 0 {
		return fmt.Errorf("HASH_THRESHOLD must not be negative")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getMapEnv parses "key:value,key:value" pairs.
func getMapEnv(key string, defaultValue map[string]string) map[string]string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed := make(map[string]string)
	for _, pair := range strings.Split(value, ",") {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			continue
		}
		parsed[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	if len(parsed) == 0 {
		return defaultValue
	}
	return parsed
}
