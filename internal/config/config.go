package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the application.
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Database configuration; empty DSN selects the in-memory store.
	DatabaseURL string

	// Workspaces swept by the scheduled snapshot and alert runs.
	Workspaces []string

	// Schedule configuration
	SnapshotHourUTC     int
	AlertSweepHours     int
	IngestionEnabled    bool
	IngestionHours      int

	// Azure Blob archive of daily snapshot exports (optional)
	StorageAccount   string
	StorageContainer string

	// Notification configuration (optional)
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// Platform connector credentials
	DefaultWorkspace   string
	GooglePlacesAPIKey string
	GooglePlaceID      string
	YelpAPIKey         string
	YelpBusinessID     string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		Workspaces: getSliceEnv("WORKSPACE_IDS", nil),

		SnapshotHourUTC:  getIntEnv("SNAPSHOT_HOUR_UTC", 6),
		AlertSweepHours:  getIntEnv("ALERT_SWEEP_HOURS", 6),
		IngestionEnabled: getBoolEnv("ENABLE_INGESTION", false),
		IngestionHours:   getIntEnv("INGESTION_HOURS", 12),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "reputation-exports"),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		DefaultWorkspace:   getEnv("DEFAULT_WORKSPACE_ID", ""),
		GooglePlacesAPIKey: getEnv("GOOGLE_PLACES_API_KEY", ""),
		GooglePlaceID:      getEnv("GOOGLE_PLACE_ID", ""),
		YelpAPIKey:         getEnv("YELP_API_KEY", ""),
		YelpBusinessID:     getEnv("YELP_BUSINESS_ID", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.SnapshotHourUTC < 0 || c.SnapshotHourUTC > 23 {
		return fmt.Errorf("SNAPSHOT_HOUR_UTC must be between 0 and 23")
	}

	if c.AlertSweepHours < 1 || c.AlertSweepHours > 24 {
		return fmt.Errorf("ALERT_SWEEP_HOURS must be between 1 and 24")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	if c.IngestionEnabled && c.DefaultWorkspace == "" {
		return fmt.Errorf("DEFAULT_WORKSPACE_ID is required when ENABLE_INGESTION is set")
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

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
