package flareagent

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the process-wide configuration. Three secrets are required;
// everything else has a default.
type Config struct {
	OpenRouterAPIKey    string
	CloudflareAPIToken  string
	CloudflareAccountID string

	Port          string
	DefaultModel  string
	DBType        string // "sqlite" or "postgres"
	DBConnection  string
	RetentionDays int
}

// LoadConfig reads configuration from a .env file when present, otherwise
// from plain environment variables.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		OpenRouterAPIKey:    os.Getenv("OPENROUTER_API_KEY"),
		CloudflareAPIToken:  os.Getenv("CLOUDFLARE_API_TOKEN"),
		CloudflareAccountID: os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
		Port:                getenvDefault("PORT", "8080"),
		DefaultModel:        getenvDefault("FLAREAGENT_MODEL", "openai/gpt-4o"),
		DBType:              getenvDefault("FLAREAGENT_DB_TYPE", "sqlite"),
		DBConnection:        getenvDefault("FLAREAGENT_DB", "flareagent_runs.sqlite"),
		RetentionDays:       30,
	}

	if raw := os.Getenv("FLAREAGENT_RETENTION_DAYS"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid FLAREAGENT_RETENTION_DAYS %q: %w", raw, err)
		}
		cfg.RetentionDays = days
	}

	if cfg.OpenRouterAPIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY is not set")
	}
	if cfg.CloudflareAPIToken == "" {
		return nil, fmt.Errorf("CLOUDFLARE_API_TOKEN is not set")
	}
	if cfg.CloudflareAccountID == "" {
		return nil, fmt.Errorf("CLOUDFLARE_ACCOUNT_ID is not set")
	}

	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
