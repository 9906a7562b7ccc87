package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port string

	// Database configuration
	DBType               string // mysql, postgres, sqlite, sqlserver, etc.
	DBHost               string
	DBPort               string
	DBDatabase           string
	DBAppUser            string
	DBAppPassword        string
	DBAppConnectionLimit int

	// Session configuration
	SessionTTLHours int

	// Activity provider configuration
	ProviderBaseURL      string
	ProviderClientID     string
	ProviderClientSecret string
	ProviderRedirectURL  string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first, without overriding the real environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "3000"),
		DBType:               getEnv("DB_TYPE", "mysql"),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "3306"),
		DBDatabase:           getEnv("DB_APP_DATABASE", ""),
		DBAppUser:            getEnv("DB_APP_USER", ""),
		DBAppPassword:        getEnv("DB_APP_PASSWORD", ""),
		DBAppConnectionLimit: getEnvAsInt("DB_APP_CONNECTION_LIMIT", 5),
		SessionTTLHours:      getEnvAsInt("SESSION_TTL_HOURS", 24*7),
		ProviderBaseURL:      getEnv("PROVIDER_BASE_URL", ""),
		ProviderClientID:     getEnv("PROVIDER_CLIENT_ID", ""),
		ProviderClientSecret: getEnv("PROVIDER_CLIENT_SECRET", ""),
		ProviderRedirectURL:  getEnv("PROVIDER_REDIRECT_URL", ""),
	}

	// Validate required fields
	if cfg.DBDatabase == "" && cfg.DBType != "sqlite" {
		return nil, fmt.Errorf("DB_APP_DATABASE is required")
	}
	if cfg.DBAppUser == "" && cfg.DBType != "sqlite" {
		return nil, fmt.Errorf("DB_APP_USER is required")
	}
	if cfg.ProviderBaseURL == "" {
		return nil, fmt.Errorf("PROVIDER_BASE_URL is required")
	}
	if cfg.ProviderClientID == "" {
		return nil, fmt.Errorf("PROVIDER_CLIENT_ID is required")
	}
	if cfg.ProviderClientSecret == "" {
		return nil, fmt.Errorf("PROVIDER_CLIENT_SECRET is required")
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
