package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
)

// Config holds the application configuration
type Config struct {
	Environment string
	LogLevel    string
	LogFormat   string
	Port        string

	DataPath       string
	EntityColumn   string
	LexiconPath    string
	MaxPeriod      int
	FuzzyThreshold int

	ForestTrees int
	RandomSeed  int64

	StorageDir     string
	HistoryEnabled bool
	ReloadSchedule string

	FallbackEnabled bool
	GeminiAPIKey    string
	GeminiModel     string
}

// LoadConfig loads configuration from environment variables and validates it
func LoadConfig() (*Config, error) {
	config := FromEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// FromEnv reads configuration from environment variables without validating
// it, so callers can apply overrides such as command-line flags first
func FromEnv() *Config {
	environment := getEnv("ENVIRONMENT", "development")
	return &Config{
		Environment:     environment,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
		Port:            getEnv("PORT", "8080"),
		DataPath:        getEnv("CSV_PATH", "Business Heads.csv"),
		EntityColumn:    getEnv("TOPIC_COLUMN", "Business Head"),
		LexiconPath:     getEnv("LEXICON_PATH", ""),
		MaxPeriod:       getEnvAsInt("MAX_QUARTER", 4),
		FuzzyThreshold:  getEnvAsInt("FUZZY_THRESHOLD", 60),
		ForestTrees:     getEnvAsInt("FOREST_TREES", 100),
		RandomSeed:      int64(getEnvAsInt("RANDOM_SEED", 42)),
		StorageDir:      getEnv("STORAGE_DIR", environment+"-data"),
		HistoryEnabled:  getEnvAsBool("HISTORY_ENABLED", true),
		ReloadSchedule:  getEnv("RELOAD_SCHEDULE", ""),
		FallbackEnabled: getEnvAsBool("QA_FALLBACK", false),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
	}
}

// Validate checks field ranges and cross-field requirements
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataPath) == "" {
		return fmt.Errorf("CSV_PATH is required")
	}
	if strings.TrimSpace(c.EntityColumn) == "" {
		return fmt.Errorf("TOPIC_COLUMN is required")
	}
	if c.MaxPeriod < 1 {
		return fmt.Errorf("MAX_QUARTER must be at least 1, got %d", c.MaxPeriod)
	}
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 100 {
		return fmt.Errorf("FUZZY_THRESHOLD must be between 0 and 100, got %d", c.FuzzyThreshold)
	}
	if c.ForestTrees < 1 {
		return fmt.Errorf("FOREST_TREES must be at least 1, got %d", c.ForestTrees)
	}
	if c.FallbackEnabled && c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required when QA_FALLBACK is enabled")
	}
	if c.ReloadSchedule != "" {
		if _, err := cron.ParseStandard(c.ReloadSchedule); err != nil {
			return fmt.Errorf("invalid RELOAD_SCHEDULE %q: %w", c.ReloadSchedule, err)
		}
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
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

// getEnvAsBool retrieves an environment variable as a bool or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
