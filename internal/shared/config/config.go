package config

import (
	"fmt"
	"os"
	"strings"
)

// Config holds application configuration.
type Config struct {
	NotionAPIKey     string
	NotionDatabaseID string
	OpenAIAPIKey     string
	OpenAIModel      string
	LogLevel         string
	DatabaseURL      string
	Port             string
	AppName          string
	AppVersion       string
	Env              string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	return Config{
		NotionAPIKey:     os.Getenv("NOTION_API_KEY"),
		NotionDatabaseID: os.Getenv("NOTION_DATABASE_ID"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		Port:             getEnv("PORT", "8080"),
		AppName:          getEnv("APP_NAME", "mealsnap"),
		AppVersion:       getEnv("APP_VERSION", "dev"),
		Env:              normalizeEnv(getEnv("ENV", "dev")),
	}
}

// ValidateRequired reports every missing required variable in one error so the
// operator can fix them all at once.
func (c Config) ValidateRequired() error {
	var missing []string
	if strings.TrimSpace(c.NotionAPIKey) == "" {
		missing = append(missing, "NOTION_API_KEY")
	}
	if strings.TrimSpace(c.NotionDatabaseID) == "" {
		missing = append(missing, "NOTION_DATABASE_ID")
	}
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}
