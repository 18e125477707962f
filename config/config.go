package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
	SSLMode  string
	// ConnectRetries is how many times Connect pings before giving up.
	ConnectRetries int
	RetryDelay     time.Duration
}

// DSN builds the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration
}

type AIConfig struct {
	Provider     string // groq or gemini
	GroqAPIKey   string
	GroqBaseURL  string
	GroqModel    string
	GeminiAPIKey string
	GeminiModel  string
	Timeout      time.Duration
}

type AutoSaveConfig struct {
	Debounce     time.Duration
	SavedDisplay time.Duration
}

// Config is the server configuration, populated from the environment.
// main loads .env first; real environment variables take precedence.
type Config struct {
	Port     string
	LogLevel string
	Database DatabaseConfig
	Auth     AuthConfig
	AI       AIConfig
	AutoSave AutoSaveConfig
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", ""),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			Name:           getEnv("DB_NAME", "clariox"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			ConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 5),
			RetryDelay:     getEnvDuration("DB_RETRY_DELAY_MS", 2*time.Second),
		},
		Auth: AuthConfig{
			Secret:   getEnv("SECRET_KEY", ""),
			TokenTTL: time.Duration(getEnvInt("TOKEN_TTL_MINUTES", 60)) * time.Minute,
		},
		AI: AIConfig{
			Provider:     strings.ToLower(getEnv("AI_PROVIDER", "groq")),
			GroqAPIKey:   getEnv("GROQ_API_KEY", ""),
			GroqBaseURL:  getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			GroqModel:    getEnv("GROQ_MODEL", "llama-3.1-8b-instant"),
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Timeout:      getEnvDuration("AI_TIMEOUT_MS", 30*time.Second),
		},
		AutoSave: AutoSaveConfig{
			Debounce:     getEnvDuration("AUTOSAVE_DEBOUNCE_MS", time.Second),
			SavedDisplay: getEnvDuration("AUTOSAVE_SAVED_DISPLAY_MS", 1500*time.Millisecond),
		},
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return fmt.Errorf("SECRET_KEY must be set")
	}
	if c.AutoSave.Debounce <= 0 {
		return fmt.Errorf("AUTOSAVE_DEBOUNCE_MS must be positive")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err == nil {
			return i
		}
	}
	return def
}

// getEnvDuration reads a millisecond count.
func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		ms, err := strconv.Atoi(strings.TrimSpace(v))
		if err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}
