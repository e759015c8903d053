package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Observability  ObservabilityConfig
	Upload         UploadConfig
	Categorization CategorizationConfig
	Backlog        BacklogConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	AllowedOrigins     []string
	RateLimitPerSecond int
	RateLimitBurst     int
	ShutdownTimeout    time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
}

type ObservabilityConfig struct {
	MetricsEnabled bool
}

type UploadConfig struct {
	Dir      string
	MaxBytes int64
}

type CategorizationConfig struct {
	FuzzyThreshold int
}

// BacklogConfig drives the uncategorized backlog sweep. An empty Schedule
// disables it.
type BacklogConfig struct {
	Schedule  string
	BatchSize int
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; real env vars win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins:     getEnvAsList("SERVER_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 100),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 200),
			ShutdownTimeout:    getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "family_budget"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("POSTGRES_MAX_CONNS", 10),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
		Upload: UploadConfig{
			Dir:      getEnv("UPLOAD_DIR", "./data/uploads"),
			MaxBytes: int64(getEnvAsInt("UPLOAD_MAX_BYTES", 10<<20)),
		},
		Categorization: CategorizationConfig{
			FuzzyThreshold: getEnvAsInt("CATEGORIZATION_FUZZY_THRESHOLD", 80),
		},
		Backlog: BacklogConfig{
			Schedule:  getEnvAllowEmpty("BACKLOG_SWEEP_SCHEDULE", "0 3 * * *"),
			BatchSize: getEnvAsInt("BACKLOG_SWEEP_BATCH_SIZE", 500),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if t := c.Categorization.FuzzyThreshold; t < 1 || t > 100 {
		return fmt.Errorf("CATEGORIZATION_FUZZY_THRESHOLD must be between 1 and 100, got %d", t)
	}
	if c.Upload.MaxBytes <= 0 {
		return errors.New("UPLOAD_MAX_BYTES must be positive")
	}
	if c.Backlog.BatchSize <= 0 {
		return errors.New("BACKLOG_SWEEP_BATCH_SIZE must be positive")
	}
	return nil
}

// Addr returns the listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty treats a set but empty variable as an explicit value.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
