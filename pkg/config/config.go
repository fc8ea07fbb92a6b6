package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	Env string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Report API
	API APIConfig

	// Pipeline
	Pipeline PipelineConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host      string
	Port      string
	Password  string
	DB        int
	Enabled   bool
	ReportTTL time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// APIConfig holds the read-only report API settings
type APIConfig struct {
	Host         string
	Port         string
	RateLimit    float64 // requests per second per client
	RateBurst    int
	LookupCache  int // per-product qualification LRU size
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PipelineConfig holds batch run settings
type PipelineConfig struct {
	ForecastConfig string // YAML thresholds / hyperparameters
	DataFile       string // CSV or XLSX input
	Workers        int
	Schedule       string // cron spec (with seconds)
	Persist        bool   // write results to Postgres
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "demandcast"),
			User:            getEnv("DB_USER", "demandcast"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      getEnv("REDIS_PORT", "6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			Enabled:   getEnvAsBool("REDIS_ENABLED", false),
			ReportTTL: getEnvAsDuration("REDIS_REPORT_TTL", "24h"),
		},

		API: APIConfig{
			Host:         getEnv("API_HOST", "0.0.0.0"),
			Port:         getEnv("API_PORT", "8090"),
			RateLimit:    getEnvAsFloat("API_RATE_LIMIT", 20),
			RateBurst:    getEnvAsInt("API_RATE_BURST", 40),
			LookupCache:  getEnvAsInt("API_LOOKUP_CACHE", 4096),
			ReadTimeout:  getEnvAsDuration("API_READ_TIMEOUT", "15s"),
			WriteTimeout: getEnvAsDuration("API_WRITE_TIMEOUT", "15s"),
		},

		Pipeline: PipelineConfig{
			ForecastConfig: getEnv("FORECAST_CONFIG", "config/forecast/default.yaml"),
			DataFile:       getEnv("DATA_FILE", ""),
			Workers:        getEnvAsInt("PIPELINE_WORKERS", 4),
			Schedule:       getEnv("SCHEDULE_CRON", "0 30 2 * * *"),
			Persist:        getEnvAsBool("PIPELINE_PERSIST", false),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	// DATABASE_URL is only required when results are persisted
	if c.Pipeline.Persist && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when PIPELINE_PERSIST is set")
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("PIPELINE_WORKERS must be >= 1, got %d", c.Pipeline.Workers)
	}

	if port, err := strconv.Atoi(c.API.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("API_PORT must be a valid port, got %q", c.API.Port)
	}

	if c.API.RateLimit <= 0 || c.API.RateBurst < 1 {
		return fmt.Errorf("API_RATE_LIMIT and API_RATE_BURST must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"../.env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
