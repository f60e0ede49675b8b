package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Helpdesk HelpdeskConfig `json:"helpdesk"`
	Sync     SyncConfig     `json:"sync"`
	Redis    RedisConfig    `json:"redis"`
	Logging  LoggingConfig  `json:"logging"`
	Metrics  MetricsConfig  `json:"metrics"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port         string        `json:"port"`
	Host         string        `json:"host"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	Environment  string        `json:"environment"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL            string        `json:"-"`
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"-"`
	DBName         string        `json:"dbname"`
	SSLMode        string        `json:"sslmode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleTime    time.Duration `json:"max_idle_time"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
}

// HelpdeskConfig represents the remote ticketing API configuration
type HelpdeskConfig struct {
	BaseURL        string        `json:"base_url"`
	Email          string        `json:"email"`
	APIToken       string        `json:"-"`
	AgentIDs       []int64       `json:"agent_ids"`
	Timeout        time.Duration `json:"timeout"`
	MaxPages       int           `json:"max_pages"`
	MaxConcurrency int           `json:"max_concurrency"`
}

// SyncConfig represents sync pipeline configuration
type SyncConfig struct {
	BatchSize       int           `json:"batch_size"`
	IncrementalDays int           `json:"incremental_days"`
	ScheduleEnabled bool          `json:"schedule_enabled"`
	Schedule        string        `json:"schedule"`
	LockTTL         time.Duration `json:"lock_ttl"`
	RunTimeout      time.Duration `json:"run_timeout"`
}

// RedisConfig represents Redis configuration used for the sync lock
type RedisConfig struct {
	Enabled bool          `json:"enabled"`
	URL     string        `json:"url"`
	Timeout time.Duration `json:"timeout"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // json, text
}

// MetricsConfig represents Prometheus exposition configuration
type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Path      string `json:"path"`
	Namespace string `json:"namespace"`
}

// Load loads configuration from an optional .env file, environment variables and defaults
func Load() (*Config, error) {
	_ = godotenv.Load()

	agentIDs, err := parseInt64List(os.Getenv("HELPDESK_AGENT_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid HELPDESK_AGENT_IDS: %w", err)
	}

	config := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 0),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			Environment:  getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			URL:            os.Getenv("DATABASE_URL"),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", ""),
			DBName:         getEnv("DB_NAME", "agentpulse"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxConnections: getEnvInt("DB_MAX_CONNECTIONS", 10),
			MaxIdleTime:    getEnvDuration("DB_MAX_IDLE_TIME", 30*time.Minute),
			ConnectTimeout: getEnvDuration("DB_CONNECT_TIMEOUT", 5*time.Second),
		},
		Helpdesk: HelpdeskConfig{
			BaseURL:        strings.TrimRight(getEnv("HELPDESK_BASE_URL", ""), "/"),
			Email:          getEnv("HELPDESK_EMAIL", ""),
			APIToken:       getEnv("HELPDESK_API_TOKEN", ""),
			AgentIDs:       agentIDs,
			Timeout:        getEnvDuration("HELPDESK_TIMEOUT", 10*time.Second),
			MaxPages:       getEnvInt("HELPDESK_MAX_PAGES", 50),
			MaxConcurrency: getEnvInt("HELPDESK_MAX_CONCURRENCY", 4),
		},
		Sync: SyncConfig{
			BatchSize:       getEnvInt("SYNC_BATCH_SIZE", 100),
			IncrementalDays: getEnvInt("SYNC_INCREMENTAL_DAYS", 30),
			ScheduleEnabled: getEnvBool("SYNC_SCHEDULE_ENABLED", false),
			Schedule:        getEnv("SYNC_SCHEDULE", "@every 1h"),
			LockTTL:         getEnvDuration("SYNC_LOCK_TTL", 30*time.Minute),
			RunTimeout:      getEnvDuration("SYNC_RUN_TIMEOUT", 20*time.Minute),
		},
		Redis: RedisConfig{
			Enabled: getEnvBool("REDIS_ENABLED", false),
			URL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
			Timeout: getEnvDuration("REDIS_TIMEOUT", 5*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled:   getEnvBool("METRICS_ENABLED", true),
			Path:      getEnv("METRICS_PATH", "/metrics"),
			Namespace: getEnv("METRICS_NAMESPACE", "agentpulse"),
		},
	}

	return config, nil
}

// Validate validates the configuration needed to run syncs and serve reads
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Database.URL == "" {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.Helpdesk.BaseURL == "" {
		return fmt.Errorf("HELPDESK_BASE_URL is required")
	}

	if c.Helpdesk.Email == "" || c.Helpdesk.APIToken == "" {
		return fmt.Errorf("HELPDESK_EMAIL and HELPDESK_API_TOKEN are required")
	}

	if len(c.Helpdesk.AgentIDs) == 0 {
		return fmt.Errorf("HELPDESK_AGENT_IDS must list at least one agent")
	}

	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("sync batch size must be positive")
	}

	if c.Sync.IncrementalDays <= 0 {
		return fmt.Errorf("incremental window must be at least one day")
	}

	return nil
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// GetDatabaseURL returns the database connection string
func (c *Config) GetDatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
		int(c.Database.ConnectTimeout.Seconds()),
	)
}

// IncrementalWindow returns the length of the trailing incremental window
func (c *Config) IncrementalWindow() time.Duration {
	return time.Duration(c.Sync.IncrementalDays) * 24 * time.Hour
}

// Helper functions for environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func parseInt64List(value string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
