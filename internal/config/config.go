// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const configPathEnv = "LEDGER_CONFIG"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Queue    QueueConfig    `yaml:"queue"`
	Log      LogConfig      `yaml:"log"`
	Ledger   LedgerConfig   `yaml:"ledger"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RateLimitRPS    float64       `yaml:"rateLimitRps"`
	RateLimitBurst  int           `yaml:"rateLimitBurst"`
}

// DatabaseConfig describes the record store. Driver "memory" keeps
// everything in process, which is only meant for local runs.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	URL             string        `yaml:"url"`
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	QueryTimeout    time.Duration `yaml:"queryTimeout"`
}

type QueueConfig struct {
	URL        string        `yaml:"url"`
	Topic      string        `yaml:"topic"`
	Prefetch   int           `yaml:"prefetch"`
	MaxRetries int           `yaml:"maxRetries"`
	Backoff    time.Duration `yaml:"backoff"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type LedgerConfig struct {
	FeedConcurrency    int           `yaml:"feedConcurrency"`
	DefaultReportLimit int           `yaml:"defaultReportLimit"`
	MaxReportLimit     int           `yaml:"maxReportLimit"`
	FunnelWindow       time.Duration `yaml:"funnelWindow"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 20 * time.Second,
			RateLimitRPS:    50,
			RateLimitBurst:  100,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            "5432",
			Name:            "ledger",
			SSLMode:         "disable",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			QueryTimeout:    5 * time.Second,
		},
		Queue: QueueConfig{
			Topic:      "publication_events",
			Prefetch:   10,
			MaxRetries: 3,
			Backoff:    500 * time.Millisecond,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Ledger: LedgerConfig{
			FeedConcurrency:    8,
			DefaultReportLimit: 20,
			MaxReportLimit:     500,
			FunnelWindow:       7 * 24 * time.Hour,
		},
	}
}

// Load reads .env (if present), an optional YAML file named by
// LEDGER_CONFIG, then environment overrides.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg := Default()
	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Host = envString("SERVER_HOST", c.Server.Host)
	c.Server.Port = envInt("SERVER_PORT", c.Server.Port)
	c.Server.ReadTimeout = envDuration("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = envDuration("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = envDuration("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.RateLimitRPS = envFloat("RATE_LIMIT_RPS", c.Server.RateLimitRPS)
	c.Server.RateLimitBurst = envInt("RATE_LIMIT_BURST", c.Server.RateLimitBurst)

	c.Database.Driver = envString("DB_DRIVER", c.Database.Driver)
	c.Database.URL = envString("DATABASE_URL", c.Database.URL)
	c.Database.Host = envString("DB_HOST", c.Database.Host)
	c.Database.Port = envString("DB_PORT", c.Database.Port)
	c.Database.User = envString("DB_USER", c.Database.User)
	c.Database.Password = envString("DB_PASSWORD", c.Database.Password)
	c.Database.Name = envString("DB_NAME", c.Database.Name)
	c.Database.SSLMode = envString("DB_SSLMODE", c.Database.SSLMode)
	c.Database.MaxOpenConns = envInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = envInt("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.ConnMaxLifetime = envDuration("DB_CONN_MAX_LIFETIME", c.Database.ConnMaxLifetime)
	c.Database.QueryTimeout = envDuration("DB_QUERY_TIMEOUT", c.Database.QueryTimeout)

	c.Queue.URL = envString("AMQP_URL", c.Queue.URL)
	c.Queue.Topic = envString("QUEUE_TOPIC", c.Queue.Topic)
	c.Queue.Prefetch = envInt("QUEUE_PREFETCH", c.Queue.Prefetch)
	c.Queue.MaxRetries = envInt("QUEUE_MAX_RETRIES", c.Queue.MaxRetries)
	c.Queue.Backoff = envDuration("QUEUE_BACKOFF", c.Queue.Backoff)

	c.Log.Level = envString("LOG_LEVEL", c.Log.Level)
	c.Log.Format = envString("LOG_FORMAT", c.Log.Format)

	c.Ledger.FeedConcurrency = envInt("LEDGER_FEED_CONCURRENCY", c.Ledger.FeedConcurrency)
	c.Ledger.DefaultReportLimit = envInt("LEDGER_REPORT_LIMIT", c.Ledger.DefaultReportLimit)
	c.Ledger.MaxReportLimit = envInt("LEDGER_MAX_REPORT_LIMIT", c.Ledger.MaxReportLimit)
	c.Ledger.FunnelWindow = envDuration("LEDGER_FUNNEL_WINDOW", c.Ledger.FunnelWindow)
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" && (c.Database.Host == "" || c.Database.Name == "") {
			return fmt.Errorf("postgres driver needs DATABASE_URL or DB_HOST and DB_NAME")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.QueryTimeout <= 0 {
		return fmt.Errorf("database query timeout must be positive")
	}
	if c.Ledger.FeedConcurrency < 1 {
		return fmt.Errorf("feed concurrency must be at least 1")
	}
	if c.Ledger.DefaultReportLimit < 1 || c.Ledger.MaxReportLimit < c.Ledger.DefaultReportLimit {
		return fmt.Errorf("report limits must satisfy 1 <= default (%d) <= max (%d)",
			c.Ledger.DefaultReportLimit, c.Ledger.MaxReportLimit)
	}
	if c.Ledger.FunnelWindow <= 0 {
		return fmt.Errorf("funnel window must be positive")
	}
	levels := []string{"debug", "info", "warn", "error"}
	if !contains(levels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Log.Level, strings.Join(levels, ", "))
	}
	return nil
}

// DSN builds the lib/pq connection string. DATABASE_URL wins when set.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MissingSettings lists the database settings the resolved configuration
// still lacks, named by their environment variables. A URL from any source
// is enough on its own.
func (c *Config) MissingSettings() []string {
	d := c.Database
	if d.Driver != "postgres" || strings.TrimSpace(d.URL) != "" {
		return nil
	}
	var missing []string
	if strings.TrimSpace(d.Host) == "" {
		missing = append(missing, "DB_HOST")
	}
	if strings.TrimSpace(d.Name) == "" {
		missing = append(missing, "DB_NAME")
	}
	return missing
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func contains(list []string, item string) bool {
	for _, s := range list {
		if s == item {
			return true
		}
	}
	return false
}
