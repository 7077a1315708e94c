package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default returns the built-in configuration; Load layers the file and env on top.
func Default() *Config {
	var cfg Config

	cfg.Server.Port = 8787
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 10 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Storage.Driver = "postgres"

	cfg.PostgreSQL.Host = "localhost"
	cfg.PostgreSQL.Port = 5432
	cfg.PostgreSQL.User = "postgres"
	cfg.PostgreSQL.Password = "postgres"
	cfg.PostgreSQL.Database = "jijin"
	cfg.PostgreSQL.SSLMode = "disable"
	cfg.PostgreSQL.MaxOpenConns = 10
	cfg.PostgreSQL.MaxIdleConns = 5
	cfg.PostgreSQL.ConnMaxLifetime = 30 * time.Minute

	cfg.Redis.Host = "localhost"
	cfg.Redis.Port = 6379
	cfg.Redis.TTL = 24 * time.Hour

	cfg.Retention.MaxAge = 30 * 24 * time.Hour
	cfg.Retention.Interval = time.Hour

	cfg.Upstream.GoldURL = "https://data-asg.goldprice.org/dbXRates/USD"
	cfg.Upstream.RatePrimaryURL = "https://api.exchangerate-api.com/v4/latest/USD"
	cfg.Upstream.RateBackupURL = "https://open.er-api.com/v6/latest/USD"
	cfg.Upstream.DefaultRate = 6.92
	cfg.Upstream.RequestTimeout = 8 * time.Second
	cfg.Upstream.MaxRetries = 1
	cfg.Upstream.RequestsPerSec = 5

	cfg.Tracker.Port = 8080
	cfg.Tracker.Mode = "live"
	cfg.Tracker.Interval = 5 * time.Second
	cfg.Tracker.HistoryWindow = 2 * time.Hour
	cfg.Tracker.DedupEpsilon = 0.01
	cfg.Tracker.CandleBucket = time.Minute
	cfg.Tracker.CandleCapacity = 500
	cfg.Tracker.LoadHistory = true
	cfg.Tracker.TestBasePrice = 2000

	cfg.Persistence.Enabled = true
	cfg.Persistence.APIBaseURL = "http://localhost:8787"
	cfg.Persistence.Workers = 2
	cfg.Persistence.QueueSize = 256
	cfg.Persistence.WriteTimeout = 5 * time.Second

	cfg.Kafka.Topic = "gold-prices"

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	return &cfg
}

// Load reads .env (if present), the YAML file (if present) and env overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// работаем на значениях по умолчанию и окружении
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// PostgreSQL
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		cfg.PostgreSQL.Host = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.PostgreSQL.Port = port
		}
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		cfg.PostgreSQL.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.PostgreSQL.Password = v
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		cfg.PostgreSQL.Database = v
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}

	// Redis
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Redis.Port = port
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	// Server
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TRACKER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Tracker.Port = port
		}
	}
	if v := os.Getenv("API_BASE_URL"); v != "" {
		cfg.Persistence.APIBaseURL = v
	}

	// Kafka
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
		cfg.Kafka.Enabled = len(cfg.Kafka.Brokers) > 0
	}

	if v := os.Getenv("TEST_METAL"); v != "" {
		cfg.Tracker.TestMetal = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if c.Tracker.Interval <= 0 {
		return errors.New("tracker.interval must be positive")
	}
	if c.Tracker.HistoryWindow <= 0 && c.Tracker.HistoryCapacity <= 0 {
		return errors.New("tracker.history_window or tracker.history_capacity must be set")
	}
	if c.Tracker.CandleBucket <= 0 {
		return errors.New("tracker.candle_bucket must be positive")
	}
	if c.Upstream.DefaultRate <= 0 {
		return errors.New("upstream.default_rate must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.enabled requires kafka.brokers")
	}
	return nil
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host, c.PostgreSQL.Port, c.PostgreSQL.User,
		c.PostgreSQL.Password, c.PostgreSQL.Database, c.PostgreSQL.SSLMode,
	)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// HistoryCapacity is the fixed count if set, else window / interval.
func (c *Config) HistoryCapacity() int {
	if c.Tracker.HistoryCapacity > 0 {
		return c.Tracker.HistoryCapacity
	}
	n := int(c.Tracker.HistoryWindow / c.Tracker.Interval)
	if n < 1 {
		n = 1
	}
	return n
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
