package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/anyaat/Atlas/internal/domain"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	StorageDriver string
	DatabaseURL   string
	SQLitePath    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DiscordToken        string
	DiscordChannelID    string
	NotifyRatePerMinute int

	Locale    string
	LogLevel  string
	LogPretty bool

	SweepSchedule string
	SweepWorkers  int
	SweepBatch    int
	SweepBudget   time.Duration
	ClaimTTL      time.Duration

	// LifecycleProfile is "production", "accelerated" or a YAML file path.
	LifecycleProfile string
}

// Load reads the configuration from the environment (and an optional .env
// file) and validates it.
func Load() (*Config, error) {
	// .env is optional when variables come from the environment (Docker, CI...).
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv and validates it.
func FromEnv(getenv func(string) string) (*Config, error) {
	e := envReader{getenv: getenv}
	cfg := &Config{
		StorageDriver:       e.str("STORAGE_DRIVER", ""),
		DatabaseURL:         e.str("DATABASE_URL", ""),
		SQLitePath:          e.str("SQLITE_PATH", "data/atlas.db"),
		RedisAddr:           e.str("REDIS_ADDR", ""),
		RedisPassword:       e.str("REDIS_PASSWORD", ""),
		RedisDB:             e.integer("REDIS_DB", 0),
		DiscordToken:        e.str("DISCORD_TOKEN", ""),
		DiscordChannelID:    e.str("DISCORD_CHANNEL_ID", ""),
		NotifyRatePerMinute: e.integer("NOTIFY_RATE_PER_MINUTE", 30),
		Locale:              e.str("LOCALE", "en"),
		LogLevel:            e.str("LOG_LEVEL", "info"),
		LogPretty:           e.boolean("LOG_PRETTY", false),
		SweepSchedule:       e.str("SWEEP_SCHEDULE", "@every 10m"),
		SweepWorkers:        e.integer("SWEEP_WORKERS", 4),
		SweepBatch:          e.integer("SWEEP_BATCH", 500),
		SweepBudget:         e.duration("SWEEP_BUDGET", 5*time.Minute),
		ClaimTTL:            e.duration("CLAIM_TTL", 2*time.Minute),
		LifecycleProfile:    e.str("LIFECYCLE_PROFILE", "production"),
	}
	if e.err != nil {
		return nil, e.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.StorageDriver == "" {
		c.StorageDriver = DriverSQLite
		if c.DatabaseURL != "" {
			c.StorageDriver = DriverPostgres
		}
	}
	switch c.StorageDriver {
	case DriverPostgres:
		parsed, err := url.Parse(c.DatabaseURL)
		if err != nil {
			return invalid("DATABASE_URL %q: %v", c.DatabaseURL, err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return invalid("DATABASE_URL %q: scheme or host missing", c.DatabaseURL)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return invalid("SQLITE_PATH is required with the sqlite driver")
		}
	default:
		return invalid("STORAGE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.StorageDriver)
	}

	if c.DiscordToken != "" {
		if c.DiscordChannelID == "" {
			return invalid("DISCORD_CHANNEL_ID is required when DISCORD_TOKEN is set")
		}
		for _, r := range c.DiscordChannelID {
			if r < '0' || r > '9' {
				return invalid("DISCORD_CHANNEL_ID must be a Discord channel id (digits only)")
			}
		}
	}

	if c.SweepWorkers <= 0 {
		return invalid("SWEEP_WORKERS must be positive, got %d", c.SweepWorkers)
	}
	if c.SweepBatch <= 0 {
		return invalid("SWEEP_BATCH must be positive, got %d", c.SweepBatch)
	}
	if c.SweepBudget < 0 {
		return invalid("SWEEP_BUDGET must not be negative")
	}
	if c.ClaimTTL <= 0 {
		return invalid("CLAIM_TTL must be positive")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("config: %s: %w", fmt.Sprintf(format, args...), domain.ErrConfiguration)
}

// envReader keeps the first parse error so FromEnv can report it once.
type envReader struct {
	getenv func(string) string
	err    error
}

func (e *envReader) str(key, def string) string {
	if v := strings.TrimSpace(e.getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *envReader) integer(key string, def int) int {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil && e.err == nil {
		e.err = invalid("%s %q is not an integer", key, v)
	}
	return n
}

func (e *envReader) boolean(key string, def bool) bool {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil && e.err == nil {
		e.err = invalid("%s %q is not a boolean", key, v)
	}
	return b
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	d, err := ParseDuration(v)
	if err != nil && e.err == nil {
		e.err = invalid("%s: %v", key, err)
	}
	return d
}
