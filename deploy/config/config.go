package config

import (
	"fmt"
	"log"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTPServer HTTPServer
	Fetcher    Fetcher
	Storage    Storage
	Redis      Redis
	Postgres   Postgres
	LogLevel   string `env:"LOG_LEVEL" env-default:"info"`
}

type HTTPServer struct {
	Port        string        `env:"PORT" env-default:"3000"`
	Timeout     time.Duration `env:"HTTP_TIMEOUT" env-default:"30s"`
	IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type Fetcher struct {
	URL        string        `env:"RATES_API_URL" env-default:"https://api.exchangerate.host/latest?base=AZN&symbols=AZN,USD,EUR,AED,TRY"`
	IntervalMS string        `env:"UPDATE_INTERVAL_MS" env-default:"3600000"`
	Timeout    time.Duration `env:"FETCHER_TIMEOUT" env-default:"10s"`
}

const DefaultInterval = time.Hour

// Interval converts UPDATE_INTERVAL_MS to a duration. Anything that is not a positive
// number of milliseconds means DefaultInterval.
func (f Fetcher) Interval() time.Duration {
	interval, ok := parseIntervalMS(f.IntervalMS)
	if !ok {
		return DefaultInterval
	}
	return interval
}

func parseIntervalMS(raw string) (time.Duration, bool) {
	ms, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(ms) || math.IsInf(ms, 0) || ms < 1 {
		return 0, false
	}
	return time.Duration(ms * float64(time.Millisecond)), true
}

type Storage struct {
	Driver string `env:"STORAGE_DRIVER" env-default:"file"`
	File   string `env:"RATES_FILE" env-default:"rates.json"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" env-default:""`
	DB       int    `env:"REDIS_DB" env-default:"0"`
	Key      string `env:"REDIS_KEY" env-default:"rates:latest"`
	Channel  string `env:"REDIS_CHANNEL" env-default:"rates_updated"`
}

type Postgres struct {
	Timeout  time.Duration `env:"BD_TIMEOUT" env-default:"10s"`
	Host     string        `env:"BD_HOST" env-default:"localhost"`
	Port     int           `env:"BD_PORT" env-default:"5432"`
	User     string        `env:"BD_USER" env-default:"postgres"`
	Password string        `env:"BD_PASSWORD" env-default:""`
	DBName   string        `env:"BD_DBNAME" env-default:"rates"`
	SSLMode  string        `env:"BD_SSL_MODE" env-default:"disable"`
	Schema   string        `env:"BD_SCHEMA" env-default:"public"`
}

// DSN builds a libpq style connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s search_path=%s",
		p.Host,
		p.Port,
		p.User,
		p.Password,
		p.DBName,
		p.SSLMode,
		p.Schema,
	)
}

func NewConfig() *Config {
	_ = godotenv.Load(".env")

	cfg, err := Load()
	if err != nil {
		log.Fatalf("Error reading env: %v", err)
	}

	return cfg
}

// Load reads the process environment into a validated Config.
func Load() (*Config, error) {
	const op = "config.Load"

	cfg := &Config{}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errors.Wrap(err, op)
	}

	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, op)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if _, ok := parseIntervalMS(c.Fetcher.IntervalMS); !ok {
		slog.Warn("invalid UPDATE_INTERVAL_MS, using default", "value", c.Fetcher.IntervalMS, "default", DefaultInterval)
	}

	if c.Fetcher.URL == "" {
		return errors.New("RATES_API_URL is empty")
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case DriverFile, DriverRedis, DriverPostgres:
	default:
		return errors.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
