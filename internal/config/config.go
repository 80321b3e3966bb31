package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates runtime configuration for the timeline API.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Postgres PostgresConfig
	Immich   ImmichConfig
	Media    MediaConfig
	Engine   EngineConfig
	Metrics  MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StoreConfig selects the persisted-store driver.
type StoreConfig struct {
	Driver     string // "sqlite" or "postgres"
	SQLitePath string
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// ImmichConfig points at the photo server.
type ImmichConfig struct {
	ServerURL   string
	AccessToken string
}

// MediaConfig points at the local photo directory.
type MediaConfig struct {
	Dir string
}

// EngineConfig tunes the timeline cache engine.
type EngineConfig struct {
	FetchJobCap  int
	FetchWorkers int
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:         getString("TIMELINE_API_HOST", "0.0.0.0"),
			Port:         getInt("TIMELINE_API_PORT", 8080),
			ReadTimeout:  getDuration("TIMELINE_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("TIMELINE_API_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:  getDuration("TIMELINE_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Store: StoreConfig{
			Driver:     strings.ToLower(getString("TIMELINE_DB_DRIVER", "sqlite")),
			SQLitePath: getString("TIMELINE_DB_PATH", "timeline.db"),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "timeline_app"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "timeline"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
		},
		Immich: ImmichConfig{
			ServerURL:   getString("IMMICH_SERVER_URL", "http://localhost:2283"),
			AccessToken: getString("IMMICH_ACCESS_TOKEN", ""),
		},
		Media: MediaConfig{
			Dir: getString("TIMELINE_MEDIA_DIR", ""),
		},
		Engine: EngineConfig{
			FetchJobCap:  getInt("TIMELINE_FETCH_JOB_CAP", 5),
			FetchWorkers: getInt("TIMELINE_FETCH_WORKERS", 3),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("TIMELINE_METRICS_PATH", "/metrics"),
		},
	}

	if cfg.Store.Driver != "sqlite" && cfg.Store.Driver != "postgres" {
		return Config{}, fmt.Errorf("unsupported TIMELINE_DB_DRIVER: %s", cfg.Store.Driver)
	}
	return cfg, nil
}

// StoreDSN returns the DSN matching the selected driver.
func (c Config) StoreDSN() string {
	if c.Store.Driver == "postgres" {
		return c.Postgres.DSN()
	}
	return c.Store.SQLitePath
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}
