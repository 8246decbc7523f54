package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Source    SourceConfig      `mapstructure:"source"`
	Store     StoreConfig       `mapstructure:"store"`
	Scheduler SchedulerConfig   `mapstructure:"scheduler"`
	Dashboard DashboardSettings `mapstructure:"dashboard"`

	// Catalog is built from Dashboard once the configuration is decoded.
	Catalog *Catalog `mapstructure:"-"`
}

type AppSettings struct {
	Name            string        `mapstructure:"name"`
	Env             string        `mapstructure:"env"`
	LogLevel        string        `mapstructure:"log_level"`
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type SourceConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// HTTPTimeout bounds a single HTTP attempt.
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	// FetchTimeout bounds a whole dashboard update, retries included.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RateLimit    float64       `mapstructure:"rate_limit"`
	RateBurst    int           `mapstructure:"rate_burst"`
}

type StoreConfig struct {
	MaxStations int           `mapstructure:"max_stations"` // 0 = unlimited
	MaxAge      time.Duration `mapstructure:"max_age"`      // 0 = unlimited
}

type SchedulerConfig struct {
	RefreshInterval    time.Duration `mapstructure:"refresh_interval"`
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout"`
}

type DashboardSettings struct {
	Cities      []City `mapstructure:"cities"`
	FirstYear   int    `mapstructure:"first_year"`
	LastYear    int    `mapstructure:"last_year"`
	DefaultCity string `mapstructure:"default_city"`
	DefaultYear int    `mapstructure:"default_year"`
}

// envKeys maps configuration keys to the environment variables that override them.
var envKeys = map[string]string{
	"app.name":                       "APP_NAME",
	"app.env":                        "APP_ENV",
	"app.log_level":                  "LOG_LEVEL",
	"app.port":                       "PORT",
	"app.shutdown_timeout":           "SHUTDOWN_TIMEOUT",
	"source.base_url":                "SOURCE_BASE_URL",
	"source.http_timeout":            "HTTP_TIMEOUT",
	"source.fetch_timeout":           "FETCH_TIMEOUT",
	"source.max_retries":             "SOURCE_MAX_RETRIES",
	"source.rate_limit":              "SOURCE_RATE_LIMIT",
	"source.rate_burst":              "SOURCE_RATE_BURST",
	"store.max_stations":             "STORE_MAX_STATIONS",
	"store.max_age":                  "STORE_MAX_AGE",
	"scheduler.refresh_interval":     "REFRESH_INTERVAL",
	"scheduler.session_idle_timeout": "SESSION_IDLE_TIMEOUT",
	"dashboard.default_city":         "DEFAULT_CITY",
	"dashboard.default_year":         "DEFAULT_YEAR",
}

func defaultCities() []map[string]interface{} {
	return []map[string]interface{}{
		{"name": "Champaign", "title": "Champaign, IL", "station_id": "USC00118740"},
		{"name": "Guam", "title": "Guam, GU", "station_id": "GQW00041415"},
		{"name": "Fairbanks", "title": "Fairbanks, AK", "station_id": "USW00026411"},
		{"name": "Chicago", "title": "Chicago, IL", "station_id": "USC00111577"},
		{"name": "Atlanta", "title": "Atlanta, GA", "station_id": "USW00013874"},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "weather-bands-dashboard")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.shutdown_timeout", "10s")

	v.SetDefault("source.base_url", "https://noaa-ghcn-pds.s3.amazonaws.com/csv/by_station")
	v.SetDefault("source.http_timeout", "60s")
	v.SetDefault("source.fetch_timeout", "90s")
	v.SetDefault("source.max_retries", 2)
	v.SetDefault("source.rate_limit", 2)
	v.SetDefault("source.rate_burst", 2)

	v.SetDefault("store.max_stations", 16)
	v.SetDefault("store.max_age", "24h")

	v.SetDefault("scheduler.refresh_interval", "6h")
	v.SetDefault("scheduler.session_idle_timeout", "30m")

	v.SetDefault("dashboard.cities", defaultCities())
	v.SetDefault("dashboard.first_year", 1981)
	v.SetDefault("dashboard.last_year", 2023)
	v.SetDefault("dashboard.default_city", "Champaign")
	v.SetDefault("dashboard.default_year", 2023)
}

// Load reads configuration from .env, an optional CONFIG_FILE (yaml, json or
// toml) and the environment, in increasing order of precedence.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Source.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: must be positive")
	}
	if cfg.Source.FetchTimeout <= 0 {
		return nil, fmt.Errorf("invalid FETCH_TIMEOUT: must be positive")
	}
	if cfg.Source.MaxRetries < 0 {
		return nil, fmt.Errorf("invalid SOURCE_MAX_RETRIES: must not be negative")
	}

	d := cfg.Dashboard
	catalog, err := NewCatalog(d.Cities, d.FirstYear, d.LastYear, d.DefaultCity, d.DefaultYear)
	if err != nil {
		return nil, err
	}
	cfg.Catalog = catalog

	return cfg, nil
}
