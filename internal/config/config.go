// README: Config loader with defaults, optional config.yaml and WAYFINDER_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "WAYFINDER"

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Log         LogConfig         `mapstructure:"log"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Geocoding   GeocodingConfig   `mapstructure:"geocoding"`
	Routing     RoutingConfig     `mapstructure:"routing"`
	Google      GoogleConfig      `mapstructure:"google"`
	Redis       RedisConfig       `mapstructure:"redis"`
	DB          DBConfig          `mapstructure:"db"`
	Interaction InteractionConfig `mapstructure:"interaction"`
	Position    PositionConfig    `mapstructure:"position"`
	Session     SessionConfig     `mapstructure:"session"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type GeocodingConfig struct {
	// Provider is "nominatim" or "google".
	Provider      string        `mapstructure:"provider"`
	BaseURL       string        `mapstructure:"base_url"`
	UserAgent     string        `mapstructure:"user_agent"`
	Language      string        `mapstructure:"language"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Timeout       time.Duration `mapstructure:"timeout"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

type RoutingConfig struct {
	// Provider is "osrm" or "google".
	Provider         string        `mapstructure:"provider"`
	BaseURL          string        `mapstructure:"base_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Fallback         bool          `mapstructure:"fallback"`
	FallbackSpeedKmh float64       `mapstructure:"fallback_speed_kmh"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	CacheSize        int           `mapstructure:"cache_size"`
}

type GoogleConfig struct {
	APIKey string `mapstructure:"api_key"`
	Region string `mapstructure:"region"`
}

type RedisConfig struct {
	// Addr empty disables the geocode cache.
	Addr string `mapstructure:"addr"`
}

type DBConfig struct {
	// DSN empty disables recent searches.
	DSN string `mapstructure:"dsn"`
}

type InteractionConfig struct {
	SearchDebounce time.Duration `mapstructure:"search_debounce"`
	SearchLimit    int           `mapstructure:"search_limit"`
}

type PositionConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	MaxAge  time.Duration `mapstructure:"max_age"`
}

type SessionConfig struct {
	IdleTTL      time.Duration `mapstructure:"idle_ttl"`
	ReapInterval time.Duration `mapstructure:"reap_interval"`
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("geocoding.provider", "nominatim")
	v.SetDefault("geocoding.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoding.user_agent", "wayfinder/1.0")
	v.SetDefault("geocoding.language", "en")
	v.SetDefault("geocoding.rate_per_second", 1.0)
	v.SetDefault("geocoding.timeout", 5*time.Second)
	v.SetDefault("geocoding.cache_ttl", 24*time.Hour)

	v.SetDefault("routing.provider", "osrm")
	v.SetDefault("routing.base_url", "https://router.project-osrm.org")
	v.SetDefault("routing.timeout", 10*time.Second)
	v.SetDefault("routing.fallback", false)
	v.SetDefault("routing.fallback_speed_kmh", 35.0)
	v.SetDefault("routing.cache_ttl", 5*time.Minute)
	v.SetDefault("routing.cache_size", 256)

	v.SetDefault("google.api_key", "")
	v.SetDefault("google.region", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("db.dsn", "")

	v.SetDefault("interaction.search_debounce", 300*time.Millisecond)
	v.SetDefault("interaction.search_limit", 5)
	v.SetDefault("position.timeout", 10*time.Second)
	v.SetDefault("position.max_age", 10*time.Minute)
	v.SetDefault("session.idle_ttl", 30*time.Minute)
	v.SetDefault("session.reap_interval", time.Minute)
}

// Load reads defaults, then ./config.yaml or ./configs/config.yaml if present,
// then WAYFINDER_* environment variables (WAYFINDER_ROUTING_FALLBACK -> routing.fallback).
// A local .env file is loaded into the environment first.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate collects every problem into one error.
func (c *Config) Validate() error {
	var errs []string

	if c.HTTP.Addr == "" {
		errs = append(errs, "http.addr is required")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}

	switch c.Geocoding.Provider {
	case "nominatim":
		if c.Geocoding.BaseURL == "" {
			errs = append(errs, "geocoding.base_url is required for nominatim")
		}
	case "google":
		if c.Google.APIKey == "" {
			errs = append(errs, "google.api_key is required when geocoding.provider is google")
		}
	default:
		errs = append(errs, fmt.Sprintf("geocoding.provider must be nominatim or google, got %q", c.Geocoding.Provider))
	}

	switch c.Routing.Provider {
	case "osrm":
		if c.Routing.BaseURL == "" {
			errs = append(errs, "routing.base_url is required for osrm")
		}
	case "google":
		if c.Google.APIKey == "" {
			errs = append(errs, "google.api_key is required when routing.provider is google")
		}
	default:
		errs = append(errs, fmt.Sprintf("routing.provider must be osrm or google, got %q", c.Routing.Provider))
	}

	if c.Routing.FallbackSpeedKmh <= 0 {
		errs = append(errs, "routing.fallback_speed_kmh must be positive")
	}
	if c.Routing.CacheSize <= 0 {
		errs = append(errs, "routing.cache_size must be positive")
	}
	if c.Interaction.SearchDebounce <= 0 {
		errs = append(errs, "interaction.search_debounce must be positive")
	}
	if c.Interaction.SearchLimit <= 0 || c.Interaction.SearchLimit > 5 {
		errs = append(errs, fmt.Sprintf("interaction.search_limit must be 1-5, got %d", c.Interaction.SearchLimit))
	}
	if c.Position.Timeout <= 0 {
		errs = append(errs, "position.timeout must be positive")
	}
	if c.Position.MaxAge <= 0 {
		errs = append(errs, "position.max_age must be positive")
	}
	if c.Session.IdleTTL <= 0 || c.Session.ReapInterval <= 0 {
		errs = append(errs, "session.idle_ttl and session.reap_interval must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
