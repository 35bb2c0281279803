// Package config loads application settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vearutop/spendcache"
	"github.com/vearutop/spendcache/internal/logging"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "SPENDCACHE_"

// Config is an application configuration.
type Config struct {
	HTTP    HTTP           `yaml:"http"`
	Cache   Cache          `yaml:"cache"`
	Advisor Advisor        `yaml:"advisor"`
	Log     logging.Config `yaml:"log"`
	Metrics Metrics        `yaml:"metrics"`
}

// HTTP configures server.
type HTTP struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ReadTimeout     time.Duration `yaml:"readTimeout" validate:"min=0"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" validate:"min=0"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" validate:"min=0"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

// Cache configures insights cache.
type Cache struct {
	TimeToLive               time.Duration `yaml:"timeToLive" validate:"gt=0"`
	DeleteExpiredJobInterval time.Duration `yaml:"deleteExpiredJobInterval"`
	ItemsCountReportInterval time.Duration `yaml:"itemsCountReportInterval"`
	HeapInUseSoftLimit       uint64        `yaml:"heapInUseSoftLimit"`
	Deduplicate              bool          `yaml:"deduplicate"`
	UnstampedWrites          bool          `yaml:"unstampedWrites"`
}

// Advisor configures language model API.
type Advisor struct {
	BaseURL     string        `yaml:"baseURL" validate:"omitempty,url"`
	APIKey      string        `yaml:"apiKey"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature" validate:"min=0,max=2"`
	Timeout     time.Duration `yaml:"timeout" validate:"min=0"`
}

// Metrics configures Prometheus exposition.
type Metrics struct {
	Namespace string `yaml:"namespace"`
}

// Default returns configuration with default values.
func Default() Config {
	return Config{
		HTTP: HTTP{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Cache: Cache{
			TimeToLive:               cache.DefaultTimeToLive,
			DeleteExpiredJobInterval: time.Minute,
		},
		Advisor: Advisor{
			Timeout: 20 * time.Second,
		},
		Log: logging.Config{
			Level: "info",
		},
		Metrics: Metrics{
			Namespace: "spendcache",
		},
	}
}

// Load reads optional YAML file on top of defaults, applies environment overrides and validates result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // Path is provided by operator.
		if err != nil {
			return cfg, fmt.Errorf("reading config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))

				return
			}

			*dst = d
		}
	}

	flag := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))

				return
			}

			*dst = b
		}
	}

	str("HTTP_ADDR", &c.HTTP.Addr)

	if v, ok := lookup(EnvPrefix + "HTTP_CORS_ORIGINS"); ok {
		c.HTTP.CORSOrigins = strings.Split(v, ",")
	}

	dur("CACHE_TTL", &c.Cache.TimeToLive)
	dur("CACHE_CLEANUP_INTERVAL", &c.Cache.DeleteExpiredJobInterval)
	flag("CACHE_DEDUPLICATE", &c.Cache.Deduplicate)
	flag("CACHE_UNSTAMPED_WRITES", &c.Cache.UnstampedWrites)

	str("ADVISOR_BASE_URL", &c.Advisor.BaseURL)
	str("ADVISOR_API_KEY", &c.Advisor.APIKey)
	str("ADVISOR_MODEL", &c.Advisor.Model)
	dur("ADVISOR_TIMEOUT", &c.Advisor.Timeout)

	if c.Advisor.APIKey == "" {
		if v, ok := lookup("OPENAI_API_KEY"); ok {
			c.Advisor.APIKey = v
		}
	}

	str("LOG_LEVEL", &c.Log.Level)
	flag("LOG_DEVELOPMENT", &c.Log.Development)

	return errors.Join(errs...)
}

// Validate checks configuration values.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}
