// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the configuration of the agent server from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Planner providers.
const (
	PlannerRules     = "rules"
	PlannerOpenAI    = "openai"
	PlannerAnthropic = "anthropic"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config is the complete server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Push      PushConfig      `yaml:"push"`
	Planner   PlannerConfig   `yaml:"planner"`
	Rates     RatesConfig     `yaml:"rates"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	PublicURL       string        `yaml:"public_url"` // advertised on the agent card, defaults to http://host:port/
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// StoreConfig selects the task store and its retention.
type StoreConfig struct {
	Driver    string        `yaml:"driver"` // memory, sqlite, postgres, redis
	DSN       string        `yaml:"dsn"`
	RedisAddr string        `yaml:"redis_addr"`
	KeyPrefix string        `yaml:"key_prefix"`
	Retention time.Duration `yaml:"retention"`
	Sweep     string        `yaml:"sweep"` // cron schedule of the janitor, empty disables it
}

// PushConfig configures push notifications.
type PushConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Issuer        string        `yaml:"issuer"`
	Workers       int           `yaml:"workers"`
	QueueSize     int           `yaml:"queue_size"`
	Retries       int           `yaml:"retries"`
	Backoff       time.Duration `yaml:"backoff"`
	RatePerSecond float64       `yaml:"rate_per_second"`
}

// PlannerConfig selects how the currency agent understands requests.
type PlannerConfig struct {
	Provider string `yaml:"provider"` // rules, openai, anthropic
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
}

// RatesConfig points at the exchange rate API.
type RatesConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// TelemetryConfig enables OTLP trace export when Endpoint is set.
type TelemetryConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            9000,
			MaxBodyBytes:    10 << 20,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Store: StoreConfig{
			Driver:    StoreMemory,
			KeyPrefix: "a2a:",
			Retention: 24 * time.Hour,
			Sweep:     "@every 10m",
		},
		Push: PushConfig{
			Enabled:       true,
			Issuer:        "currency-agent",
			Workers:       4,
			QueueSize:     256,
			Retries:       3,
			Backoff:       500 * time.Millisecond,
			RatePerSecond: 5,
		},
		Planner: PlannerConfig{
			Provider: PlannerRules,
		},
		Rates: RatesConfig{
			BaseURL: "https://api.frankfurter.app",
			Timeout: 10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "currency-agent",
			SampleRatio: 1,
		},
	}
}

// Load reads path over the defaults, then applies environment overrides. An empty path
// skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides settings from the environment. API keys fall back to the
// provider's conventional variable.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("A2A_HOST", &c.Server.Host)
	str("A2A_PUBLIC_URL", &c.Server.PublicURL)
	str("A2A_LOG_LEVEL", &c.Log.Level)
	str("A2A_LOG_FORMAT", &c.Log.Format)
	str("A2A_STORE_DRIVER", &c.Store.Driver)
	str("A2A_STORE_DSN", &c.Store.DSN)
	str("A2A_REDIS_ADDR", &c.Store.RedisAddr)
	str("A2A_PLANNER", &c.Planner.Provider)
	str("A2A_PLANNER_MODEL", &c.Planner.Model)
	str("A2A_PLANNER_BASE_URL", &c.Planner.BaseURL)
	str("A2A_PLANNER_API_KEY", &c.Planner.APIKey)
	str("A2A_RATES_URL", &c.Rates.BaseURL)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Telemetry.Endpoint)

	if c.Planner.APIKey == "" {
		switch c.Planner.Provider {
		case PlannerOpenAI:
			str("OPENAI_API_KEY", &c.Planner.APIKey)
		case PlannerAnthropic:
			str("ANTHROPIC_API_KEY", &c.Planner.APIKey)
		}
	}

	if v, ok := lookup("A2A_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("A2A_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("A2A_PUSH_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("A2A_PUSH_ENABLED: %w", err)
		}
		c.Push.Enabled = enabled
	}
	return nil
}

// URL returns the URL advertised on the agent card.
func (c *Config) URL() string {
	if c.Server.PublicURL != "" {
		return c.Server.PublicURL
	}
	return fmt.Sprintf("http://%s:%d/", c.Server.Host, c.Server.Port)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate reports every invalid setting. A model backed planner without an API key is
// an error so the server refuses to start instead of failing each request.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite, StorePostgres:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for the %s driver", c.Store.Driver))
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store.redis_addr is required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}

	switch c.Planner.Provider {
	case PlannerRules:
	case PlannerOpenAI:
		if c.Planner.APIKey == "" {
			errs = append(errs, errors.New("OpenAI API key is missing: set planner.api_key or OPENAI_API_KEY"))
		}
	case PlannerAnthropic:
		if c.Planner.APIKey == "" {
			errs = append(errs, errors.New("Anthropic API key is missing: set planner.api_key or ANTHROPIC_API_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown planner.provider %q", c.Planner.Provider))
	}

	if c.Push.Enabled && c.Push.Workers <= 0 {
		errs = append(errs, errors.New("push.workers must be positive"))
	}
	return errors.Join(errs...)
}
