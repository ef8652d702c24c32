package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            string        `yaml:"port"`
		BaseURL         string        `yaml:"base_url"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Store struct {
		Driver      string `yaml:"driver"`
		DatabaseURL string `yaml:"database_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"store"`

	Links struct {
		ClickTimeout   time.Duration `yaml:"click_timeout"`
		InsertAttempts int           `yaml:"insert_attempts"`
	} `yaml:"links"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = "8080"
	cfg.Server.ReadTimeout = 5 * time.Second
	cfg.Server.WriteTimeout = 10 * time.Second
	cfg.Server.ShutdownTimeout = 10 * time.Second
	cfg.Store.Driver = "memory"
	cfg.Links.ClickTimeout = 5 * time.Second
	cfg.Links.InsertAttempts = 3
	cfg.Log.Level = "info"
	return cfg
}

// Load builds the configuration from, in increasing priority: built-in
// defaults, the YAML file named by CONFIG_FILE, and environment variables
// (a .env file in the working directory is loaded into the environment
// first if present).
func Load() (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.BaseURL = getEnv("BASE_URL", c.Server.BaseURL)
	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Store.DatabaseURL = getEnv("DATABASE_URL", c.Store.DatabaseURL)
	c.Store.RedisURL = getEnv("REDIS_URL", c.Store.RedisURL)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)

	var err error
	if c.Links.ClickTimeout, err = getDuration("CLICK_TIMEOUT", c.Links.ClickTimeout); err != nil {
		return err
	}
	if c.Server.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout); err != nil {
		return err
	}
	return nil
}

func (c *Config) Validate() error {
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	switch c.Store.Driver {
	case "memory":
	case "sqlite", "libsql", "postgres":
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("store driver %q needs DATABASE_URL", c.Store.Driver)
		}
	case "redis":
		if c.Store.RedisURL == "" {
			return errors.New(`store driver "redis" needs REDIS_URL`)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Links.InsertAttempts < 1 {
		return fmt.Errorf("insert_attempts must be at least 1, got %d", c.Links.InsertAttempts)
	}
	return nil
}

func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
