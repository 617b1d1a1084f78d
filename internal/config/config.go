package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joelkehle/emspark/internal/queryparse"
)

// Config is the on-disk configuration shape (YAML). Every field has an
// EMSPARK_* environment override so containerized deployments can skip the
// file entirely.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Assistant AssistantConfig `yaml:"assistant"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AssistantConfig struct {
	Name        string `yaml:"name"`
	DefaultStat string `yaml:"default_stat"`
}

type TracingConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

func Default() *Config {
	return &Config{
		Server:    ServerConfig{Addr: ":8085"},
		Database:  DatabaseConfig{Path: "emspark.db"},
		Assistant: AssistantConfig{Name: "EM-SPARK", DefaultStat: string(queryparse.StatTWAP)},
	}
}

// Load reads the YAML file at path (missing file is fine, defaults apply),
// layers environment overrides on top and validates the result.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// defaults only
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(raw, c); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	overrideString(&c.Server.Addr, "EMSPARK_ADDR")
	overrideString(&c.Database.Path, "EMSPARK_DB_PATH")
	overrideString(&c.Assistant.Name, "EMSPARK_ASSISTANT_NAME")
	overrideString(&c.Assistant.DefaultStat, "EMSPARK_DEFAULT_STAT")
	overrideString(&c.Tracing.OTLPEndpoint, "EMSPARK_OTLP_ENDPOINT")
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if !queryparse.ValidStatistic(queryparse.Statistic(c.Assistant.DefaultStat)) {
		return fmt.Errorf("assistant.default_stat %q is not one of twap, vwap, list, daily_avg", c.Assistant.DefaultStat)
	}
	return nil
}
