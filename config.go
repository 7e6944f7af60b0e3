package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "cloudocs.yaml"

type Config struct {
	Addr             string        `yaml:"addr"`
	SnapshotInterval string        `yaml:"snapshot_interval"`
	SnapshotGC       bool          `yaml:"snapshot_gc"`
	Redis            RedisConfig   `yaml:"redis"`
	Logging          LoggingConfig `yaml:"logging"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func DefaultConfig() *Config {
	return &Config{
		Addr:             "0.0.0.0:8080",
		SnapshotInterval: "30s",
		SnapshotGC:       true,
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads a YAML file on top of the defaults. A missing file is
// not an error. Environment variables win over both.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("CLOUDOCS_ADDR"); addr != "" {
		c.Addr = addr
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		c.Redis.Password = pw
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			c.Redis.DB = n
		}
	}
	if interval := os.Getenv("CLOUDOCS_SNAPSHOT_INTERVAL"); interval != "" {
		c.SnapshotInterval = interval
	}
	if level := os.Getenv("CLOUDOCS_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// GetSnapshotInterval returns how often operation logs are folded into
// snapshots.
func (c *Config) GetSnapshotInterval() time.Duration {
	d, err := time.ParseDuration(c.SnapshotInterval)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// setupLogging configures the global zerolog logger.
func (c *Config) setupLogging() {
	level, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.Logging.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
