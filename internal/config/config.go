// Package config loads the runtime configuration of the sheet command
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Raniani-lab/enterpriise-sub000/packages/history"
	"github.com/Raniani-lab/enterpriise-sub000/packages/model"
)

// Config is the content of the YAML configuration file
type Config struct {
	HistoryMaxSteps   int           `yaml:"history_max_steps"`
	SchedulerInterval time.Duration `yaml:"scheduler_interval"`
	LogLevel          string        `yaml:"log_level"`
	Mode              string        `yaml:"mode"`
	Redis             RedisConfig   `yaml:"redis"`
	HTTP              HTTPConfig    `yaml:"http"`
}

// RedisConfig locates the workbook store. an empty Addr selects the in
// memory store.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		HistoryMaxSteps:   history.DefaultMaxSteps,
		SchedulerInterval: model.DefaultSchedulerInterval,
		LogLevel:          "info",
		Mode:              string(model.ModeNormal),
		HTTP:              HTTPConfig{Addr: ":8080"},
	}
}

// Load reads a YAML file over the defaults. a missing path returns the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects values the model cannot run with
func (c Config) Validate() error {
	if c.HistoryMaxSteps <= 0 {
		return fmt.Errorf("history_max_steps must be positive, got %d", c.HistoryMaxSteps)
	}
	if c.SchedulerInterval < 0 {
		return fmt.Errorf("scheduler_interval must not be negative, got %s", c.SchedulerInterval)
	}
	switch model.Mode(c.Mode) {
	case model.ModeNormal, model.ModeHeadless:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	return nil
}

// ModelOptions translates the configuration into model options
func (c Config) ModelOptions() []model.Option {
	return []model.Option{
		model.WithHistoryLimit(c.HistoryMaxSteps),
		model.WithSchedulerInterval(c.SchedulerInterval),
		model.WithMode(model.Mode(c.Mode)),
	}
}
