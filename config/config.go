// Package config loads process configuration from the environment, after
// optionally reading .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultEnvFiles are read in order when present. Variables already set in
// the process environment win.
var DefaultEnvFiles = []string{".env", ".env.local"}

type SchedulerOptions struct {
	Enabled bool   `env:"PAYROLL_SCHEDULER_ENABLED" envDefault:"false"`
	Spec    string `env:"PAYROLL_SCHEDULER_SPEC" envDefault:"0 2 1 * *"`
}

type Config struct {
	Port        int      `env:"PAYROLL_PORT" envDefault:"8080"`
	DBPath      string   `env:"PAYROLL_DB_PATH" envDefault:"payroll.db"`
	LogLevel    string   `env:"PAYROLL_LOG_LEVEL" envDefault:"info"`
	LogDev      bool     `env:"PAYROLL_LOG_DEV" envDefault:"false"`
	SeedFile    string   `env:"PAYROLL_SEED_FILE"`
	CORSOrigins []string `env:"PAYROLL_CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	Scheduler   SchedulerOptions
}

// LoadEnv loads the env files that exist and returns how many were read.
func LoadEnv(files []string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads DefaultEnvFiles and parses the environment.
func Load() (*Config, error) {
	return LoadFrom(DefaultEnvFiles)
}

func LoadFrom(files []string) (*Config, error) {
	if _, err := LoadEnv(files); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}
	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PAYROLL_PORT out of range: %d", c.Port)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("PAYROLL_DB_PATH must not be empty")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("PAYROLL_LOG_LEVEL: %w", err)
	}
	if c.Scheduler.Enabled {
		if _, err := cron.ParseStandard(c.Scheduler.Spec); err != nil {
			return fmt.Errorf("PAYROLL_SCHEDULER_SPEC: %w", err)
		}
	}
	return nil
}

func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }

// Logger builds the process logger: JSON in production, console in dev.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.LogDev {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
