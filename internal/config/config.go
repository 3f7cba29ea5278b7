// Package config содержит логику чтения конфигурации сервиса проверки ИНН.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress    = "localhost:8080"
	defaultFlushInterval = time.Second
)

// Config содержит параметры конфигурации сервиса проверки ИНН.
type Config struct {
	RunAddress           string        `env:"RUN_ADDRESS"`
	DatabaseURI          string        `env:"DATABASE_URI"`
	JournalFlushInterval time.Duration `env:"JOURNAL_FLUSH_INTERVAL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envFlushInterval := cfg.JournalFlushInterval

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI for the check journal")
	flag.DurationVar(&cfg.JournalFlushInterval, "f", defaultFlushInterval, "check journal flush interval")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envFlushInterval != 0 {
		cfg.JournalFlushInterval = envFlushInterval
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.JournalFlushInterval <= 0 {
		return nil, fmt.Errorf("journal flush interval must be positive, got %s", cfg.JournalFlushInterval)
	}

	return cfg, nil
}
