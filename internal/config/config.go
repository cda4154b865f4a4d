package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/kursadbilgin/textqueue/internal/phone"
)

type Config struct {
	FromNumber          string `env:"DIALPAD_FROM_NUMBER,required=true"`
	CountryCode         string `env:"COUNTRY_CODE,required=true"`
	TestNumber          string `env:"TEST_NUMBER"`
	MagicTestNumber     string `env:"MAGIC_TEST_NUMBER,default=11123123123"`
	DatabaseDSN         string `env:"DATABASE_DSN"`
	RabbitMQURL         string `env:"RABBITMQ_URL"`
	RedisURL            string `env:"REDIS_URL"`
	ImportGuardTTLHours int    `env:"IMPORT_GUARD_TTL_HOURS,default=144"`
	PublishTimeoutSecs  int    `env:"PUBLISH_TIMEOUT_SECONDS,default=30"`
	LogLevel            string `env:"LOG_LEVEL,default=info"`
	LogFormat           string `env:"LOG_FORMAT,default=json"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.CountryCode = strings.TrimSpace(cfg.CountryCode)
	cfg.FromNumber = strings.TrimSpace(cfg.FromNumber)
	if cfg.CountryCode == "" {
		return nil, errors.New("COUNTRY_CODE must not be empty")
	}
	if cfg.FromNumber == "" {
		return nil, errors.New("DIALPAD_FROM_NUMBER must not be empty")
	}
	if cfg.ImportGuardTTLHours <= 0 {
		return nil, fmt.Errorf("IMPORT_GUARD_TTL_HOURS must be > 0")
	}
	if cfg.PublishTimeoutSecs <= 0 {
		return nil, fmt.Errorf("PUBLISH_TIMEOUT_SECONDS must be > 0")
	}

	return &cfg, nil
}

// ValidateForSubmit checks the settings needed to store a batch.
func (c *Config) ValidateForSubmit() error {
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		return errors.New("DATABASE_DSN is required unless running with --dry-run")
	}
	return nil
}

func (c *Config) PhoneConfig() phone.Config {
	return phone.Config{
		CountryCode:     c.CountryCode,
		MagicTestNumber: strings.TrimSpace(c.MagicTestNumber),
		TestNumber:      strings.TrimSpace(c.TestNumber),
	}
}

func (c *Config) ImportGuardTTL() time.Duration {
	return time.Duration(c.ImportGuardTTLHours) * time.Hour
}

// PublishTimeout bounds the whole announcement phase of a run.
func (c *Config) PublishTimeout() time.Duration {
	return time.Duration(c.PublishTimeoutSecs) * time.Second
}
