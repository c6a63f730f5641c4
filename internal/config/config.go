// Package config loads process settings from the environment and model
// profiles from YAML.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	GinMode        string        `env:"GIN_MODE" envDefault:"release"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	ModelsConfig   string        `env:"MODELS_CONFIG" envDefault:"configs/models.yaml"`
	EnableDB       bool          `env:"ENABLE_DB" envDefault:"false"`
	StoreDriver    string        `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	SQLitePath     string        `env:"SQLITE_PATH" envDefault:"data/predictions.db"`
	KafkaBrokers   []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic     string        `env:"KAFKA_TOPIC" envDefault:"health.predictions"`
	MaxBodyBytes   int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	MaxUploadBytes int64         `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	PDFTimeout     time.Duration `env:"PDF_TIMEOUT" envDefault:"20s"`
	ChromePath     string        `env:"CHROME_PATH"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.KafkaBrokers = compact(cfg.KafkaBrokers)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.EnableDB {
		switch c.StoreDriver {
		case DriverPostgres:
			if c.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
			}
		case DriverSQLite:
			if c.SQLitePath == "" {
				return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER=sqlite")
			}
		default:
			return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
		}
	}
	if c.MaxBodyBytes <= 0 || c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES and MAX_UPLOAD_BYTES must be positive")
	}
	if len(c.KafkaBrokers) > 0 && strings.TrimSpace(c.KafkaTopic) == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
