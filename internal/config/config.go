package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	DBSource        string        `env:"DB_SOURCE" env-required:"true"`
	Port            string        `env:"SERVER_PORT" env-default:"8080"`
	Env             string        `env:"ENVIRONMENT" env-default:"development"`
	MigrationsPath  string        `env:"MIGRATIONS_PATH" env-default:"migrations"`
	ProcessingDelay time.Duration `env:"PROCESSING_DELAY" env-default:"2s"`
	KafkaBrokers    string        `env:"KAFKA_BROKERS" env-default:""`
	KafkaTopic      string        `env:"KAFKA_TOPIC" env-default:"payment-events"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment config: %w", err)
	}
	return &cfg, nil
}
