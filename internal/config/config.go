package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr  string     `env:"HTTP_ADDR" envDefault:":8080"`
	DataDir   string     `env:"DATA_DIR" envDefault:"data"`
	StaticDir string     `env:"STATIC_DIR" envDefault:"static"`
	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// BaseURL overrides the request-derived link base in the creation
	// response, for deployments behind a proxy.
	BaseURL string `env:"BASE_URL"`

	// Match creation quota per caller.
	CreateLimit  int           `env:"CREATE_LIMIT" envDefault:"20"`
	CreateWindow time.Duration `env:"CREATE_WINDOW" envDefault:"1h"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
