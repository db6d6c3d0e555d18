// Package config loads server settings from the environment, with an
// optional .env file in development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr string `env:"ADDR" envDefault:":8080"`
	Env  string `env:"APP_ENV" envDefault:"production"`

	// DATABASE_URL enables postgres snapshot persistence when set.
	DatabaseURL string `env:"DATABASE_URL"`

	// Token lists for the static authorizer. Agent specs are
	// token:user:match, viewer and admin specs are token:user.
	AgentTokens  []string `env:"AGENT_TOKENS" envSeparator:","`
	ViewerTokens []string `env:"VIEWER_TOKENS" envSeparator:","`
	AdminTokens  []string `env:"ADMIN_TOKENS" envSeparator:","`

	WriteTimeout    time.Duration `env:"WS_WRITE_TIMEOUT" envDefault:"3s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

func Load() (Config, error) {
	_ = godotenv.Load() // .env is optional

	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return c, nil
}

func (c Config) Development() bool { return c.Env == "development" }
