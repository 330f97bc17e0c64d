// Package config loads the service configuration from environment variables.
// There is no runtime reconfiguration: everything is parsed and validated
// once at startup.
package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config is the full service configuration.
type Config struct {
	Server   Server
	Security Security
	Redis    Redis
	Postgres Postgres
	Google   Google
	Mail     Mail
	Cors     Cors
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "[Load] env.Parse")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if err := c.Security.Validate(); err != nil {
		return err
	}
	if c.Postgres.DSN == "" {
		return errors.New("[Config.Validate] POSTGRES_DSN is required")
	}
	return nil
}
