// Package config loads service configuration from ENMASSE_* environment
// variables. The bearer-token secret is read separately by the auth
// package (ENMASSE_AUTH_SECRET).
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "enmasse"

// Config holds everything cmd/api needs to start.
type Config struct {
	Addr  string `default:":8080"`
	PGDSN string `envconfig:"PG_DSN"`

	RateLimitPerSec int   `split_words:"true" default:"50"`
	RateLimitBurst  int   `split_words:"true" default:"100"`
	MaxBodyBytes    int64 `split_words:"true" default:"1048576"`

	ReadTimeout     time.Duration `split_words:"true" default:"15s"`
	WriteTimeout    time.Duration `split_words:"true" default:"15s"`
	IdleTimeout     time.Duration `split_words:"true" default:"60s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
}

// Load populates Config from the environment.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process(envPrefix, &c); err != nil {
		return Config{}, err
	}
	return c, nil
}
