// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full process configuration. Every field has a workable
// default so a bare process starts locally; real deployments override
// the secrets.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `env:"TRACKDOWN_ADDR" envDefault:":4000"`
	// DBPath locates the sqlite counter database.
	DBPath string `env:"TRACKDOWN_DB_PATH" envDefault:"trackdown.db"`
	// JWTSecret signs participant credentials.
	JWTSecret string `env:"TRACKDOWN_JWT_SECRET" envDefault:"dev-secret-change-me"`
	// TokenTTL bounds participant credential validity.
	TokenTTL time.Duration `env:"TRACKDOWN_TOKEN_TTL" envDefault:"24h"`

	// SpotifyClientID and SpotifyClientSecret authenticate the catalog
	// client-credentials flow.
	SpotifyClientID     string `env:"TRACKDOWN_SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `env:"TRACKDOWN_SPOTIFY_CLIENT_SECRET"`

	// Session timing. Overridable mainly for tests and tuning.
	ReadyTimeout       time.Duration `env:"TRACKDOWN_READY_TIMEOUT" envDefault:"30s"`
	PostRoundWait      time.Duration `env:"TRACKDOWN_POST_ROUND_WAIT" envDefault:"5s"`
	RematchDelay       time.Duration `env:"TRACKDOWN_REMATCH_DELAY" envDefault:"10s"`
	MaxSessionLifetime time.Duration `env:"TRACKDOWN_MAX_SESSION_LIFETIME" envDefault:"1h"`
	EmptySessionGrace  time.Duration `env:"TRACKDOWN_EMPTY_SESSION_GRACE" envDefault:"5m"`
}

// Load parses the configuration from the environment.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
