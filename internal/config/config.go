package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

type Env string

const (
	EnvProd Env = "prod"
	EnvDev  Env = "dev"
)

func (e Env) IsValid() bool {
	switch e {
	case EnvProd, EnvDev:
		return true
	}
	return false
}

type Config struct {
	Host           string        `env:"HOST" envDefault:"0.0.0.0"`
	Port           string        `env:"PORT" envDefault:"8080"`
	StaticIndex    string        `env:"STATIC_INDEX" envDefault:"./index.html"`
	OriginPatterns []string      `env:"ORIGIN_PATTERNS" envSeparator:","`
	ReadLimit      int64         `env:"READ_LIMIT" envDefault:"32768"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT" envDefault:"0s"`

	// Redis is optional: presence and announcements are off when RedisHost is empty.
	RedisHost            string `env:"REDIS_HOST"`
	RedisPort            string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPresenceKey     string `env:"REDIS_PRESENCE_KEY" envDefault:"chat:presence"`
	RedisAnnounceChannel string `env:"REDIS_ANNOUNCE_CHANNEL" envDefault:"chat:announce"`
	AnnouncerID          string `env:"ANNOUNCER_ID" envDefault:"server"`
	// InstanceID scopes this process's presence set; defaults to the hostname.
	InstanceID           string `env:"INSTANCE_ID"`

	Env Env `env:"ENV" envDefault:"prod"`
}

func New() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.InstanceID == "" {
		if cfg.InstanceID, err = os.Hostname(); err != nil {
			return nil, fmt.Errorf("failed to resolve instance id: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	if !c.Env.IsValid() {
		return errors.New("invalid env variable (must be 'prod' or 'dev')")
	}
	if c.Port == "" {
		return errors.New("PORT must not be empty")
	}
	if c.ReadLimit <= 0 {
		return fmt.Errorf("READ_LIMIT must be positive, got %d", c.ReadLimit)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("IDLE_TIMEOUT must not be negative, got %s", c.IdleTimeout)
	}
	if c.RedisEnabled() && c.AnnouncerID == "" {
		return errors.New("ANNOUNCER_ID must not be empty when redis is enabled")
	}
	if c.RedisEnabled() && c.InstanceID == "" {
		return errors.New("INSTANCE_ID must not be empty when redis is enabled")
	}
	return nil
}

// PresenceKey is the redis set holding the identities connected to this
// instance. Each instance owns its own set.
func (c Config) PresenceKey() string {
	return c.RedisPresenceKey + ":" + c.InstanceID
}

func (c Config) RedisEnabled() bool {
	return c.RedisHost != ""
}
