package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// UserConfig carries the credentials and identities used to create subscriptions.
type UserConfig struct {
	ClientID      string `env:"TWITCH_CLIENT_ID"`
	UserToken     string `env:"TWITCH_TOKEN"`
	BroadcasterID string `env:"BROADCASTER_ID"`
	UserID        string `env:"USER_ID"`

	EventSubURL string `env:"EVENTSUB_URL" default:"wss://eventsub.wss.twitch.tv/ws"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`
	MetricsAddr string `env:"METRICS_ADDR"`
}

// Load reads an optional .env file, then the process environment, into a UserConfig.
func Load(filenames ...string) (*UserConfig, error) {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load(filenames...)

	var cfg UserConfig
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports every required variable that is empty.
func (c *UserConfig) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"TWITCH_CLIENT_ID", c.ClientID},
		{"TWITCH_TOKEN", c.UserToken},
		{"BROADCASTER_ID", c.BroadcasterID},
		{"USER_ID", c.UserID},
	}

	var errs []error

	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.name))
		}
	}

	return errors.Join(errs...)
}

// WithBroadcasterID returns a copy of the config targeting another broadcaster.
func (c UserConfig) WithBroadcasterID(id string) UserConfig {
	c.BroadcasterID = id

	return c
}
