package command

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pixil98/go-errors"
)

type Config struct {
	StatusInterval string          `json:"status_interval" env:"BLOCKDEMO_STATUS_INTERVAL"`
	Listener       ListenerConfig  `json:"listener" envPrefix:"BLOCKDEMO_LISTENER_"`
	Nats           NatsConfig      `json:"nats" envPrefix:"BLOCKDEMO_NATS_"`
	Journal        JournalConfig   `json:"journal" envPrefix:"BLOCKDEMO_JOURNAL_"`
	Telemetry      TelemetryConfig `json:"telemetry" envPrefix:"BLOCKDEMO_OTEL_"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if c.StatusInterval != "" {
		d, err := time.ParseDuration(c.StatusInterval)
		if err != nil {
			el.Add(fmt.Errorf("parsing status_interval: %w", err))
		} else if d < time.Second {
			el.Add(fmt.Errorf("status_interval must be at least 1 second"))
		}
	}

	el.Add(c.Listener.validate())
	el.Add(c.Nats.validate())
	el.Add(c.Journal.validate())

	return el.Err()
}

// applyEnv overrides file settings with any BLOCKDEMO_* environment variables and
// validates the result.
func (c *Config) applyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	return c.Validate()
}

func (c *Config) statusInterval() time.Duration {
	if c.StatusInterval == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.StatusInterval)
	return d
}
