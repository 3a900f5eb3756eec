package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/go-blockdemo/internal/listener"
)

const defaultPath = "/ws"

type ListenerConfig struct {
	Addr         string `json:"addr" env:"ADDR"`
	Path         string `json:"path" env:"PATH"`
	MaxStrikes   int    `json:"max_strikes" env:"MAX_STRIKES"`
	QueueSize    int    `json:"queue_size" env:"QUEUE_SIZE"`
	ReadTimeout  string `json:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout string `json:"write_timeout" env:"WRITE_TIMEOUT"`
}

func (c *ListenerConfig) validate() error {
	el := errors.NewErrorList()

	if c.Addr == "" {
		el.Add(fmt.Errorf("listener addr is required"))
	}
	if c.Path != "" && !strings.HasPrefix(c.Path, "/") {
		el.Add(fmt.Errorf("listener path must start with /"))
	}
	if c.MaxStrikes < 0 {
		el.Add(fmt.Errorf("max_strikes must not be negative"))
	}
	if c.QueueSize < 0 {
		el.Add(fmt.Errorf("queue_size must not be negative"))
	}
	for name, v := range map[string]string{"read_timeout": c.ReadTimeout, "write_timeout": c.WriteTimeout} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			el.Add(fmt.Errorf("parsing %s: %w", name, err))
		}
	}

	return el.Err()
}

func (c *ListenerConfig) buildConnectionManager(bus listener.Subscriber) *listener.ConnectionManager {
	var opts []listener.ConnectionManagerOpt
	if c.MaxStrikes > 0 {
		opts = append(opts, listener.WithMaxStrikes(c.MaxStrikes))
	}
	if c.QueueSize > 0 {
		opts = append(opts, listener.WithQueueSize(c.QueueSize))
	}
	return listener.NewConnectionManager(bus, opts...)
}

func (c *ListenerConfig) buildListener(cm *listener.ConnectionManager, ready <-chan struct{}) (*listener.WebSocketListener, error) {
	opts := []listener.WebSocketListenerOpt{listener.WithReady(ready)}
	if c.ReadTimeout != "" {
		d, err := time.ParseDuration(c.ReadTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing read_timeout: %w", err)
		}
		opts = append(opts, listener.WithReadTimeout(d))
	}
	if c.WriteTimeout != "" {
		d, err := time.ParseDuration(c.WriteTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing write_timeout: %w", err)
		}
		opts = append(opts, listener.WithWriteTimeout(d))
	}

	path := c.Path
	if path == "" {
		path = defaultPath
	}
	return listener.NewWebSocketListener(c.Addr, path, cm, opts...), nil
}
