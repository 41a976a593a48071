// internal/pipeline/dispatch-output/config.go
package dispatchoutput

import (
	"fmt"
	"time"

	"nginx-config-generator/internal/common/config"
)

type Config struct {
	// Timeout bounds the outbound call of the http channel.
	Timeout   time.Duration
	UserAgent string
	// MaxResponseBytes bounds the downstream body forwarded to the caller.
	MaxResponseBytes int64
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:          10 * time.Second,
		UserAgent:        "nginx-config-generator",
		MaxResponseBytes: 1 << 20,
	}
}

func NewConfig(cfg *config.Config) *Config {
	c := DefaultConfig()
	if cfg.Delivery.Timeout > 0 {
		c.Timeout = config.GetDuration(cfg.Delivery.Timeout)
	}
	if cfg.Delivery.UserAgent != "" {
		c.UserAgent = cfg.Delivery.UserAgent
	}
	if cfg.Delivery.MaxResponseBytes > 0 {
		c.MaxResponseBytes = cfg.Delivery.MaxResponseBytes
	}
	return c
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("delivery timeout must be positive")
	}
	if c.MaxResponseBytes <= 0 {
		return fmt.Errorf("delivery max response bytes must be positive")
	}
	return nil
}
