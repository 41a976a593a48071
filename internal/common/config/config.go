// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct. It is loaded once and
// passed explicitly to the pipeline constructors.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Templates     TemplatesConfig     `mapstructure:"templates"`
	Delivery      DeliveryConfig      `mapstructure:"delivery"`
	Validation    ValidationConfig    `mapstructure:"validation"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
}

// Address returns host:port for the listener.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// TemplatesConfig selects the template set used by the renderer.
type TemplatesConfig struct {
	// RootDir, when set, holds a registry.json and the template files it lists.
	// Empty means the embedded template set.
	RootDir   string `mapstructure:"root_dir"`
	Main      string `mapstructure:"main"`
	ConfigMap string `mapstructure:"configmap"`
}

// DeliveryConfig holds settings for the http output channel.
type DeliveryConfig struct {
	Timeout   int    `mapstructure:"timeout"` // milliseconds
	UserAgent string `mapstructure:"user_agent"`
	// MaxResponseBytes caps the downstream response body read into memory.
	MaxResponseBytes int64 `mapstructure:"max_response_bytes"`
}

type ValidationConfig struct {
	CheckReferences bool `mapstructure:"check_references"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// Default returns a configuration with every default applied, suitable for
// tests and for the offline CLI.
func Default() *Config {
	cfg := &Config{Validation: ValidationConfig{CheckReferences: true}}
	applyDefaults(cfg)
	return cfg
}
