// internal/pipeline/validate-declaration/config.go
package validatedeclaration

import "nginx-config-generator/internal/common/config"

type Config struct {
	// CheckReferences enables the name-reference pass that runs after the
	// schema pass.
	CheckReferences bool
}

func NewConfig(cfg *config.Config) *Config {
	return &Config{CheckReferences: cfg.Validation.CheckReferences}
}
