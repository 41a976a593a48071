// internal/pipeline/render-config/config.go
package renderconfig

import (
	"fmt"

	"nginx-config-generator/internal/common/config"
)

type Config struct {
	RootDir           string
	MainTemplate      string
	ConfigMapTemplate string
}

func NewConfig(cfg *config.Config) *Config {
	return &Config{
		RootDir:           cfg.Templates.RootDir,
		MainTemplate:      cfg.Templates.Main,
		ConfigMapTemplate: cfg.Templates.ConfigMap,
	}
}

// templateSet is implemented by renderers that know their template ids.
type templateSet interface {
	Has(id string) bool
}

// CheckTemplates reports a configured template id that r does not provide,
// so a bad templates section fails at startup instead of on every request.
// Renderers that cannot list their templates are not checked.
func (c *Config) CheckTemplates(r Renderer) error {
	set, ok := r.(templateSet)
	if !ok {
		return nil
	}
	for _, id := range []string{c.MainTemplate, c.ConfigMapTemplate} {
		if !set.Has(id) {
			return fmt.Errorf("template %s is not in the template set", id)
		}
	}
	return nil
}
