// pkg/registry/schema.go
package registry

// Output formats a template can target. The format selects the escaper
// applied to every interpolated value.
const (
	FormatNginx = "nginx"
	FormatYAML  = "yaml"
)

// TemplateRegistry is the registry.json document describing a template set.
type TemplateRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated,omitempty"`
	Templates   []Template `json:"templates"`
}

type Template struct {
	ID          string   `json:"id"`
	File        string   `json:"file"`
	Format      string   `json:"format"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}
