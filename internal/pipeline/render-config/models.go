// internal/pipeline/render-config/models.go
package renderconfig

// ConfigMapContext is the data the ConfigMap template wraps.
type ConfigMapContext struct {
	Name        string
	Filename    string
	Namespace   string
	NginxConfig string
}
