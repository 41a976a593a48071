// internal/models/output.go
package models

import "strings"

// OutputType is the delivery channel selected by output.type.
type OutputType string

const (
	OutputPlaintext OutputType = "plaintext"
	OutputJSON      OutputType = "json"
	OutputHTTP      OutputType = "http"
	OutputConfigMap OutputType = "configmap"
)

// OutputTypes lists every supported channel.
var OutputTypes = []OutputType{OutputPlaintext, OutputJSON, OutputHTTP, OutputConfigMap}

// ParseOutputType lower-cases s and reports whether it names a known channel.
// The lower-cased value is returned either way so callers can report it.
func ParseOutputType(s string) (OutputType, bool) {
	t := OutputType(strings.ToLower(s))
	for _, known := range OutputTypes {
		if t == known {
			return t, true
		}
	}
	return t, false
}

func (t OutputType) String() string { return string(t) }

// Output selects and parameterizes the delivery channel.
type Output struct {
	Type      string           `json:"type"`
	HTTP      *HTTPOutput      `json:"http,omitempty"`
	ConfigMap *ConfigMapOutput `json:"configmap,omitempty"`
}

// Channel is ParseOutputType applied to o.Type.
func (o Output) Channel() (OutputType, bool) {
	return ParseOutputType(o.Type)
}

// HTTPOutput parameterizes the http channel.
type HTTPOutput struct {
	URL string `json:"url"`
}

// ConfigMapOutput parameterizes the configmap channel.
type ConfigMapOutput struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	Namespace string `json:"namespace,omitempty"`
}
