// internal/pipeline/generate-config/models.go
package generateconfig

import "strings"

// State is a step of the per-request pipeline. Received, Validated and
// Rendered are intermediate; the rest are terminal.
type State string

const (
	StateReceived       State = "Received"
	StateValidating     State = "Validating"
	StateRejected       State = "Rejected"
	StateValidated      State = "Validated"
	StateRendering      State = "Rendering"
	StateRenderFailed   State = "RenderFailed"
	StateRendered       State = "Rendered"
	StateDispatching    State = "Dispatching"
	StateDelivered      State = "Delivered"
	StateDispatchFailed State = "DispatchFailed"
)

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	switch s {
	case StateRejected, StateRenderFailed, StateDelivered, StateDispatchFailed:
		return true
	}
	return false
}

// Outcome is the metric label for a terminal state, e.g. "render_failed".
func (s State) Outcome() string {
	var b strings.Builder
	for i, r := range string(s) {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
