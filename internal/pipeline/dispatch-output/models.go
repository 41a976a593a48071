// internal/pipeline/dispatch-output/models.go
package dispatchoutput

import "net/http"

const (
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeJSON = "application/json"
	ContentTypeYAML = "application/x-yaml"
)

// Response is the final result returned to the caller of the pipeline.
type Response struct {
	StatusCode  int
	ContentType string
	// Header carries extra response headers. Only the http channel sets it.
	Header http.Header
	Body   []byte
}

// Envelope is the body of the json channel and the payload of the http
// channel.
type Envelope struct {
	NginxConfig string `json:"nginx_config"`
}

// droppedHeaders are downstream headers the http channel does not forward:
// ones the front end sets itself, the request id it assigns, and the
// hop-by-hop headers of RFC 7230 section 6.1.
var droppedHeaders = []string{
	"Content-Length", "Server", "Date",
	"X-Request-Id",
	"Connection", "Keep-Alive", "Proxy-Connection", "Proxy-Authenticate",
	"Proxy-Authorization", "Te", "Trailer", "Transfer-Encoding", "Upgrade",
}
