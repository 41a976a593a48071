// internal/common/errors/handler.go
package errors

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
)

// HeaderErrorCode carries the error code on every error response so callers and
// access logs can tell render failures from delivery failures.
const HeaderErrorCode = "X-Error-Code"

// Handler turns pipeline errors into HTTP error responses.
type Handler struct {
	logger Logger
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *Handler {
	return &Handler{logger: logger}
}

// verdictBody mirrors a rejected validation verdict.
type verdictBody struct {
	Valid bool        `json:"valid"`
	Error []Violation `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

type failureBody struct {
	Message   string                 `json:"message"`
	ErrorCode ErrorCode              `json:"error_code"`
	Details   string                 `json:"details,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ResponseBody returns the status code and JSON body for err.
func ResponseBody(stdErr *StandardError) (int, []byte) {
	var body interface{}
	switch stdErr.Code {
	case ErrCodeValidationFailed, ErrCodeInvalidRequestBody:
		violations := Violations(stdErr)
		if violations == nil {
			violations = []Violation{}
		}
		body = verdictBody{Valid: false, Error: violations}
	case ErrCodeUnknownChannel:
		body = messageBody{Message: stdErr.Message}
	default:
		body = failureBody{
			Message:   stdErr.Message,
			ErrorCode: stdErr.Code,
			Details:   stdErr.Details,
			Metadata:  stdErr.Metadata,
		}
	}

	data, err := json.Marshal(body)
	if err != nil {
		data, _ = json.Marshal(messageBody{Message: stdErr.Message})
	}
	return HTTPStatus(stdErr.Code), data
}

// HandleRequestError writes the error response for err and logs it.
func (h *Handler) HandleRequestError(c *gin.Context, err error) {
	stdErr := AsStandardError(err)
	h.logError(c, stdErr)

	status, body := ResponseBody(stdErr)
	c.Header(HeaderErrorCode, string(stdErr.Code))
	c.Data(status, "application/json", body)
}

func (h *Handler) logError(c *gin.Context, stdErr *StandardError) {
	fields := map[string]interface{}{
		"errorCode":     string(stdErr.Code),
		"errorCategory": GetErrorCategory(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"path":          c.FullPath(),
	}
	for k, v := range stdErr.Metadata {
		if k == "violations" {
			fields["violationCount"] = len(Violations(stdErr))
			continue
		}
		fields[k] = v
	}

	if IsClientError(stdErr.Code) {
		h.logger.Warn("request rejected", fields)
		return
	}
	h.logger.Error("request failed", fields)
}
