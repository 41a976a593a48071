package dispatchoutput

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"nginx-config-generator/internal/common/errors"
	commonhttp "nginx-config-generator/internal/common/http"
	"nginx-config-generator/internal/common/logger"
	"nginx-config-generator/internal/common/metrics"
)

type ServiceDependencies struct {
	Logger logger.Logger
	// Doer overrides the outbound transport. Nil uses net/http with the
	// configured timeout.
	Doer commonhttp.Doer
}

// Service encodes rendered configuration and performs http deliveries.
type Service struct {
	config *Config
	logger logger.Logger
	client *commonhttp.Client
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	client := commonhttp.NewClient(config.Timeout, config.UserAgent)
	if deps.Doer != nil {
		client = commonhttp.NewClientWithDoer(deps.Doer, config.UserAgent)
	}
	client.SetMaxResponseBytes(config.MaxResponseBytes)
	return &Service{
		config: config,
		logger: deps.Logger,
		client: client,
	}
}

// Encode wraps the base64 form of rendered in the json channel envelope.
func (s *Service) Encode(rendered string) ([]byte, error) {
	return json.Marshal(Envelope{
		NginxConfig: base64.StdEncoding.EncodeToString([]byte(rendered)),
	})
}

// Deliver POSTs payload to url and returns the downstream response as the
// pipeline response. Only a transport failure is an error: any status the
// destination answers with is forwarded.
//
// The call is detached from ctx cancellation so a caller that goes away
// does not abort a delivery already under way; it is bounded by the
// configured timeout instead.
func (s *Service) Deliver(ctx context.Context, url string, payload []byte) (*Response, error) {
	log := logger.FromContext(ctx, s.logger)

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.Timeout)
	defer cancel()

	result, err := s.client.PostJSON(callCtx, url, payload)
	if err != nil {
		log.Warn("delivery failed", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
		return nil, errors.NewDeliveryFailedError(url, err)
	}

	metrics.DeliveryResponses.WithLabelValues(metrics.StatusClass(result.StatusCode)).Inc()
	log.Info("delivery completed", map[string]interface{}{
		"url":        url,
		"statusCode": result.StatusCode,
		"bytes":      len(result.Body),
	})

	header := forwardedHeader(result.Header)
	contentType := header.Get("Content-Type")
	header.Del("Content-Type")

	return &Response{
		StatusCode:  result.StatusCode,
		ContentType: contentType,
		Header:      header,
		Body:        result.Body,
	}, nil
}

func forwardedHeader(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		out = http.Header{}
	}
	// Headers named by Connection are hop-by-hop as well.
	for _, v := range out.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out.Del(name)
			}
		}
	}
	for _, name := range droppedHeaders {
		out.Del(name)
	}
	return out
}
