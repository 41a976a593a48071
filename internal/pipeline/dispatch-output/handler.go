package dispatchoutput

import (
	"context"
	"fmt"
	"net/http"

	"nginx-config-generator/internal/common/errors"
	commonhttp "nginx-config-generator/internal/common/http"
	"nginx-config-generator/internal/common/logger"
	"nginx-config-generator/internal/models"
	renderconfig "nginx-config-generator/internal/pipeline/render-config"
)

const Stage = "dispatch"

// ConfigMapRenderer wraps rendered configuration in a ConfigMap manifest.
type ConfigMapRenderer interface {
	RenderConfigMap(ctx context.Context, c renderconfig.ConfigMapContext) (string, error)
}

type Handler struct {
	config     *Config
	logger     logger.Logger
	service    *Service
	configMaps ConfigMapRenderer
}

type HandlerOptions struct {
	Config     *Config
	ConfigMaps ConfigMapRenderer
	Logger     logger.Logger
	Doer       commonhttp.Doer
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for dispatch-output: %w", err)
	}
	if opts.ConfigMaps == nil {
		return nil, fmt.Errorf("dispatch-output needs a ConfigMap renderer")
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"stage": Stage})

	return &Handler{
		config:     cfg,
		logger:     log,
		service:    NewService(ServiceDependencies{Logger: log, Doer: opts.Doer}, cfg),
		configMaps: opts.ConfigMaps,
	}, nil
}

// Execute encodes rendered for the channel named by output.Type and, for the
// http channel, delivers it. Channel names are matched case-insensitively.
func (h *Handler) Execute(ctx context.Context, rendered string, output models.Output) (*Response, error) {
	channel, ok := output.Channel()
	if !ok {
		return nil, errors.NewUnknownChannelError(channel.String())
	}

	switch channel {
	case models.OutputPlaintext:
		return &Response{
			StatusCode:  http.StatusOK,
			ContentType: ContentTypeText,
			Body:        []byte(rendered),
		}, nil

	case models.OutputJSON:
		body, err := h.service.Encode(rendered)
		if err != nil {
			return nil, errors.NewInternalError(err)
		}
		return &Response{StatusCode: http.StatusOK, ContentType: ContentTypeJSON, Body: body}, nil

	case models.OutputHTTP:
		if output.HTTP == nil || output.HTTP.URL == "" {
			return nil, missingParameter("output.http.url")
		}
		body, err := h.service.Encode(rendered)
		if err != nil {
			return nil, errors.NewInternalError(err)
		}
		return h.service.Deliver(ctx, output.HTTP.URL, body)

	case models.OutputConfigMap:
		cm := output.ConfigMap
		if cm == nil || cm.Name == "" || cm.Filename == "" {
			return nil, missingParameter("output.configmap")
		}
		manifest, err := h.configMaps.RenderConfigMap(ctx, renderconfig.ConfigMapContext{
			Name:        cm.Name,
			Filename:    cm.Filename,
			Namespace:   cm.Namespace,
			NginxConfig: rendered,
		})
		if err != nil {
			return nil, err
		}
		return &Response{StatusCode: http.StatusOK, ContentType: ContentTypeYAML, Body: []byte(manifest)}, nil
	}

	return nil, errors.NewUnknownChannelError(channel.String())
}

// missingParameter covers callers that dispatch without validating first.
func missingParameter(field string) error {
	return errors.NewValidationFailedError([]errors.Violation{{
		Field:   field,
		Message: field + " is required",
		Code:    "required",
	}})
}
