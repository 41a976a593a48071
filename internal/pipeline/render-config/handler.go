package renderconfig

import (
	"context"

	"nginx-config-generator/internal/common/errors"
	"nginx-config-generator/internal/common/logger"
	"nginx-config-generator/internal/models"
)

const Stage = "render"

type Handler struct {
	config   *Config
	renderer Renderer
	logger   logger.Logger
}

func NewHandler(config *Config, renderer Renderer, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		renderer: renderer,
		logger:   log.WithFields(map[string]interface{}{"stage": Stage}),
	}
}

// RenderDeclaration expands a validated declaration with the main template.
func (h *Handler) RenderDeclaration(ctx context.Context, d *models.Declaration) (string, error) {
	return h.render(ctx, h.config.MainTemplate, d)
}

// RenderConfigMap wraps previously rendered configuration text in the
// ConfigMap template.
func (h *Handler) RenderConfigMap(ctx context.Context, c ConfigMapContext) (string, error) {
	return h.render(ctx, h.config.ConfigMapTemplate, c)
}

func (h *Handler) render(ctx context.Context, templateID string, data interface{}) (string, error) {
	log := logger.FromContext(ctx, h.logger)

	out, err := h.renderer.Render(templateID, data)
	if err != nil {
		se := errors.AsStandardError(err)
		log.Warn("template rendering failed", map[string]interface{}{
			"template":  templateID,
			"errorCode": se.Code,
			"reference": se.Metadata["reference"],
			"error":     err,
		})
		return "", se
	}

	log.Debug("template rendered", map[string]interface{}{
		"template": templateID,
		"bytes":    len(out),
	})
	return out, nil
}
