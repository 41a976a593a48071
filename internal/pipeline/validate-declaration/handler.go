package validatedeclaration

import (
	"context"
	_ "embed"
	"encoding/json"

	"nginx-config-generator/internal/common/errors"
	"nginx-config-generator/internal/common/logger"
	"nginx-config-generator/internal/common/validation"
	"nginx-config-generator/internal/models"
)

const Stage = "validate"

//go:embed declaration.schema.json
var schemaJSON []byte

var declarationSchema = validation.MustCompile(schemaJSON)

// SchemaJSON returns the declaration schema document.
func SchemaJSON() []byte {
	out := make([]byte, len(schemaJSON))
	copy(out, schemaJSON)
	return out
}

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"stage": Stage}),
	}
}

// Execute validates raw against the declaration schema and, when enabled,
// the reference rules. A rejected document is reported through the Verdict;
// the error return is reserved for a body that is not JSON at all.
func (h *Handler) Execute(ctx context.Context, raw []byte) (*Verdict, error) {
	log := logger.FromContext(ctx, h.logger)

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.NewInvalidRequestBodyError(err)
	}

	result, err := declarationSchema.Validate(doc)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if !result.Valid {
		violations := make([]errors.Violation, len(result.Errors))
		for i, e := range result.Errors {
			violations[i] = errors.Violation{Field: e.Field, Message: e.Message, Code: e.Code}
		}
		if h.config.CheckReferences {
			violations = append(violations, checkReferences(referencesOf(raw))...)
		}
		log.Debug("declaration rejected by schema", map[string]interface{}{
			"violations": len(violations),
		})
		return rejected(violations), nil
	}

	req, err := models.DecodeConfigRequest(raw)
	if err != nil {
		return rejected([]errors.Violation{{
			Field:   "(root)",
			Message: err.Error(),
			Code:    "decode_failed",
		}}), nil
	}

	if h.config.CheckReferences {
		if violations := checkReferences(&req.Declaration); len(violations) > 0 {
			log.Debug("declaration rejected by reference check", map[string]interface{}{
				"violations": len(violations),
			})
			return rejected(violations), nil
		}
	}

	return accepted(req), nil
}
