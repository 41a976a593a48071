// internal/pipeline/validate-declaration/models.go
package validatedeclaration

import (
	"nginx-config-generator/internal/common/errors"
	"nginx-config-generator/internal/models"
)

// Verdict is the accept/reject result of validating one document.
type Verdict struct {
	Valid  bool               `json:"valid"`
	Errors []errors.Violation `json:"error,omitempty"`

	// Request is the decoded document, set only when Valid.
	Request *models.ConfigRequest `json:"-"`
}

func accepted(req *models.ConfigRequest) *Verdict {
	return &Verdict{Valid: true, Request: req}
}

func rejected(violations []errors.Violation) *Verdict {
	return &Verdict{Valid: false, Errors: violations}
}

// Err returns the VALIDATION_FAILED error for a rejected verdict, or nil.
func (v *Verdict) Err() error {
	if v.Valid {
		return nil
	}
	return errors.NewValidationFailedError(v.Errors)
}
