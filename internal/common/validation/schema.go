package validation

import (
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

const rootField = "(root)"

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Schema is a compiled JSON schema. It is safe for concurrent use.
type Schema struct {
	schema *gojsonschema.Schema
}

// Compile loads a JSON schema document (draft-07 and earlier).
func Compile(raw []byte) (*Schema, error) {
	loader := gojsonschema.NewBytesLoader(raw)
	s, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

func MustCompile(raw []byte) *Schema {
	s, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks document against the schema and collects every violation.
// document is any value gojsonschema can load: decoded JSON, a Go map or a
// struct. Errors are sorted by field then message so repeated calls return
// identical results.
func (s *Schema) Validate(document interface{}) (*ValidationResult, error) {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return nil, fmt.Errorf("validate document: %w", err)
	}
	return fromResult(result), nil
}

func fromResult(result *gojsonschema.Result) *ValidationResult {
	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		// allOf and if/then failures also report each inner error; the
		// summary entry adds nothing.
		switch re.Type() {
		case "number_all_of", "condition_then", "condition_else":
			continue
		}
		errs = append(errs, ValidationError{
			Field:   fieldPath(re),
			Message: re.Description(),
			Code:    re.Type(),
		})
	}

	sort.SliceStable(errs, func(i, j int) bool {
		if errs[i].Field != errs[j].Field {
			return errs[i].Field < errs[j].Field
		}
		return errs[i].Message < errs[j].Message
	})

	return &ValidationResult{
		Valid:  result.Valid(),
		Errors: errs,
	}
}

// fieldPath names the offending property itself for required and
// additionalProperties errors, which gojsonschema reports against the parent.
func fieldPath(re gojsonschema.ResultError) string {
	field := re.Field()
	switch re.Type() {
	case "required", "additional_property_not_allowed":
		prop, ok := re.Details()["property"].(string)
		if !ok || prop == "" {
			return field
		}
		if field == rootField || field == "" {
			return prop
		}
		return field + "." + prop
	}
	return field
}
