package validation

import (
	"github.com/rendis/sagaline/pkg/saga"
)

// SagaValidator orchestrates the two-stage validation pipeline:
//  1. Structural (JSON Schema, saga.v0)
//  2. Semantic (key uniqueness, actor references, delay payload invariant)
//
// The validator fails closed: any error-severity issue aborts run creation.
type SagaValidator struct {
	jsonSchema *JSONSchemaValidator
}

// NewSagaValidator creates a SagaValidator with the saga.v0 schema pre-compiled.
func NewSagaValidator() (*SagaValidator, error) {
	jsv, err := NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &SagaValidator{jsonSchema: jsv}, nil
}

// Validate runs the full pipeline and returns an aggregated result.
// Structural errors short-circuit: the semantic stage is skipped because the
// document shape cannot be trusted. Validating an already-valid spec is
// idempotent: ParseSpec normalization happens before this and never here.
func (sv *SagaValidator) Validate(spec *saga.SagaSpec) *saga.ValidationResult {
	if spec == nil {
		r := &saga.ValidationResult{}
		r.AddError("/", saga.ErrCodeValidation, "saga spec is nil")
		return r
	}

	result := validateStructural(sv.jsonSchema, spec)
	if !result.Valid() {
		return result
	}

	result.Merge(validateSemantic(spec))
	return result
}

// ValidateSpec is the error-returning convenience form of Validate.
func (sv *SagaValidator) ValidateSpec(spec *saga.SagaSpec) error {
	return sv.Validate(spec).ToError()
}

// ParseAndValidate decodes a raw saga.v0 document and validates it in one
// call. This is the engine's single entry point for untrusted spec input.
func (sv *SagaValidator) ParseAndValidate(raw []byte) (*saga.SagaSpec, *saga.ValidationResult) {
	spec, err := saga.ParseSpec(raw)
	if err != nil {
		r := &saga.ValidationResult{}
		r.AddError("/", saga.ErrCodeValidation, err.Error())
		return nil, r
	}
	result := sv.Validate(spec)
	if !result.Valid() {
		return nil, result
	}
	return spec, result
}

// validateStructural wraps JSONSchemaValidator.ValidateSpec, converting its
// error output into a ValidationResult.
func validateStructural(v *JSONSchemaValidator, spec *saga.SagaSpec) *saga.ValidationResult {
	result := &saga.ValidationResult{}

	err := v.ValidateSpec(spec)
	if err == nil {
		return result
	}

	sagaErr, ok := err.(*saga.SagaError)
	if !ok {
		result.AddError("/", saga.ErrCodeValidation, err.Error())
		return result
	}

	if sagaErr.Details != nil {
		if violations, ok := sagaErr.Details["violations"].([]string); ok {
			for _, violation := range violations {
				result.AddError("/", saga.ErrCodeValidation, violation)
			}
			return result
		}
	}
	result.AddError("/", saga.ErrCodeValidation, sagaErr.Message)
	return result
}
