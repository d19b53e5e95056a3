package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rendis/sagaline/pkg/saga"
)

// sagaSchemaJSON is the JSON Schema for saga.v0 documents.
// Embedded as a constant to avoid filesystem dependencies. Field names are the
// documented camelCase wire format; evidence kinds accept "custom_" extension
// values alongside the engine-known set. The legacy "pseudoshot" kind is
// normalized to "snapshot" by saga.ParseSpec before this schema ever sees the
// document, so it is deliberately absent here.
const sagaSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://sagaline.dev/schemas/saga.v0.json",
  "type": "object",
  "required": ["schemaVersion", "sagaKey", "actors", "phases"],
  "properties": {
    "schemaVersion": { "const": "saga.v0" },
    "sagaKey": { "type": "string", "minLength": 1 },
    "title": { "type": "string" },
    "description": { "type": "string" },
    "tags": { "type": "array", "items": { "type": "string" } },
    "defaults": {
      "type": "object",
      "properties": {
        "runMode": { "type": "string", "enum": ["dry_run", "live"] },
        "continueOnFailure": { "type": "boolean" }
      },
      "additionalProperties": false
    },
    "source": {
      "type": "object",
      "properties": {
        "system": { "type": "string" },
        "ref": { "type": "string" },
        "url": { "type": "string" }
      },
      "additionalProperties": false
    },
    "objectives": { "type": "array", "items": { "type": "string" } },
    "actors": {
      "type": "array",
      "minItems": 1,
      "items": { "$ref": "#/$defs/actor" }
    },
    "phases": {
      "type": "array",
      "minItems": 1,
      "items": { "$ref": "#/$defs/phase" }
    },
    "metadata": { "type": "object" }
  },
  "additionalProperties": false,
  "$defs": {
    "actor": {
      "type": "object",
      "required": ["actorKey"],
      "properties": {
        "actorKey": { "type": "string", "minLength": 1 },
        "name": { "type": "string" },
        "role": { "type": "string" },
        "email": { "type": "string" },
        "phone": { "type": "string" },
        "persona": { "type": "string" }
      },
      "additionalProperties": false
    },
    "phase": {
      "type": "object",
      "required": ["phaseKey", "order", "steps"],
      "properties": {
        "phaseKey": { "type": "string", "minLength": 1 },
        "order": { "type": "integer" },
        "title": { "type": "string" },
        "description": { "type": "string" },
        "steps": {
          "type": "array",
          "minItems": 1,
          "items": { "$ref": "#/$defs/step" }
        }
      },
      "additionalProperties": false
    },
    "step": {
      "type": "object",
      "required": ["stepKey", "order", "actorKey"],
      "properties": {
        "stepKey": { "type": "string", "minLength": 1 },
        "order": { "type": "integer" },
        "title": { "type": "string" },
        "actorKey": { "type": "string", "minLength": 1 },
        "intent": { "type": "string" },
        "instruction": { "type": "string" },
        "expectedResult": { "type": "string" },
        "toolHints": { "type": "array", "items": { "type": "string" } },
        "assertions": {
          "type": "array",
          "items": { "$ref": "#/$defs/assertion" }
        },
        "evidenceRequired": {
          "type": "array",
          "items": { "$ref": "#/$defs/evidence" }
        },
        "guardrails": { "type": "array", "items": { "type": "string" } },
        "tags": { "type": "array", "items": { "type": "string" } },
        "delay": { "$ref": "#/$defs/delay" }
      },
      "additionalProperties": false
    },
    "assertion": {
      "type": "object",
      "required": ["description"],
      "properties": {
        "kind": { "type": "string" },
        "description": { "type": "string", "minLength": 1 },
        "expression": { "type": "string" }
      },
      "additionalProperties": false
    },
    "evidence": {
      "type": "object",
      "required": ["kind", "label"],
      "properties": {
        "kind": {
          "type": "string",
          "anyOf": [
            { "enum": ["api_trace", "snapshot", "report_note", "event_ref"] },
            { "pattern": "^custom_" }
          ]
        },
        "label": { "type": "string", "minLength": 1 },
        "pathHint": { "type": "string" }
      },
      "additionalProperties": false
    },
    "delay": {
      "type": "object",
      "properties": {
        "mode": { "type": "string", "enum": ["none", "fixed", "until_condition"] },
        "delayMs": { "type": "integer", "minimum": 1 },
        "conditionKey": { "type": "string", "minLength": 1 },
        "timeoutMs": { "type": "integer", "minimum": 1 },
        "pollMs": { "type": "integer", "minimum": 1 },
        "jitterMs": { "type": "integer", "minimum": 0 },
        "note": { "type": "string" }
      },
      "additionalProperties": false
    }
  }
}`

// JSONSchemaValidator validates saga documents against the embedded saga.v0
// schema using JSON Schema Draft 2020-12. Safe for concurrent use.
type JSONSchemaValidator struct {
	sagaSchema *jsonschema.Schema
}

// NewJSONSchemaValidator creates a JSONSchemaValidator with the saga.v0 schema
// pre-compiled.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(sagaSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal saga schema: %w", err)
	}
	if err := c.AddResource("https://sagaline.dev/schemas/saga.v0.json", schemaDoc); err != nil {
		return nil, fmt.Errorf("add saga schema resource: %w", err)
	}

	compiled, err := c.Compile("https://sagaline.dev/schemas/saga.v0.json")
	if err != nil {
		return nil, fmt.Errorf("compile saga schema: %w", err)
	}

	return &JSONSchemaValidator{sagaSchema: compiled}, nil
}

// ValidateSpec validates a parsed (and therefore already-normalized) spec
// against the saga.v0 JSON Schema.
func (v *JSONSchemaValidator) ValidateSpec(spec *saga.SagaSpec) error {
	if spec == nil {
		return saga.NewError(saga.ErrCodeValidation, "saga spec is nil")
	}

	doc, err := toJSONValue(spec)
	if err != nil {
		return saga.NewError(saga.ErrCodeValidation, "failed to serialize saga spec").WithCause(err)
	}

	if err := v.sagaSchema.Validate(doc); err != nil {
		return toSagaError(err)
	}
	return nil
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toSagaError converts a jsonschema.ValidationError into a SagaError with
// field-level violation messages.
func toSagaError(err error) *saga.SagaError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return saga.NewError(saga.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return saga.NewError(saga.ErrCodeValidation, verr.Error())
	}

	if len(violations) == 1 {
		return saga.NewError(saga.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}

	msg := fmt.Sprintf("validation failed with %d errors", len(violations))
	return saga.NewError(saga.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf error
// messages with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
