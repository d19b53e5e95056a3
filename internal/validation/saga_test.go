package validation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/sagaline/pkg/saga"
)

func validDoc(t *testing.T) []byte {
	t.Helper()
	return []byte(`{
		"schemaVersion": "saga.v0",
		"sagaKey": "order-refund",
		"title": "Order refund flow",
		"defaults": {"runMode": "dry_run", "continueOnFailure": false},
		"actors": [
			{"actorKey": "buyer", "name": "Kim", "role": "customer"},
			{"actorKey": "agent", "name": "Lou", "role": "support"}
		],
		"phases": [
			{
				"phaseKey": "purchase", "order": 1,
				"steps": [
					{"stepKey": "place-order", "order": 1, "actorKey": "buyer",
					 "assertions": [{"description": "order confirmed"}],
					 "evidenceRequired": [{"kind": "api_trace", "label": "order-call"}]},
					{"stepKey": "request-refund", "order": 2, "actorKey": "buyer",
					 "delay": {"mode": "fixed", "delayMs": 500}}
				]
			}
		]
	}`)
}

func newValidator(t *testing.T) *SagaValidator {
	t.Helper()
	v, err := NewSagaValidator()
	require.NoError(t, err)
	return v
}

func TestParseAndValidate_ValidSpec(t *testing.T) {
	v := newValidator(t)
	spec, result := v.ParseAndValidate(validDoc(t))
	require.NotNil(t, spec)
	assert.True(t, result.Valid(), "unexpected errors: %+v", result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestParseAndValidate_Idempotent(t *testing.T) {
	v := newValidator(t)
	spec1, res1 := v.ParseAndValidate(validDoc(t))
	spec2, res2 := v.ParseAndValidate(validDoc(t))
	assert.Equal(t, spec1, spec2)
	assert.Equal(t, res1.Valid(), res2.Valid())
}

func TestParseAndValidate_MissingRequiredFields(t *testing.T) {
	v := newValidator(t)
	_, result := v.ParseAndValidate([]byte(`{"schemaVersion": "saga.v0"}`))
	assert.False(t, result.Valid())
}

func TestParseAndValidate_WrongSchemaVersion(t *testing.T) {
	v := newValidator(t)
	doc := []byte(`{
		"schemaVersion": "saga.v1",
		"sagaKey": "x",
		"actors": [{"actorKey": "a"}],
		"phases": []
	}`)
	_, result := v.ParseAndValidate(doc)
	assert.False(t, result.Valid())
}

func TestParseAndValidate_PseudoshotRoundTrip(t *testing.T) {
	// The legacy "pseudoshot" kind must validate identically to "snapshot".
	v := newValidator(t)
	template := `{
		"schemaVersion": "saga.v0",
		"sagaKey": "legacy-evidence",
		"defaults": {},
		"actors": [{"actorKey": "buyer"}],
		"phases": [{
			"phaseKey": "p1", "order": 1,
			"steps": [{"stepKey": "s1", "order": 1, "actorKey": "buyer",
				"evidenceRequired": [{"kind": %q, "label": "proof"}]}]
		}]
	}`

	legacy, legacyResult := v.ParseAndValidate([]byte(fmt.Sprintf(template, "pseudoshot")))
	modern, modernResult := v.ParseAndValidate([]byte(fmt.Sprintf(template, "snapshot")))

	require.True(t, legacyResult.Valid(), "legacy errors: %+v", legacyResult.Errors)
	require.True(t, modernResult.Valid())
	assert.Equal(t, modern.Phases[0].Steps[0].EvidenceRequired[0].Kind,
		legacy.Phases[0].Steps[0].EvidenceRequired[0].Kind)
}

func TestParseAndValidate_CustomEvidenceKind(t *testing.T) {
	v := newValidator(t)
	doc := []byte(`{
		"schemaVersion": "saga.v0",
		"sagaKey": "custom-evidence",
		"defaults": {},
		"actors": [{"actorKey": "buyer"}],
		"phases": [{
			"phaseKey": "p1", "order": 1,
			"steps": [{"stepKey": "s1", "order": 1, "actorKey": "buyer",
				"evidenceRequired": [{"kind": "custom_har_capture", "label": "har"}]}]
		}]
	}`)
	_, result := v.ParseAndValidate(doc)
	assert.True(t, result.Valid(), "custom_ kinds must pass: %+v", result.Errors)
}

func TestValidate_DuplicateKeys(t *testing.T) {
	v := newValidator(t)
	doc := []byte(`{
		"schemaVersion": "saga.v0",
		"sagaKey": "dupes",
		"defaults": {},
		"actors": [{"actorKey": "buyer"}, {"actorKey": "buyer"}],
		"phases": [
			{"phaseKey": "p1", "order": 1,
			 "steps": [{"stepKey": "s1", "order": 1, "actorKey": "buyer"}]},
			{"phaseKey": "p2", "order": 2,
			 "steps": [{"stepKey": "s1", "order": 1, "actorKey": "buyer"}]}
		]
	}`)
	_, result := v.ParseAndValidate(doc)
	require.False(t, result.Valid())

	var messages []string
	for _, issue := range result.Errors {
		messages = append(messages, issue.Message)
	}
	assert.Contains(t, fmt.Sprint(messages), "duplicate actor key")
	assert.Contains(t, fmt.Sprint(messages), "duplicate step key")
}

func TestValidate_UnknownActorReference(t *testing.T) {
	v := newValidator(t)
	doc := []byte(`{
		"schemaVersion": "saga.v0",
		"sagaKey": "bad-ref",
		"defaults": {},
		"actors": [{"actorKey": "buyer"}],
		"phases": [{"phaseKey": "p1", "order": 1,
			"steps": [{"stepKey": "s1", "order": 1, "actorKey": "ghost"}]}]
	}`)
	_, result := v.ParseAndValidate(doc)
	require.False(t, result.Valid())
	assert.Contains(t, result.Errors[0].Message, "non-existent actor")
}

func delayDoc(delay string) []byte {
	return []byte(fmt.Sprintf(`{
		"schemaVersion": "saga.v0",
		"sagaKey": "delays",
		"defaults": {},
		"actors": [{"actorKey": "buyer"}],
		"phases": [{"phaseKey": "p1", "order": 1,
			"steps": [{"stepKey": "s1", "order": 1, "actorKey": "buyer", "delay": %s}]}]
	}`, delay))
}

func TestValidate_DelayInvariants(t *testing.T) {
	v := newValidator(t)

	tests := []struct {
		name    string
		delay   string
		valid   bool
		warning bool
	}{
		{"fixed with delayMs", `{"mode": "fixed", "delayMs": 250}`, true, false},
		{"fixed without delayMs", `{"mode": "fixed"}`, false, false},
		{"fixed with conditionKey", `{"mode": "fixed", "delayMs": 250, "conditionKey": "x"}`, false, false},
		{"until_condition with conditionKey and timeout", `{"mode": "until_condition", "conditionKey": "order-settled", "timeoutMs": 2000}`, true, false},
		{"until_condition without conditionKey", `{"mode": "until_condition", "timeoutMs": 2000}`, false, false},
		{"until_condition without timeoutMs warns", `{"mode": "until_condition", "conditionKey": "order-settled"}`, true, true},
		{"until_condition with delayMs", `{"mode": "until_condition", "conditionKey": "x", "delayMs": 10, "timeoutMs": 2000}`, false, false},
		{"none with delayMs", `{"mode": "none", "delayMs": 10}`, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, result := v.ParseAndValidate(delayDoc(tt.delay))
			assert.Equal(t, tt.valid, result.Valid(), "errors: %+v", result.Errors)
			if tt.warning {
				assert.NotEmpty(t, result.Warnings)
			}
		})
	}
}

func TestValidateSpec_ErrorForm(t *testing.T) {
	v := newValidator(t)
	spec, err := saga.ParseSpec(validDoc(t))
	require.NoError(t, err)
	require.NoError(t, v.ValidateSpec(spec))

	spec.Phases[0].Steps[0].ActorKey = "ghost"
	err = v.ValidateSpec(spec)
	require.Error(t, err)
	assert.True(t, saga.IsCode(err, saga.ErrCodeValidation))
}
