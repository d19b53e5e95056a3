package saga

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSpec = `{
	"schemaVersion": "saga.v0",
	"sagaKey": "checkout-happy-path",
	"title": "Checkout happy path",
	"tags": ["checkout", "payments"],
	"defaults": {"runMode": "dry_run", "continueOnFailure": false},
	"actors": [
		{"actorKey": "shopper", "name": "Sam", "role": "customer", "email": "sam@example.test"},
		{"actorKey": "support", "name": "Ana", "role": "agent"}
	],
	"phases": [
		{
			"phaseKey": "browse", "order": 2,
			"steps": [
				{"stepKey": "open-catalog", "order": 1, "actorKey": "shopper",
				 "assertions": [{"description": "catalog loads"}]}
			]
		},
		{
			"phaseKey": "setup", "order": 1,
			"steps": [
				{"stepKey": "create-account", "order": 2, "actorKey": "shopper",
				 "assertions": [{"description": "account exists"}, {"description": "welcome mail sent"}],
				 "evidenceRequired": [{"kind": "pseudoshot", "label": "signup-confirmation"}]},
				{"stepKey": "uc-need-validate-signup", "order": 1, "actorKey": "shopper"}
			]
		}
	]
}`

func TestParseSpec(t *testing.T) {
	spec, err := ParseSpec([]byte(sampleSpec))
	require.NoError(t, err)

	assert.Equal(t, "saga.v0", spec.SchemaVersion)
	assert.Equal(t, "checkout-happy-path", spec.SagaKey)
	assert.Len(t, spec.Actors, 2)
	assert.Equal(t, 3, spec.StepCount())
	assert.Equal(t, 3, spec.AssertionCount())
}

func TestParseSpec_InvalidJSON(t *testing.T) {
	_, err := ParseSpec([]byte(`{"sagaKey": `))
	require.Error(t, err)
}

func TestParseSpec_NormalizesLegacyEvidenceKind(t *testing.T) {
	spec, err := ParseSpec([]byte(sampleSpec))
	require.NoError(t, err)

	var kinds []EvidenceKind
	spec.EachStep(func(_ *Phase, s *Step) {
		for _, ev := range s.EvidenceRequired {
			kinds = append(kinds, ev.Kind)
		}
	})
	require.Len(t, kinds, 1)
	assert.Equal(t, EvidenceSnapshot, kinds[0], "pseudoshot must normalize to snapshot")
}

func TestParseSpec_ClassifiesSteps(t *testing.T) {
	spec, err := ParseSpec([]byte(sampleSpec))
	require.NoError(t, err)

	classes := make(map[string]StepClass)
	spec.EachStep(func(_ *Phase, s *Step) {
		classes[s.StepKey] = s.Class
	})

	assert.Equal(t, StepClassDeterministic, classes["create-account"])
	assert.Equal(t, StepClassDeterministic, classes["open-catalog"])
	assert.Equal(t, StepClassExploratory, classes["uc-need-validate-signup"])
}

func TestClassifyStep(t *testing.T) {
	assert.Equal(t, StepClassExploratory, ClassifyStep("uc-need-validate-login"))
	assert.Equal(t, StepClassExploratory, ClassifyStep("persona-scenario-validate-refund"))
	assert.Equal(t, StepClassDeterministic, ClassifyStep("create-account"))
	assert.Equal(t, StepClassDeterministic, ClassifyStep("validate-uc-need"))
}

func TestOrderedPhasesAndSteps(t *testing.T) {
	spec, err := ParseSpec([]byte(sampleSpec))
	require.NoError(t, err)

	phases := spec.OrderedPhases()
	require.Len(t, phases, 2)
	assert.Equal(t, "setup", phases[0].PhaseKey)
	assert.Equal(t, "browse", phases[1].PhaseKey)

	steps := phases[0].OrderedSteps()
	require.Len(t, steps, 2)
	assert.Equal(t, "uc-need-validate-signup", steps[0].StepKey)
	assert.Equal(t, "create-account", steps[1].StepKey)
}

func TestParseSpec_Idempotent(t *testing.T) {
	first, err := ParseSpec([]byte(sampleSpec))
	require.NoError(t, err)
	second, err := ParseSpec([]byte(sampleSpec))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFindActor(t *testing.T) {
	spec, err := ParseSpec([]byte(sampleSpec))
	require.NoError(t, err)

	actor := spec.FindActor("shopper")
	require.NotNil(t, actor)
	assert.Equal(t, "Sam", actor.Name)

	assert.Nil(t, spec.FindActor("ghost"))
}

func TestEvidenceKind(t *testing.T) {
	assert.True(t, EvidenceSnapshot.Known())
	assert.False(t, EvidenceKind("hologram").Known())
	assert.True(t, EvidenceKind("custom_har_capture").Custom())
	assert.False(t, EvidenceKind("custom_har_capture").Known())
}

func TestTerminalStatuses(t *testing.T) {
	assert.False(t, RunStatusPending.Terminal())
	assert.False(t, RunStatusRunning.Terminal())
	assert.True(t, RunStatusPassed.Terminal())
	assert.True(t, RunStatusFailed.Terminal())
	assert.True(t, RunStatusCancelled.Terminal())

	assert.False(t, StepStatusPending.Terminal())
	assert.False(t, StepStatusInProgress.Terminal())
	assert.True(t, StepStatusPassed.Terminal())
	assert.True(t, StepStatusFailed.Terminal())
	assert.True(t, StepStatusBlocked.Terminal())
	assert.True(t, StepStatusSkipped.Terminal())
}
