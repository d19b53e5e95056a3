package evaluator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/sagaline/internal/expressions"
	"github.com/rendis/sagaline/pkg/saga"
)

func newDeterministicEvaluator() *Evaluator {
	return New(expressions.NewExprEngine(), expressions.NewGoJQEngine(), nil, nil)
}

func TestEvaluateDeterministic_AllPass(t *testing.T) {
	e := newDeterministicEvaluator()
	step := &saga.Step{
		StepKey:  "place-order",
		ActorKey: "buyer",
		Assertions: []saga.Assertion{
			{Description: "order confirmed", Expression: `trace.data.status == "confirmed"`},
			{Description: "confirmation email sent"},
		},
	}
	trace := &Trace{
		OK:     true,
		Checks: map[string]bool{"confirmation email sent": true},
		Data:   map[string]any{"status": "confirmed"},
	}

	verdict, err := e.EvaluateDeterministic(context.Background(), step, nil, trace)
	require.NoError(t, err)
	assert.Equal(t, saga.StepStatusPassed, verdict.Status)
	assert.Equal(t, "2/2 assertions passed", verdict.AssertionSummary)
	assert.Empty(t, verdict.FailureMessage)
	require.Len(t, verdict.Payload.Assertions, 2)
	assert.True(t, verdict.Payload.Assertions[0].Passed)
	assert.True(t, verdict.Payload.Assertions[1].Passed)
}

func TestEvaluateDeterministic_ExpressionFailure(t *testing.T) {
	e := newDeterministicEvaluator()
	step := &saga.Step{
		StepKey: "charge",
		Assertions: []saga.Assertion{
			{Description: "amount above minimum", Expression: `trace.data.total > 100`},
			{Description: "currency recorded", Expression: `trace.data.currency == "EUR"`},
		},
	}
	trace := &Trace{OK: true, Data: map[string]any{"total": 50, "currency": "EUR"}}

	verdict, err := e.EvaluateDeterministic(context.Background(), step, nil, trace)
	require.NoError(t, err)
	assert.Equal(t, saga.StepStatusFailed, verdict.Status)
	assert.Equal(t, "amount above minimum", verdict.FailureMessage,
		"first failing assertion's description becomes the failure message")
	assert.Equal(t, "1/2 assertions passed", verdict.AssertionSummary)

	// All assertions are still evaluated after the failure.
	require.Len(t, verdict.Payload.Assertions, 2)
	assert.False(t, verdict.Payload.Assertions[0].Passed)
	assert.Contains(t, verdict.Payload.Assertions[0].Detail, "evaluated to false")
	assert.True(t, verdict.Payload.Assertions[1].Passed)
}

func TestEvaluateDeterministic_ChecksFallback(t *testing.T) {
	e := newDeterministicEvaluator()
	step := &saga.Step{
		StepKey: "ship",
		Assertions: []saga.Assertion{
			{Description: "label printed"},
			{Description: "carrier notified"},
		},
	}

	// A named check decides; an unnamed assertion falls back to the ok flag.
	trace := &Trace{OK: true, Checks: map[string]bool{"label printed": false}}
	verdict, err := e.EvaluateDeterministic(context.Background(), step, nil, trace)
	require.NoError(t, err)
	assert.Equal(t, saga.StepStatusFailed, verdict.Status)
	assert.Equal(t, "label printed", verdict.FailureMessage)
	assert.True(t, verdict.Payload.Assertions[1].Passed, "no named check, ok flag decides")

	trace = &Trace{OK: false}
	verdict, err = e.EvaluateDeterministic(context.Background(), step, nil, trace)
	require.NoError(t, err)
	assert.Equal(t, saga.StepStatusFailed, verdict.Status)
	assert.False(t, verdict.Payload.Assertions[0].Passed)
	assert.False(t, verdict.Payload.Assertions[1].Passed)
}

func TestEvaluateDeterministic_MissingEvidence(t *testing.T) {
	e := newDeterministicEvaluator()
	step := &saga.Step{
		StepKey: "place-order",
		Assertions: []saga.Assertion{
			{Description: "order confirmed"},
		},
		EvidenceRequired: []saga.EvidenceSpec{
			{Kind: "api_trace", Label: "order-call"},
		},
	}
	trace := &Trace{OK: true}

	verdict, err := e.EvaluateDeterministic(context.Background(), step, nil, trace)
	require.NoError(t, err)
	assert.Equal(t, saga.StepStatusFailed, verdict.Status,
		"required but uncaptured evidence fails the step even when assertions pass")
	assert.Contains(t, verdict.FailureMessage, "order-call")
	require.Len(t, verdict.Payload.Evidence.Gaps, 1)
	assert.Contains(t, verdict.Payload.Evidence.Gaps[0], "order-call")
}

func TestEvaluateDeterministic_AssertionFailureOutranksEvidenceGap(t *testing.T) {
	e := newDeterministicEvaluator()
	step := &saga.Step{
		StepKey: "place-order",
		Assertions: []saga.Assertion{
			{Description: "order confirmed", Expression: `trace.ok`},
		},
		EvidenceRequired: []saga.EvidenceSpec{
			{Kind: "snapshot", Label: "cart"},
		},
	}
	trace := &Trace{OK: false}

	verdict, err := e.EvaluateDeterministic(context.Background(), step, nil, trace)
	require.NoError(t, err)
	assert.Equal(t, "order confirmed", verdict.FailureMessage)
	assert.NotEmpty(t, verdict.Payload.Evidence.Gaps, "gaps still reported alongside the assertion failure")
}

func TestEvaluateDeterministic_PathHintEvidence(t *testing.T) {
	e := newDeterministicEvaluator()
	step := &saga.Step{
		StepKey: "place-order",
		EvidenceRequired: []saga.EvidenceSpec{
			{Kind: "api_trace", Label: "order-id", PathHint: ".data.order.id"},
		},
	}

	trace := &Trace{OK: true, Data: map[string]any{"order": map[string]any{"id": "ord-42"}}}
	verdict, err := e.EvaluateDeterministic(context.Background(), step, nil, trace)
	require.NoError(t, err)
	assert.Equal(t, saga.StepStatusPassed, verdict.Status)

	trace = &Trace{OK: true, Data: map[string]any{"order": map[string]any{}}}
	verdict, err = e.EvaluateDeterministic(context.Background(), step, nil, trace)
	require.NoError(t, err)
	assert.Equal(t, saga.StepStatusFailed, verdict.Status, "nil extraction means the evidence was not captured")
}

func TestEvaluateDeterministic_LabelEvidence(t *testing.T) {
	e := newDeterministicEvaluator()
	step := &saga.Step{
		StepKey: "checkout",
		EvidenceRequired: []saga.EvidenceSpec{
			{Kind: "snapshot", Label: "cart"},
		},
	}
	trace := &Trace{OK: true, Evidence: map[string]any{"cart": map[string]any{"items": 3}}}

	verdict, err := e.EvaluateDeterministic(context.Background(), step, nil, trace)
	require.NoError(t, err)
	assert.Equal(t, saga.StepStatusPassed, verdict.Status)
}

func TestEvaluateDeterministic_NoAssertions(t *testing.T) {
	e := newDeterministicEvaluator()
	step := &saga.Step{StepKey: "noop"}
	trace := &Trace{OK: true}

	verdict, err := e.EvaluateDeterministic(context.Background(), step, nil, trace)
	require.NoError(t, err)
	assert.Equal(t, saga.StepStatusPassed, verdict.Status)
	assert.Equal(t, "0/0 assertions passed", verdict.AssertionSummary)
}

func TestEvaluateExploratory_NoContractBlocks(t *testing.T) {
	e := newDeterministicEvaluator()
	step := &saga.Step{StepKey: "uc-need-validate-signup", Class: saga.StepClassExploratory}

	verdict, err := e.EvaluateExploratory(context.Background(), step, nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, saga.StepStatusBlocked, verdict.Status)
	assert.Equal(t, saga.ReasonMissingExecutorContract, verdict.Payload.Evidence.ReasonCode)
	assert.Contains(t, verdict.FailureMessage, "uc-need-validate-signup")
}

func TestEvaluateExploratory_NoLLMSkips(t *testing.T) {
	e := newDeterministicEvaluator()
	step := &saga.Step{StepKey: "uc-need-validate-signup", Class: saga.StepClassExploratory}

	verdict, err := e.EvaluateExploratory(context.Background(), step, nil, &Trace{OK: true}, true)
	require.NoError(t, err)
	assert.Equal(t, saga.StepStatusSkipped, verdict.Status)
	assert.Equal(t, saga.ReasonDeterministicRunnerSkips, verdict.Payload.Evidence.ReasonCode)
	assert.False(t, e.HasExploratory())
}

func TestEvaluateExploratory_MissingContractOutranksMissingLLM(t *testing.T) {
	// Both the contract and the LLM are absent: the contract gap decides.
	e := newDeterministicEvaluator()
	step := &saga.Step{StepKey: "persona-scenario-validate-return", Class: saga.StepClassExploratory}

	verdict, err := e.EvaluateExploratory(context.Background(), step, nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, saga.StepStatusBlocked, verdict.Status)
	assert.Equal(t, saga.ReasonMissingExecutorContract, verdict.Payload.Evidence.ReasonCode)
}
