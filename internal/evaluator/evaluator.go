package evaluator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rendis/sagaline/internal/expressions"
	"github.com/rendis/sagaline/internal/logging"
	"github.com/rendis/sagaline/pkg/saga"
)

// StepVerdict is the evaluator's conclusion for one step: a terminal status
// plus the structured result payload persisted on the step row. Verdicts are
// expected results, not errors; an error return from the evaluator is an
// engine fault the orchestrator maps to blocked.
type StepVerdict struct {
	Status           saga.StepStatus
	Payload          *saga.ResultPayload
	AssertionSummary string
	FailureMessage   string
}

// Evaluator judges step outcomes. Deterministic steps are checked assertion
// by assertion against the trace; exploratory steps are delegated to the
// LLM-assisted evaluator when one is configured.
type Evaluator struct {
	expr        *expressions.ExprEngine
	jq          *expressions.GoJQEngine
	exploratory *ExploratoryEvaluator
	logger      *slog.Logger
}

// New creates an evaluator. exploratory may be nil, which makes this a
// deterministic-only evaluator: exploratory steps resolve skipped.
func New(exprEngine *expressions.ExprEngine, jqEngine *expressions.GoJQEngine, exploratory *ExploratoryEvaluator, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		expr:        exprEngine,
		jq:          jqEngine,
		exploratory: exploratory,
		logger:      logger,
	}
}

// EvaluateDeterministic runs the step's declared assertions in order against
// the trace and verifies required evidence capture. The first failing
// assertion's description becomes the failure message; a required-but-missing
// evidence item is itself a failure cause. All assertions are evaluated even
// after a failure so the payload carries the complete verdict set.
func (e *Evaluator) EvaluateDeterministic(ctx context.Context, step *saga.Step, actor *saga.Actor, trace *Trace) (*StepVerdict, error) {
	env := assertionEnv(step, actor, trace)

	var results []saga.AssertionResult
	failureMessage := ""

	for _, a := range step.Assertions {
		passed, detail, err := e.checkAssertion(ctx, a, trace, env)
		if err != nil {
			return nil, err
		}
		results = append(results, saga.AssertionResult{
			Description: a.Description,
			Passed:      passed,
			Detail:      detail,
		})
		if !passed && failureMessage == "" {
			failureMessage = a.Description
		}
	}

	// Evidence capture is checked even when assertions failed, so the payload
	// reports every unmet requirement; the assertion failure message wins.
	var gaps []string
	for _, ev := range step.EvidenceRequired {
		captured, err := e.evidenceCaptured(ctx, ev, trace)
		if err != nil {
			return nil, err
		}
		if !captured {
			gaps = append(gaps, fmt.Sprintf("required evidence %q (%s) not captured", ev.Label, ev.Kind))
		}
	}
	if failureMessage == "" && len(gaps) > 0 {
		failureMessage = gaps[0]
	}

	passedCount := 0
	for _, r := range results {
		if r.Passed {
			passedCount++
		}
	}

	verdict := &StepVerdict{
		Payload: &saga.ResultPayload{
			Evidence: &saga.EvidenceOutcome{
				Kind: saga.OutcomeKindDeterministic,
				Gaps: gaps,
			},
			Assertions: results,
		},
		AssertionSummary: fmt.Sprintf("%d/%d assertions passed", passedCount, len(results)),
		FailureMessage:   failureMessage,
	}
	if failureMessage == "" {
		verdict.Status = saga.StepStatusPassed
	} else {
		verdict.Status = saga.StepStatusFailed
	}

	logging.LogWith(ctx, e.logger).DebugContext(ctx, "deterministic evaluation complete",
		slog.String("status", string(verdict.Status)),
		slog.String("summary", verdict.AssertionSummary))

	return verdict, nil
}

// checkAssertion resolves one assertion. With a machine expression the expr
// engine decides; without one the trace's named check for the assertion
// description is consulted, falling back to the trace's overall ok flag.
func (e *Evaluator) checkAssertion(ctx context.Context, a saga.Assertion, trace *Trace, env map[string]any) (bool, string, error) {
	if a.Expression != "" {
		passed, err := e.expr.EvaluateBool(ctx, a.Expression, env)
		if err != nil {
			return false, "", err
		}
		if !passed {
			return false, fmt.Sprintf("expression %q evaluated to false", a.Expression), nil
		}
		return true, "", nil
	}

	if trace != nil {
		if ok, found := trace.Checks[a.Description]; found {
			if !ok {
				return false, "trace check reported failure", nil
			}
			return true, "", nil
		}
		if !trace.OK {
			return false, "trace reported overall failure", nil
		}
		return true, "", nil
	}
	return false, "no trace produced", nil
}

// evidenceCaptured reports whether a required evidence item is present in the
// trace. With a pathHint the jq extraction must yield a non-nil value;
// otherwise the capture must exist under the evidence label.
func (e *Evaluator) evidenceCaptured(ctx context.Context, ev saga.EvidenceSpec, trace *Trace) (bool, error) {
	if trace == nil {
		return false, nil
	}
	if ev.PathHint != "" {
		out, err := e.jq.Evaluate(ctx, ev.PathHint, trace.AsMap())
		if err != nil {
			return false, err
		}
		return out != nil, nil
	}
	_, ok := trace.Evidence[ev.Label]
	return ok, nil
}

// EvaluateExploratory resolves an exploratory step. Precedence:
//  1. no executor contract for the step -> blocked, MISSING_DETERMINISTIC_EXECUTOR_CONTRACT
//  2. no LLM evaluator configured -> skipped, DETERMINISTIC_RUNNER_SKIPS_EXPLORATORY_STEP
//  3. otherwise the LLM assesses the trace -> passed or blocked, LLM_ASSESSMENT_COMPLETED
func (e *Evaluator) EvaluateExploratory(ctx context.Context, step *saga.Step, actor *saga.Actor, trace *Trace, hasContract bool) (*StepVerdict, error) {
	if !hasContract {
		return &StepVerdict{
			Status: saga.StepStatusBlocked,
			Payload: &saga.ResultPayload{
				Evidence: &saga.EvidenceOutcome{
					Kind:       saga.OutcomeKindExploratory,
					ReasonCode: saga.ReasonMissingExecutorContract,
				},
			},
			FailureMessage: fmt.Sprintf("no deterministic executor contract for step %q", step.StepKey),
		}, nil
	}

	if e.exploratory == nil {
		return &StepVerdict{
			Status: saga.StepStatusSkipped,
			Payload: &saga.ResultPayload{
				Evidence: &saga.EvidenceOutcome{
					Kind:       saga.OutcomeKindExploratory,
					ReasonCode: saga.ReasonDeterministicRunnerSkips,
				},
			},
		}, nil
	}

	return e.exploratory.Assess(ctx, step, actor, trace)
}

// HasExploratory reports whether an LLM-assisted evaluator is configured.
func (e *Evaluator) HasExploratory() bool {
	return e.exploratory != nil
}

// assertionEnv builds the expression environment for assertion evaluation.
func assertionEnv(step *saga.Step, actor *saga.Actor, trace *Trace) map[string]any {
	env := map[string]any{
		"trace": trace.AsMap(),
		"step": map[string]any{
			"stepKey":  step.StepKey,
			"actorKey": step.ActorKey,
			"intent":   step.Intent,
		},
		"actor": map[string]any{},
	}
	if actor != nil {
		env["actor"] = map[string]any{
			"actorKey": actor.ActorKey,
			"name":     actor.Name,
			"role":     actor.Role,
			"email":    actor.Email,
		}
	}
	return env
}
