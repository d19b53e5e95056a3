package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rendis/sagaline/internal/expressions"
	"github.com/rendis/sagaline/pkg/saga"
)

// Default timing for until_condition delays. DefaultConditionTimeout applies
// when the spec omits timeoutMs (the validator already warned about it).
const (
	DefaultPollInterval     = 1000 * time.Millisecond
	DefaultConditionTimeout = 60 * time.Second
)

// ConditionProbe resolves a conditionKey to a satisfied/not-satisfied verdict
// against the current run state. Probes must be cheap and side-effect free:
// they are retried every poll interval within the step's timeout budget.
type ConditionProbe interface {
	Satisfied(ctx context.Context, conditionKey string, state map[string]any) (bool, error)
}

// CELConditionProbe resolves condition keys through a registry of CEL
// expressions. Unknown keys are a probe error, not "unsatisfied": a typo in a
// conditionKey should surface loudly instead of blocking on timeout.
type CELConditionProbe struct {
	engine     *expressions.CELEngine
	conditions map[string]string
}

// NewCELConditionProbe creates a probe over the given conditionKey -> CEL
// expression registry.
func NewCELConditionProbe(engine *expressions.CELEngine, conditions map[string]string) *CELConditionProbe {
	return &CELConditionProbe{engine: engine, conditions: conditions}
}

func (p *CELConditionProbe) Satisfied(ctx context.Context, conditionKey string, state map[string]any) (bool, error) {
	expression, ok := p.conditions[conditionKey]
	if !ok {
		return false, saga.NewErrorf(saga.ErrCodeProbe, "no condition registered for key %q", conditionKey)
	}
	return p.engine.EvaluateBool(ctx, expression, state)
}

// DelayOutcome is the result of resolving a step's delay stage.
type DelayOutcome struct {
	// TimedOut is set when an until_condition delay exhausted its timeout
	// budget. The step must resolve blocked without running the evaluator.
	TimedOut bool
	// FailureMessage cites the condition key and elapsed time on timeout.
	FailureMessage string
	// Elapsed is the total wall time spent in the delay stage.
	Elapsed time.Duration
}

// DelayEngine arbitrates step suspension. Its only responsibility is waiting
// and timeout arbitration; it never asserts content correctness and never
// invokes the evaluator.
type DelayEngine struct {
	probe ConditionProbe
	// now and sleep are swappable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDelayEngine creates a delay engine backed by the given condition probe.
func NewDelayEngine(probe ConditionProbe) *DelayEngine {
	return &DelayEngine{
		probe: probe,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// Resolve executes the delay stage of a step and returns its outcome.
// mode=none returns immediately. mode=fixed sleeps delayMs plus a random
// jitter in [0, jitterMs]. mode=until_condition polls the probe every pollMs
// until satisfied or until timeoutMs elapses; jitter staggers only the first
// poll so concurrent runs do not thunder against the same probe.
// Cancellation via ctx is observed at every suspension.
func (d *DelayEngine) Resolve(ctx context.Context, delay *saga.Delay, state map[string]any) (*DelayOutcome, error) {
	if delay == nil || delay.Mode == saga.DelayModeNone {
		return &DelayOutcome{}, nil
	}

	start := d.now()

	switch delay.Mode {
	case saga.DelayModeFixed:
		wait := time.Duration(delay.DelayMs)*time.Millisecond + jitter(delay.JitterMs)
		if err := d.sleep(ctx, wait); err != nil {
			return nil, err
		}
		return &DelayOutcome{Elapsed: d.now().Sub(start)}, nil

	case saga.DelayModeUntilCondition:
		return d.pollCondition(ctx, delay, state, start)

	default:
		return nil, saga.NewErrorf(saga.ErrCodeValidation, "unknown delay mode %q", delay.Mode)
	}
}

func (d *DelayEngine) pollCondition(ctx context.Context, delay *saga.Delay, state map[string]any, start time.Time) (*DelayOutcome, error) {
	poll := DefaultPollInterval
	if delay.PollMs > 0 {
		poll = time.Duration(delay.PollMs) * time.Millisecond
	}
	timeout := DefaultConditionTimeout
	if delay.TimeoutMs > 0 {
		timeout = time.Duration(delay.TimeoutMs) * time.Millisecond
	}
	deadline := start.Add(timeout)

	// Stagger the first poll only.
	if err := d.sleep(ctx, jitter(delay.JitterMs)); err != nil {
		return nil, err
	}

	for {
		satisfied, err := d.probe.Satisfied(ctx, delay.ConditionKey, state)
		if err != nil {
			return nil, saga.NewErrorf(saga.ErrCodeProbe,
				"condition probe %q: %s", delay.ConditionKey, err.Error()).WithCause(err)
		}
		if satisfied {
			return &DelayOutcome{Elapsed: d.now().Sub(start)}, nil
		}

		// A poll landing on or past the deadline never happens: the budget
		// has elapsed by the time it would fire.
		if !d.now().Add(poll).Before(deadline) {
			elapsed := d.now().Sub(start)
			return &DelayOutcome{
				TimedOut: true,
				FailureMessage: fmt.Sprintf("condition %q not satisfied after %s (timeout %s)",
					delay.ConditionKey, elapsed.Round(time.Millisecond), timeout),
				Elapsed: elapsed,
			}, nil
		}

		if err := d.sleep(ctx, poll); err != nil {
			return nil, err
		}
	}
}

// jitter returns a random duration in [0, jitterMs].
func jitter(jitterMs int64) time.Duration {
	if jitterMs <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(jitterMs+1)) * time.Millisecond
}

// sleepCtx sleeps for d or until the context is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		// Still observe cancellation at zero-length suspensions.
		select {
		case <-ctx.Done():
			return saga.NewError(saga.ErrCodeCancelled, "run cancelled").WithCause(ctx.Err())
		default:
			return nil
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return saga.NewError(saga.ErrCodeCancelled, "run cancelled").WithCause(ctx.Err())
	case <-timer.C:
		return nil
	}
}
