package engine

import (
	"context"
	"sync"

	"github.com/rendis/sagaline/pkg/saga"
)

// TransitionHook is called before or after a state transition.
type TransitionHook func(from, to string) error

// --- Run FSM ---

type runHookKey struct {
	from, to saga.RunStatus
}

// RunFSM manages run lifecycle state transitions. It is the single authority
// on which run transitions are legal; persistence of the new state is the
// orchestrator's responsibility.
type RunFSM struct {
	mu     sync.Mutex
	before map[runHookKey][]TransitionHook
	after  map[runHookKey][]TransitionHook
}

// NewRunFSM creates a new RunFSM.
func NewRunFSM() *RunFSM {
	return &RunFSM{
		before: make(map[runHookKey][]TransitionHook),
		after:  make(map[runHookKey][]TransitionHook),
	}
}

// OnBefore registers a hook called before a run transition.
func (f *RunFSM) OnBefore(from, to saga.RunStatus, hook TransitionHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := runHookKey{from, to}
	f.before[key] = append(f.before[key], hook)
}

// OnAfter registers a hook called after a run transition.
func (f *RunFSM) OnAfter(from, to saga.RunStatus, hook TransitionHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := runHookKey{from, to}
	f.after[key] = append(f.after[key], hook)
}

// Transition validates and executes a run state transition.
func (f *RunFSM) Transition(ctx context.Context, runID string, from, to saga.RunStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !isValidRunTransition(from, to) {
		return saga.NewErrorf(saga.ErrCodeInvalidTransition,
			"invalid run transition: %s -> %s", from, to).
			WithDetails(map[string]any{"run_id": runID, "from": string(from), "to": string(to)})
	}

	key := runHookKey{from, to}

	for _, hook := range f.before[key] {
		if err := hook(string(from), string(to)); err != nil {
			return err
		}
	}
	for _, hook := range f.after[key] {
		if err := hook(string(from), string(to)); err != nil {
			return err
		}
	}

	return nil
}

func isValidRunTransition(from, to saga.RunStatus) bool {
	allowed, ok := ValidRunTransitions[from]
	if !ok {
		return false
	}
	for _, a := range allowed {
		if a == to {
			return true
		}
	}
	return false
}

// --- Step FSM ---

type stepHookKey struct {
	from, to saga.StepStatus
}

// StepFSM manages step lifecycle state transitions.
type StepFSM struct {
	mu     sync.Mutex
	before map[stepHookKey][]TransitionHook
	after  map[stepHookKey][]TransitionHook
}

// NewStepFSM creates a new StepFSM.
func NewStepFSM() *StepFSM {
	return &StepFSM{
		before: make(map[stepHookKey][]TransitionHook),
		after:  make(map[stepHookKey][]TransitionHook),
	}
}

// OnBefore registers a hook called before a step transition.
func (f *StepFSM) OnBefore(from, to saga.StepStatus, hook TransitionHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := stepHookKey{from, to}
	f.before[key] = append(f.before[key], hook)
}

// OnAfter registers a hook called after a step transition.
func (f *StepFSM) OnAfter(from, to saga.StepStatus, hook TransitionHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := stepHookKey{from, to}
	f.after[key] = append(f.after[key], hook)
}

// Transition validates and executes a step state transition.
func (f *StepFSM) Transition(ctx context.Context, runID, stepKey string, from, to saga.StepStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !isValidStepTransition(from, to) {
		return saga.NewErrorf(saga.ErrCodeInvalidTransition,
			"invalid step transition: %s -> %s", from, to).
			WithStep(stepKey).
			WithDetails(map[string]any{"run_id": runID, "from": string(from), "to": string(to)})
	}

	key := stepHookKey{from, to}

	for _, hook := range f.before[key] {
		if err := hook(string(from), string(to)); err != nil {
			return err
		}
	}
	for _, hook := range f.after[key] {
		if err := hook(string(from), string(to)); err != nil {
			return err
		}
	}

	return nil
}

func isValidStepTransition(from, to saga.StepStatus) bool {
	allowed, ok := ValidStepTransitions[from]
	if !ok {
		return false
	}
	for _, a := range allowed {
		if a == to {
			return true
		}
	}
	return false
}

// CanSkip reports whether a step in the given status may still be skipped.
// Used by the cancel cascade and by failure propagation: only steps that have
// not started executing are eligible.
func CanSkip(s saga.StepStatus) bool {
	return isValidStepTransition(s, saga.StepStatusSkipped)
}

// --- Cancel cascade ---

// CancelRun transitions a run to cancelled and resolves all not-yet-terminal
// steps to skipped, including an in-flight step caught at a suspension point.
// stepStates maps stepKey -> current status for all known steps of the run.
func CancelRun(ctx context.Context, runFSM *RunFSM, stepFSM *StepFSM, runID string, currentStatus saga.RunStatus, stepStates map[string]saga.StepStatus) error {
	if err := runFSM.Transition(ctx, runID, currentStatus, saga.RunStatusCancelled); err != nil {
		return err
	}

	for stepKey, status := range stepStates {
		if status.Terminal() {
			continue
		}
		if CanSkip(status) {
			if err := stepFSM.Transition(ctx, runID, stepKey, status, saga.StepStatusSkipped); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- Transition tables ---

// ValidRunTransitions defines the allowed state transitions for runs.
// Terminal states have no outgoing transitions; cancelling a finished run
// is rejected as an invalid transition.
var ValidRunTransitions = map[saga.RunStatus][]saga.RunStatus{
	saga.RunStatusPending:   {saga.RunStatusRunning, saga.RunStatusCancelled},
	saga.RunStatusRunning:   {saga.RunStatusPassed, saga.RunStatusFailed, saga.RunStatusCancelled},
	saga.RunStatusPassed:    {},
	saga.RunStatusFailed:    {},
	saga.RunStatusCancelled: {},
}

// ValidStepTransitions defines the allowed state transitions for steps.
// in_progress -> skipped exists only for the cancellation path: the in-flight
// step resolves skipped when the run is cancelled at a suspension point.
var ValidStepTransitions = map[saga.StepStatus][]saga.StepStatus{
	saga.StepStatusPending:    {saga.StepStatusInProgress, saga.StepStatusSkipped},
	saga.StepStatusInProgress: {saga.StepStatusPassed, saga.StepStatusFailed, saga.StepStatusBlocked, saga.StepStatusSkipped},
	saga.StepStatusPassed:     {},
	saga.StepStatusFailed:     {},
	saga.StepStatusBlocked:    {},
	saga.StepStatusSkipped:    {},
}
