package evaluator

import (
	"context"
	"fmt"
	"sync"

	"github.com/rendis/sagaline/pkg/saga"
)

// Trace is the execution record a step's executor produced: an overall ok
// flag, named check outcomes, captured evidence keyed by label, and the raw
// data assertions and pathHint extraction run against.
type Trace struct {
	OK       bool            `json:"ok"`
	Checks   map[string]bool `json:"checks,omitempty"`
	Evidence map[string]any  `json:"evidence,omitempty"`
	Data     map[string]any  `json:"data,omitempty"`
}

// AsMap renders the trace as the evaluation environment value bound to
// "trace" in assertion expressions and as the jq input for pathHint
// extraction.
func (t *Trace) AsMap() map[string]any {
	if t == nil {
		return map[string]any{}
	}
	checks := make(map[string]any, len(t.Checks))
	for k, v := range t.Checks {
		checks[k] = v
	}
	return map[string]any{
		"ok":       t.OK,
		"checks":   checks,
		"evidence": t.Evidence,
		"data":     t.Data,
	}
}

// ExecutorContract produces a trace for a step. Contracts are the pluggable
// boundary between the engine and whatever actually performs step actions
// (a browser driver, an API client, a human-in-the-loop bridge).
type ExecutorContract interface {
	Execute(ctx context.Context, step *saga.Step, actor *saga.Actor, params map[string]any) (*Trace, error)
}

// ExecutorContractFunc adapts a function to the ExecutorContract interface.
type ExecutorContractFunc func(ctx context.Context, step *saga.Step, actor *saga.Actor, params map[string]any) (*Trace, error)

func (f ExecutorContractFunc) Execute(ctx context.Context, step *saga.Step, actor *saga.Actor, params map[string]any) (*Trace, error) {
	return f(ctx, step, actor, params)
}

// ContractRegistry maps step keys to executor contracts. Thread-safe.
type ContractRegistry struct {
	mu        sync.RWMutex
	contracts map[string]ExecutorContract
}

// NewContractRegistry creates an empty contract registry.
func NewContractRegistry() *ContractRegistry {
	return &ContractRegistry{contracts: make(map[string]ExecutorContract)}
}

// Register binds a contract to a step key, replacing any previous binding.
func (r *ContractRegistry) Register(stepKey string, contract ExecutorContract) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contracts[stepKey] = contract
}

// Lookup returns the contract bound to the step key, if any.
func (r *ContractRegistry) Lookup(stepKey string) (ExecutorContract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contracts[stepKey]
	return c, ok
}

// Keys returns the registered step keys.
func (r *ContractRegistry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.contracts))
	for k := range r.contracts {
		keys = append(keys, k)
	}
	return keys
}

// NewSimulatedContract returns a contract for dry_run mode: it fabricates a
// trace where every declared assertion checks out and every required evidence
// item is captured as a synthetic payload. Useful for spec rehearsal before a
// real executor exists.
func NewSimulatedContract() ExecutorContract {
	return ExecutorContractFunc(func(ctx context.Context, step *saga.Step, actor *saga.Actor, params map[string]any) (*Trace, error) {
		checks := make(map[string]bool, len(step.Assertions))
		for _, a := range step.Assertions {
			checks[a.Description] = true
		}
		evidence := make(map[string]any, len(step.EvidenceRequired))
		for _, ev := range step.EvidenceRequired {
			evidence[ev.Label] = map[string]any{
				"kind":      string(ev.Kind),
				"simulated": true,
				"note":      fmt.Sprintf("dry_run capture for %q", ev.Label),
			}
		}
		return &Trace{
			OK:       true,
			Checks:   checks,
			Evidence: evidence,
			Data:     map[string]any{"stepKey": step.StepKey, "actorKey": step.ActorKey},
		}, nil
	})
}
