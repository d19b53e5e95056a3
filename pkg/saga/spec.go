package saga

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// SchemaVersion is the only saga document version this engine accepts.
const SchemaVersion = "saga.v0"

// SagaSpec is the immutable, versioned definition of a saga: the declarative
// multi-phase scenario the engine executes. Instances are produced by ParseSpec
// and never mutated afterwards.
type SagaSpec struct {
	SchemaVersion string         `json:"schemaVersion"`
	SagaKey       string         `json:"sagaKey"`
	Title         string         `json:"title,omitempty"`
	Description   string         `json:"description,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
	Defaults      Defaults       `json:"defaults"`
	Source        *SourceRef     `json:"source,omitempty"`
	Objectives    []string       `json:"objectives,omitempty"`
	Actors        []Actor        `json:"actors"`
	Phases        []Phase        `json:"phases"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Defaults holds run-level execution defaults declared by the spec.
type Defaults struct {
	RunMode           RunMode `json:"runMode,omitempty"`
	ContinueOnFailure bool    `json:"continueOnFailure,omitempty"`
}

// SourceRef carries traceability references back to whatever system the saga
// was authored in (ticket, document, requirement ID).
type SourceRef struct {
	System string `json:"system,omitempty"`
	Ref    string `json:"ref,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Actor is a virtual identity participating in the saga. Synthetic contact
// details are used by the messaging bus; no real delivery ever happens.
type Actor struct {
	ActorKey string `json:"actorKey"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Persona  string `json:"persona,omitempty"`
}

// Phase is an ordered group of steps. Execution order is ascending Order,
// ties broken by declaration order.
type Phase struct {
	PhaseKey    string `json:"phaseKey"`
	Order       int    `json:"order"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Steps       []Step `json:"steps"`
}

// Step is one executable instruction assigned to an actor.
type Step struct {
	StepKey          string         `json:"stepKey"`
	Order            int            `json:"order"`
	Title            string         `json:"title,omitempty"`
	ActorKey         string         `json:"actorKey"`
	Intent           string         `json:"intent,omitempty"`
	Instruction      string         `json:"instruction,omitempty"`
	ExpectedResult   string         `json:"expectedResult,omitempty"`
	ToolHints        []string       `json:"toolHints,omitempty"`
	Assertions       []Assertion    `json:"assertions,omitempty"`
	EvidenceRequired []EvidenceSpec `json:"evidenceRequired,omitempty"`
	Guardrails       []string       `json:"guardrails,omitempty"`
	Tags             []string       `json:"tags,omitempty"`
	Delay            *Delay         `json:"delay,omitempty"`

	// Class is computed once by ParseSpec from the step key; downstream code
	// never re-parses the key.
	Class StepClass `json:"-"`
}

// Assertion is a declared expectation checked after the step's action runs.
// Expression, when present, is an expr-lang expression evaluated against the
// step's trace; without it the assertion is checked against the trace's
// recorded checks.
type Assertion struct {
	Kind        string `json:"kind,omitempty"`
	Description string `json:"description"`
	Expression  string `json:"expression,omitempty"`
}

// EvidenceSpec declares a required evidence capture for a step.
type EvidenceSpec struct {
	Kind     EvidenceKind `json:"kind"`
	Label    string       `json:"label"`
	PathHint string       `json:"pathHint,omitempty"`
}

// Delay is a step's wait policy, resolved by the delay/condition engine before
// evaluation. Payload fields are constrained by Mode; the validator enforces
// the pairing, the engine assumes it.
type Delay struct {
	Mode         DelayMode `json:"mode,omitempty"`
	DelayMs      int64     `json:"delayMs,omitempty"`
	ConditionKey string    `json:"conditionKey,omitempty"`
	TimeoutMs    int64     `json:"timeoutMs,omitempty"`
	PollMs       int64     `json:"pollMs,omitempty"`
	JitterMs     int64     `json:"jitterMs,omitempty"`
	Note         string    `json:"note,omitempty"`
}

// --- Enumerations ---
//
// Vocabularies are closed for engine-known values but accept a "custom_" raw
// string as an opaque extension, so exhaustive switches stay compiler-checked
// while future values still parse.

// CustomPrefix marks opaque extension values in otherwise-closed vocabularies.
const CustomPrefix = "custom_"

// RunMode selects how executor contracts are resolved.
type RunMode string

const (
	RunModeDryRun RunMode = "dry_run"
	RunModeLive   RunMode = "live"
)

// Known reports whether the mode is engine-known.
func (m RunMode) Known() bool {
	return m == RunModeDryRun || m == RunModeLive
}

// RunStatus is the saga-run lifecycle state.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusPassed    RunStatus = "passed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s RunStatus) Terminal() bool {
	return s == RunStatusPassed || s == RunStatusFailed || s == RunStatusCancelled
}

// StepStatus is the per-step lifecycle state. A superset of RunStatus outcomes
// because steps additionally report blocked.
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusInProgress StepStatus = "in_progress"
	StepStatusPassed     StepStatus = "passed"
	StepStatusFailed     StepStatus = "failed"
	StepStatusBlocked    StepStatus = "blocked"
	StepStatusSkipped    StepStatus = "skipped"
)

// Terminal reports whether the status admits no further transitions.
// Steps never resurrect from a terminal state within one run.
func (s StepStatus) Terminal() bool {
	switch s {
	case StepStatusPassed, StepStatusFailed, StepStatusBlocked, StepStatusSkipped:
		return true
	}
	return false
}

// StepClass partitions steps into deterministic and exploratory evaluation paths.
type StepClass string

const (
	StepClassDeterministic StepClass = "deterministic"
	StepClassExploratory   StepClass = "exploratory"
)

// exploratoryPrefixes are the step-key prefixes that mark a step as exploratory.
var exploratoryPrefixes = []string{"uc-need-validate-", "persona-scenario-validate-"}

// ClassifyStep derives the evaluation class from a step key. Pure; evaluated
// once at parse time and stored on the Step.
func ClassifyStep(stepKey string) StepClass {
	for _, p := range exploratoryPrefixes {
		if strings.HasPrefix(stepKey, p) {
			return StepClassExploratory
		}
	}
	return StepClassDeterministic
}

// DelayMode selects the step wait policy.
type DelayMode string

const (
	DelayModeNone           DelayMode = "none"
	DelayModeFixed          DelayMode = "fixed"
	DelayModeUntilCondition DelayMode = "until_condition"
)

// EvidenceKind identifies the shape of a captured artifact.
type EvidenceKind string

const (
	EvidenceAPITrace   EvidenceKind = "api_trace"
	EvidenceSnapshot   EvidenceKind = "snapshot"
	EvidenceReportNote EvidenceKind = "report_note"
	EvidenceEventRef   EvidenceKind = "event_ref"

	// evidenceKindLegacyPseudoshot is the pre-saga.v0 spelling of snapshot.
	// It is normalized away by ParseSpec and never appears in internal types.
	evidenceKindLegacyPseudoshot EvidenceKind = "pseudoshot"
)

// Known reports whether the kind is engine-known.
func (k EvidenceKind) Known() bool {
	switch k {
	case EvidenceAPITrace, EvidenceSnapshot, EvidenceReportNote, EvidenceEventRef:
		return true
	}
	return false
}

// Custom reports whether the kind is an opaque extension value.
func (k EvidenceKind) Custom() bool {
	return strings.HasPrefix(string(k), CustomPrefix)
}

// MessageChannel identifies the simulated delivery channel of an actor message.
type MessageChannel string

const (
	ChannelEmail MessageChannel = "email"
	ChannelSMS   MessageChannel = "sms"
	ChannelPush  MessageChannel = "push"
	ChannelInApp MessageChannel = "in_app"
)

// Known reports whether the channel is engine-known.
func (c MessageChannel) Known() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush, ChannelInApp:
		return true
	}
	return false
}

// Custom reports whether the channel is an opaque extension value.
func (c MessageChannel) Custom() bool {
	return strings.HasPrefix(string(c), CustomPrefix)
}

// MessageStatus is the simulated delivery state of an actor message.
type MessageStatus string

const (
	MessageQueued    MessageStatus = "queued"
	MessageSent      MessageStatus = "sent"
	MessageDelivered MessageStatus = "delivered"
	MessageRead      MessageStatus = "read"
	MessageFailed    MessageStatus = "failed"
	MessageCancelled MessageStatus = "cancelled"
)

// --- Parsing ---

// ParseSpec decodes a raw saga.v0 document into a SagaSpec, applying the
// normalization passes that must happen before structural validation:
//   - legacy evidence kind "pseudoshot" becomes "snapshot"
//   - each step's evaluation class is computed from its key
//
// ParseSpec does NOT validate; callers pass the result through
// validation.SagaValidator before running it.
func ParseSpec(raw []byte) (*SagaSpec, error) {
	var spec SagaSpec
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&spec); err != nil {
		return nil, NewError(ErrCodeValidation, "malformed saga document").WithCause(err)
	}
	spec.normalize()
	return &spec, nil
}

// normalize applies in-place parse-time normalization. Idempotent.
func (s *SagaSpec) normalize() {
	for pi := range s.Phases {
		for si := range s.Phases[pi].Steps {
			step := &s.Phases[pi].Steps[si]
			step.Class = ClassifyStep(step.StepKey)
			for ei := range step.EvidenceRequired {
				if step.EvidenceRequired[ei].Kind == evidenceKindLegacyPseudoshot {
					step.EvidenceRequired[ei].Kind = EvidenceSnapshot
				}
			}
		}
	}
}

// OrderedPhases returns phases sorted by ascending Order, declaration order
// preserved for ties.
func (s *SagaSpec) OrderedPhases() []Phase {
	out := make([]Phase, len(s.Phases))
	copy(out, s.Phases)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// OrderedSteps returns the phase's steps sorted by ascending Order,
// declaration order preserved for ties.
func (p *Phase) OrderedSteps() []Step {
	out := make([]Step, len(p.Steps))
	copy(out, p.Steps)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// FindActor returns the actor with the given key, or nil.
func (s *SagaSpec) FindActor(key string) *Actor {
	for i := range s.Actors {
		if s.Actors[i].ActorKey == key {
			return &s.Actors[i]
		}
	}
	return nil
}

// StepCount returns the total number of steps across all phases.
func (s *SagaSpec) StepCount() int {
	n := 0
	for i := range s.Phases {
		n += len(s.Phases[i].Steps)
	}
	return n
}

// AssertionCount returns the total number of declared assertions across all steps.
func (s *SagaSpec) AssertionCount() int {
	n := 0
	for pi := range s.Phases {
		for si := range s.Phases[pi].Steps {
			n += len(s.Phases[pi].Steps[si].Assertions)
		}
	}
	return n
}

// EachStep visits every step in execution order (phase order, then step order).
func (s *SagaSpec) EachStep(fn func(phase *Phase, step *Step)) {
	phases := s.OrderedPhases()
	for pi := range phases {
		steps := phases[pi].OrderedSteps()
		for si := range steps {
			fn(&phases[pi], &steps[si])
		}
	}
}

// String implements fmt.Stringer for log lines.
func (s *SagaSpec) String() string {
	return fmt.Sprintf("saga %s (%d phases, %d steps)", s.SagaKey, len(s.Phases), s.StepCount())
}
