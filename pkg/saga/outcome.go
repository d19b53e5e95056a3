package saga

import "encoding/json"

// Reason codes carried in exploratory step outcomes. This vocabulary is the
// contract between the evaluator and every downstream consumer of the run
// record: it is how "not evaluated" is distinguished from "evaluated and
// found lacking".
const (
	// ReasonMissingExecutorContract: no deterministic executor contract exists
	// for the step's action; the step resolves blocked without evaluation.
	ReasonMissingExecutorContract = "MISSING_DETERMINISTIC_EXECUTOR_CONTRACT"

	// ReasonDeterministicRunnerSkips: a deterministic-only runner declined to
	// execute an exploratory step; the step resolves skipped.
	ReasonDeterministicRunnerSkips = "DETERMINISTIC_RUNNER_SKIPS_EXPLORATORY_STEP"

	// ReasonLLMAssessmentCompleted: the LLM-assisted evaluator ran and
	// produced a verdict. Distinct from the two sentinel codes above.
	ReasonLLMAssessmentCompleted = "LLM_ASSESSMENT_COMPLETED"

	// ReasonEngineFault: an unexpected fault (probe exception, evaluator
	// timeout, mailbox error) was mapped to a blocked outcome at the
	// orchestrator boundary.
	ReasonEngineFault = "ENGINE_FAULT"
)

// Evidence outcome kinds; the discriminator of EvidenceOutcome.
const (
	OutcomeKindDeterministic = "deterministic"
	OutcomeKindExploratory   = "exploratory"
)

// EvidenceOutcome is the evidence portion of a step's result payload.
// The shape is a discriminated union keyed by Kind, validated at the trust
// boundary rather than threaded through business logic as untyped maps.
type EvidenceOutcome struct {
	Kind       string   `json:"kind"`
	ReasonCode string   `json:"reasonCode,omitempty"`
	Gaps       []string `json:"gaps,omitempty"`
	Assessment string   `json:"assessment,omitempty"`
}

// AssertionResult is the verdict for one declared assertion.
type AssertionResult struct {
	Description string `json:"description"`
	Passed      bool   `json:"passed"`
	Detail      string `json:"detail,omitempty"`
}

// ResultPayload is the structured per-step result persisted on the run record.
type ResultPayload struct {
	Evidence   *EvidenceOutcome  `json:"evidence,omitempty"`
	Assertions []AssertionResult `json:"assertions,omitempty"`
}

// Marshal renders the payload for the step row. Returns nil for an empty payload.
func (p *ResultPayload) Marshal() json.RawMessage {
	if p == nil || (p.Evidence == nil && len(p.Assertions) == 0) {
		return nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	return b
}

// PassedAssertions counts the passing assertion verdicts.
func (p *ResultPayload) PassedAssertions() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, a := range p.Assertions {
		if a.Passed {
			n++
		}
	}
	return n
}
