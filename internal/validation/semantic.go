package validation

import (
	"fmt"

	"github.com/rendis/sagaline/pkg/saga"
)

// validateSemantic performs semantic analysis on a structurally valid spec.
// Checks: key uniqueness (actors, phases, steps), actorKey referential
// integrity, and the delay-mode payload invariant. All violations are
// collected; nothing short-circuits within this pass.
func validateSemantic(spec *saga.SagaSpec) *saga.ValidationResult {
	result := &saga.ValidationResult{}

	actorKeys := make(map[string]bool, len(spec.Actors))
	for i, a := range spec.Actors {
		path := fmt.Sprintf("actors[%d].actorKey", i)
		if actorKeys[a.ActorKey] {
			result.AddError(path, saga.ErrCodeValidation,
				fmt.Sprintf("duplicate actor key %q", a.ActorKey))
		}
		actorKeys[a.ActorKey] = true
	}

	phaseKeys := make(map[string]bool, len(spec.Phases))
	stepKeys := make(map[string]bool, spec.StepCount())

	for pi := range spec.Phases {
		phase := &spec.Phases[pi]
		phasePath := fmt.Sprintf("phases[%d]", pi)

		if phaseKeys[phase.PhaseKey] {
			result.AddError(phasePath+".phaseKey", saga.ErrCodeValidation,
				fmt.Sprintf("duplicate phase key %q", phase.PhaseKey))
		}
		phaseKeys[phase.PhaseKey] = true

		for si := range phase.Steps {
			step := &phase.Steps[si]
			stepPath := fmt.Sprintf("%s.steps[%d]", phasePath, si)

			// Step keys are unique across the whole spec, not just the phase.
			if stepKeys[step.StepKey] {
				result.AddError(stepPath+".stepKey", saga.ErrCodeValidation,
					fmt.Sprintf("duplicate step key %q", step.StepKey))
			}
			stepKeys[step.StepKey] = true

			if !actorKeys[step.ActorKey] {
				result.AddError(stepPath+".actorKey", saga.ErrCodeValidation,
					fmt.Sprintf("references non-existent actor %q", step.ActorKey))
			}

			for ei, ev := range step.EvidenceRequired {
				if !ev.Kind.Known() && !ev.Kind.Custom() {
					result.AddError(fmt.Sprintf("%s.evidenceRequired[%d].kind", stepPath, ei),
						saga.ErrCodeValidation,
						fmt.Sprintf("unknown evidence kind %q (expected engine-known value or custom_ prefix)", ev.Kind))
				}
			}

			validateDelay(step.Delay, stepPath+".delay", result)
		}
	}

	return result
}

// validateDelay enforces the delay-mode payload invariant at validation time
// so the runtime engine never has to second-guess the pairing.
func validateDelay(d *saga.Delay, path string, result *saga.ValidationResult) {
	if d == nil {
		return
	}

	mode := d.Mode
	if mode == "" {
		mode = saga.DelayModeNone
	}

	switch mode {
	case saga.DelayModeNone:
		if d.DelayMs != 0 {
			result.AddError(path+".delayMs", saga.ErrCodeValidation,
				"delayMs is only valid with mode \"fixed\"")
		}
		if d.ConditionKey != "" {
			result.AddError(path+".conditionKey", saga.ErrCodeValidation,
				"conditionKey is only valid with mode \"until_condition\"")
		}

	case saga.DelayModeFixed:
		if d.DelayMs <= 0 {
			result.AddError(path+".delayMs", saga.ErrCodeValidation,
				"mode \"fixed\" requires a positive delayMs")
		}
		if d.ConditionKey != "" {
			result.AddError(path+".conditionKey", saga.ErrCodeValidation,
				"conditionKey is only valid with mode \"until_condition\"")
		}

	case saga.DelayModeUntilCondition:
		if d.ConditionKey == "" {
			result.AddError(path+".conditionKey", saga.ErrCodeValidation,
				"mode \"until_condition\" requires a conditionKey")
		}
		if d.DelayMs != 0 {
			result.AddError(path+".delayMs", saga.ErrCodeValidation,
				"delayMs is only valid with mode \"fixed\"")
		}
		if d.TimeoutMs == 0 {
			result.AddWarning(path+".timeoutMs", saga.ErrCodeValidation,
				"no timeoutMs declared; the engine default condition timeout applies")
		}

	default:
		result.AddError(path+".mode", saga.ErrCodeValidation,
			fmt.Sprintf("unknown delay mode %q", mode))
	}
}
