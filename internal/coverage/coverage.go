// Package coverage aggregates a terminal run's assertion results into a
// coverage report. It is a pure consumer: it never mutates step state and
// runs only after the run has reached a terminal status.
package coverage

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rendis/sagaline/internal/store"
	"github.com/rendis/sagaline/pkg/saga"
)

// Report is the computed coverage for one terminal run.
type Report struct {
	RunID            string   `json:"runId"`
	CoveragePct      int      `json:"coveragePct"`
	PassedAssertions int      `json:"passedAssertions"`
	TotalAssertions  int      `json:"totalAssertions"`
	Summary          string   `json:"summary"`
	Items            []string `json:"items,omitempty"`
}

// Compute aggregates coverage from the spec and the run's terminal steps.
// CoveragePct is passed assertions over total declared assertions, times 100,
// rounded half-up. Items is the distinct sorted set of tags on the steps the
// run touched (non-skipped).
func Compute(spec *saga.SagaSpec, run *store.SagaRun, steps []*store.SagaRunStep) (*Report, error) {
	if !run.Status.Terminal() {
		return nil, saga.NewErrorf(saga.ErrCodeConflict,
			"coverage requires a terminal run, run %q is %s", run.ID, run.Status)
	}

	total := spec.AssertionCount()

	passed := 0
	tagSet := make(map[string]struct{})

	specSteps := make(map[string]*saga.Step)
	spec.EachStep(func(_ *saga.Phase, s *saga.Step) {
		specSteps[s.StepKey] = s
	})

	for _, row := range steps {
		if row.Status == saga.StepStatusSkipped {
			continue
		}
		if len(row.ResultPayload) > 0 {
			var payload saga.ResultPayload
			if err := json.Unmarshal(row.ResultPayload, &payload); err == nil {
				passed += payload.PassedAssertions()
			}
		}
		if s, ok := specSteps[row.StepKey]; ok {
			for _, t := range s.Tags {
				tagSet[t] = struct{}{}
			}
		}
	}

	pct := 0
	if total > 0 {
		// Round half-up on the integer scale.
		pct = (passed*100*2 + total) / (total * 2)
	} else if run.Status == saga.RunStatusPassed {
		pct = 100
	}

	items := make([]string, 0, len(tagSet))
	for t := range tagSet {
		items = append(items, t)
	}
	sort.Strings(items)

	return &Report{
		RunID:            run.ID,
		CoveragePct:      pct,
		PassedAssertions: passed,
		TotalAssertions:  total,
		Summary: fmt.Sprintf("%d/%d assertions passed (%d%%), %d/%d steps passed",
			passed, total, pct, run.PassedSteps, run.TotalSteps),
		Items: items,
	}, nil
}

// Marshal renders the report as the payload of the run-level coverage artifact.
func (r *Report) Marshal() json.RawMessage {
	b, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	return b
}
