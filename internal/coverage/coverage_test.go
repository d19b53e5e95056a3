package coverage

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/sagaline/internal/store"
	"github.com/rendis/sagaline/pkg/saga"
)

// specWithAssertions builds a single-phase spec whose steps carry the given
// assertion counts and tags.
func specWithAssertions(t *testing.T, counts []int, tags [][]string) *saga.SagaSpec {
	t.Helper()
	steps := ""
	for i, n := range counts {
		assertions := ""
		for j := 0; j < n; j++ {
			if j > 0 {
				assertions += ","
			}
			assertions += fmt.Sprintf(`{"description": "a%d-%d"}`, i, j)
		}
		tagList := ""
		if i < len(tags) {
			for k, tag := range tags[i] {
				if k > 0 {
					tagList += ","
				}
				tagList += fmt.Sprintf("%q", tag)
			}
		}
		if i > 0 {
			steps += ","
		}
		steps += fmt.Sprintf(`{"stepKey": "s%d", "order": %d, "actorKey": "buyer", "tags": [%s], "assertions": [%s]}`,
			i+1, i+1, tagList, assertions)
	}
	doc := fmt.Sprintf(`{
		"schemaVersion": "saga.v0",
		"sagaKey": "coverage-fixture",
		"defaults": {},
		"actors": [{"actorKey": "buyer"}],
		"phases": [{"phaseKey": "main", "order": 1, "steps": [%s]}]
	}`, steps)
	spec, err := saga.ParseSpec([]byte(doc))
	require.NoError(t, err)
	return spec
}

// stepRow builds a terminal step row whose payload reports the given
// passed/failed assertion split.
func stepRow(stepKey string, status saga.StepStatus, passed, failed int) *store.SagaRunStep {
	payload := &saga.ResultPayload{}
	for i := 0; i < passed; i++ {
		payload.Assertions = append(payload.Assertions, saga.AssertionResult{Passed: true})
	}
	for i := 0; i < failed; i++ {
		payload.Assertions = append(payload.Assertions, saga.AssertionResult{Passed: false})
	}
	return &store.SagaRunStep{
		RunID:         "run-1",
		StepKey:       stepKey,
		Status:        status,
		ResultPayload: payload.Marshal(),
	}
}

func terminalRun(status saga.RunStatus) *store.SagaRun {
	return &store.SagaRun{ID: "run-1", SagaKey: "coverage-fixture", Status: status}
}

func TestCompute_FullCoverage(t *testing.T) {
	spec := specWithAssertions(t, []int{2, 3}, nil)
	steps := []*store.SagaRunStep{
		stepRow("s1", saga.StepStatusPassed, 2, 0),
		stepRow("s2", saga.StepStatusPassed, 3, 0),
	}

	report, err := Compute(spec, terminalRun(saga.RunStatusPassed), steps)
	require.NoError(t, err)
	assert.Equal(t, 100, report.CoveragePct)
	assert.Equal(t, 5, report.PassedAssertions)
	assert.Equal(t, 5, report.TotalAssertions)
}

func TestCompute_RoundsHalfUp(t *testing.T) {
	tests := []struct {
		passed, total int
		want          int
	}{
		{1, 3, 33},  // 33.33 rounds down
		{2, 3, 67},  // 66.67 rounds up
		{1, 8, 13},  // 12.5 rounds up at the half
		{1, 2, 50},  // exact
		{0, 4, 0},   // nothing passed
		{7, 8, 88},  // 87.5 rounds up
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_of_%d", tt.passed, tt.total), func(t *testing.T) {
			spec := specWithAssertions(t, []int{tt.total}, nil)
			steps := []*store.SagaRunStep{
				stepRow("s1", saga.StepStatusFailed, tt.passed, tt.total-tt.passed),
			}
			report, err := Compute(spec, terminalRun(saga.RunStatusFailed), steps)
			require.NoError(t, err)
			assert.Equal(t, tt.want, report.CoveragePct)
		})
	}
}

func TestCompute_SkippedStepsExcluded(t *testing.T) {
	spec := specWithAssertions(t, []int{2, 2}, nil)
	steps := []*store.SagaRunStep{
		stepRow("s1", saga.StepStatusPassed, 2, 0),
		// A skipped step's payload, if any, never counts.
		stepRow("s2", saga.StepStatusSkipped, 2, 0),
	}

	report, err := Compute(spec, terminalRun(saga.RunStatusFailed), steps)
	require.NoError(t, err)
	assert.Equal(t, 2, report.PassedAssertions)
	assert.Equal(t, 4, report.TotalAssertions)
	assert.Equal(t, 50, report.CoveragePct)
}

func TestCompute_TagsDistinctSorted(t *testing.T) {
	spec := specWithAssertions(t, []int{1, 1, 1},
		[][]string{{"refund", "checkout"}, {"checkout"}, {"hidden"}})
	steps := []*store.SagaRunStep{
		stepRow("s1", saga.StepStatusPassed, 1, 0),
		stepRow("s2", saga.StepStatusPassed, 1, 0),
		stepRow("s3", saga.StepStatusSkipped, 0, 0),
	}

	report, err := Compute(spec, terminalRun(saga.RunStatusFailed), steps)
	require.NoError(t, err)
	assert.Equal(t, []string{"checkout", "refund"}, report.Items,
		"distinct, sorted, skipped steps contribute nothing")
}

func TestCompute_ZeroAssertions(t *testing.T) {
	spec := specWithAssertions(t, []int{0}, nil)
	steps := []*store.SagaRunStep{stepRow("s1", saga.StepStatusPassed, 0, 0)}

	report, err := Compute(spec, terminalRun(saga.RunStatusPassed), steps)
	require.NoError(t, err)
	assert.Equal(t, 100, report.CoveragePct, "a passed run with nothing to assert is fully covered")

	report, err = Compute(spec, terminalRun(saga.RunStatusFailed), steps)
	require.NoError(t, err)
	assert.Equal(t, 0, report.CoveragePct)
}

func TestCompute_NonTerminalRunRejected(t *testing.T) {
	spec := specWithAssertions(t, []int{1}, nil)

	_, err := Compute(spec, terminalRun(saga.RunStatusRunning), nil)
	require.Error(t, err)
	assert.True(t, saga.IsCode(err, saga.ErrCodeConflict))
}

func TestReport_Marshal(t *testing.T) {
	spec := specWithAssertions(t, []int{2}, nil)
	steps := []*store.SagaRunStep{stepRow("s1", saga.StepStatusPassed, 2, 0)}

	report, err := Compute(spec, terminalRun(saga.RunStatusPassed), steps)
	require.NoError(t, err)

	raw := report.Marshal()
	require.NotNil(t, raw)
	assert.Contains(t, string(raw), `"coveragePct":100`)
	assert.Contains(t, string(raw), `"summary"`)
}
