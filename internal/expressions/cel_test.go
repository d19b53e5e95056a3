package expressions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/sagaline/pkg/saga"
)

func TestCELEngine_EvaluateBool(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)
	ctx := context.Background()

	data := map[string]any{
		"run": map[string]any{"mode": "live"},
		"steps": map[string]any{
			"place-order": map[string]any{"status": "passed"},
		},
		"params": map[string]any{"retries": 2},
	}

	tests := []struct {
		expression string
		want       bool
	}{
		{`run.mode == "live"`, true},
		{`steps["place-order"].status == "passed"`, true},
		{`params.retries >= 3`, false},
		{`"missing-step" in steps`, false},
		{`true`, true},
	}
	for _, tt := range tests {
		ok, err := e.EvaluateBool(ctx, tt.expression, data)
		require.NoError(t, err, tt.expression)
		assert.Equal(t, tt.want, ok, tt.expression)
	}
}

func TestCELEngine_MissingKeysDefaultToEmptyMaps(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	ok, err := e.EvaluateBool(context.Background(), `"x" in actors`, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCELEngine_NonBoolResultIsProbeError(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	_, err = e.EvaluateBool(context.Background(), `run.mode`, map[string]any{
		"run": map[string]any{"mode": "live"},
	})
	require.Error(t, err)
	assert.True(t, saga.IsCode(err, saga.ErrCodeProbe))
}

func TestCELEngine_CompileError(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	_, err = e.Evaluate(context.Background(), `run.mode ==`, nil)
	require.Error(t, err)
	assert.True(t, saga.IsCode(err, saga.ErrCodeValidation))
}

func TestCELEngine_UnknownVariableRejected(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	// Only run, steps, actors and params are declared.
	_, err = e.Evaluate(context.Background(), `secrets.token`, nil)
	require.Error(t, err)
	assert.True(t, saga.IsCode(err, saga.ErrCodeValidation))
}
