package expressions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/sagaline/pkg/saga"
)

func TestExprEngine_Evaluate(t *testing.T) {
	e := NewExprEngine()
	ctx := context.Background()

	data := map[string]any{
		"trace": map[string]any{
			"ok": true,
			"data": map[string]any{
				"total": 150,
				"items": []any{
					map[string]any{"sku": "a", "qty": 2},
					map[string]any{"sku": "b", "qty": 0},
				},
			},
		},
	}

	tests := []struct {
		expression string
		want       any
	}{
		{`trace.ok`, true},
		{`trace.data.total > 100`, true},
		{`trace.data.total`, 150},
		{`len(trace.data.items)`, 2},
		{`all(trace.data.items, .qty >= 0)`, true},
		{`any(trace.data.items, .qty == 0)`, true},
		{`trace.data.missing ?? "fallback"`, "fallback"},
	}
	for _, tt := range tests {
		out, err := e.Evaluate(ctx, tt.expression, data)
		require.NoError(t, err, tt.expression)
		assert.EqualValues(t, tt.want, out, tt.expression)
	}
}

func TestExprEngine_EvaluateBool(t *testing.T) {
	e := NewExprEngine()
	ctx := context.Background()

	ok, err := e.EvaluateBool(ctx, `trace.ok`, map[string]any{"trace": map[string]any{"ok": true}})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = e.EvaluateBool(ctx, `"not a bool"`, map[string]any{})
	require.Error(t, err)
	assert.True(t, saga.IsCode(err, saga.ErrCodeEvaluator))
}

func TestExprEngine_CompileError(t *testing.T) {
	e := NewExprEngine()

	_, err := e.Evaluate(context.Background(), `trace.ok ==`, map[string]any{})
	require.Error(t, err)
	assert.True(t, saga.IsCode(err, saga.ErrCodeValidation))
}

func TestExprEngine_EmptyExpression(t *testing.T) {
	e := NewExprEngine()

	_, err := e.Evaluate(context.Background(), "", nil)
	require.Error(t, err)
	assert.True(t, saga.IsCode(err, saga.ErrCodeValidation))
}

func TestExprEngine_CacheReuse(t *testing.T) {
	e := NewExprEngine()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		out, err := e.Evaluate(ctx, `1 + 1`, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 2, out)
	}
	assert.Len(t, e.cache, 1)
}

func TestExprEngine_UndefinedVariablesAllowed(t *testing.T) {
	e := NewExprEngine()

	// Assertions may reference keys absent from a thin trace.
	out, err := e.Evaluate(context.Background(), `actor?.name ?? "unknown"`, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "unknown", out)
}
