package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/sagaline/internal/expressions"
	"github.com/rendis/sagaline/pkg/saga"
)

// probeFunc adapts a function to the ConditionProbe interface.
type probeFunc func(ctx context.Context, conditionKey string, state map[string]any) (bool, error)

func (f probeFunc) Satisfied(ctx context.Context, conditionKey string, state map[string]any) (bool, error) {
	return f(ctx, conditionKey, state)
}

// newTestDelayEngine returns an engine with instant sleeps and a fake clock
// that advances by each requested sleep duration.
func newTestDelayEngine(probe ConditionProbe) (*DelayEngine, *time.Duration) {
	elapsed := new(time.Duration)
	d := NewDelayEngine(probe)
	base := time.Now()
	d.now = func() time.Time { return base.Add(*elapsed) }
	d.sleep = func(ctx context.Context, dur time.Duration) error {
		if ctx.Err() != nil {
			return saga.NewError(saga.ErrCodeCancelled, "run cancelled").WithCause(ctx.Err())
		}
		*elapsed += dur
		return nil
	}
	return d, elapsed
}

func TestDelayEngine_ModeNone(t *testing.T) {
	d, elapsed := newTestDelayEngine(nil)

	out, err := d.Resolve(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.False(t, out.TimedOut)

	out, err = d.Resolve(context.Background(), &saga.Delay{Mode: saga.DelayModeNone}, nil)
	require.NoError(t, err)
	assert.False(t, out.TimedOut)
	assert.Zero(t, *elapsed)
}

func TestDelayEngine_Fixed(t *testing.T) {
	d, elapsed := newTestDelayEngine(nil)

	out, err := d.Resolve(context.Background(), &saga.Delay{
		Mode:    saga.DelayModeFixed,
		DelayMs: 500,
	}, nil)
	require.NoError(t, err)
	assert.False(t, out.TimedOut)
	assert.Equal(t, 500*time.Millisecond, *elapsed)
}

func TestDelayEngine_FixedWithJitter(t *testing.T) {
	d, elapsed := newTestDelayEngine(nil)

	_, err := d.Resolve(context.Background(), &saga.Delay{
		Mode:     saga.DelayModeFixed,
		DelayMs:  100,
		JitterMs: 50,
	}, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, *elapsed, 100*time.Millisecond)
	assert.LessOrEqual(t, *elapsed, 150*time.Millisecond)
}

func TestDelayEngine_UntilConditionSatisfied(t *testing.T) {
	var polls atomic.Int64
	probe := probeFunc(func(_ context.Context, key string, _ map[string]any) (bool, error) {
		assert.Equal(t, "order-settled", key)
		return polls.Add(1) >= 3, nil
	})
	d, _ := newTestDelayEngine(probe)

	out, err := d.Resolve(context.Background(), &saga.Delay{
		Mode:         saga.DelayModeUntilCondition,
		ConditionKey: "order-settled",
		PollMs:       250,
		TimeoutMs:    10000,
	}, nil)
	require.NoError(t, err)
	assert.False(t, out.TimedOut)
	assert.Equal(t, int64(3), polls.Load())
}

func TestDelayEngine_UntilConditionTimeout(t *testing.T) {
	var polls atomic.Int64
	probe := probeFunc(func(_ context.Context, _ string, _ map[string]any) (bool, error) {
		polls.Add(1)
		return false, nil
	})
	d, _ := newTestDelayEngine(probe)

	out, err := d.Resolve(context.Background(), &saga.Delay{
		Mode:         saga.DelayModeUntilCondition,
		ConditionKey: "order-settled",
		PollMs:       250,
		TimeoutMs:    2000,
	}, nil)
	require.NoError(t, err)
	assert.True(t, out.TimedOut)
	// 2000ms budget at 250ms per poll: 8 polls, the 9th would overshoot.
	assert.Equal(t, int64(8), polls.Load())
	assert.Contains(t, out.FailureMessage, "order-settled")
	assert.Contains(t, out.FailureMessage, "timeout")
}

func TestDelayEngine_ProbeErrorPropagates(t *testing.T) {
	probe := probeFunc(func(_ context.Context, key string, _ map[string]any) (bool, error) {
		return false, saga.NewErrorf(saga.ErrCodeProbe, "no condition registered for key %q", key)
	})
	d, _ := newTestDelayEngine(probe)

	_, err := d.Resolve(context.Background(), &saga.Delay{
		Mode:         saga.DelayModeUntilCondition,
		ConditionKey: "typo-key",
		TimeoutMs:    2000,
	}, nil)
	require.Error(t, err)
	assert.True(t, saga.IsCode(err, saga.ErrCodeProbe))
}

func TestDelayEngine_CancellationDuringSleep(t *testing.T) {
	d := NewDelayEngine(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Resolve(ctx, &saga.Delay{Mode: saga.DelayModeFixed, DelayMs: 5000}, nil)
	require.Error(t, err)
	assert.True(t, saga.IsCode(err, saga.ErrCodeCancelled))
}

func TestCELConditionProbe(t *testing.T) {
	celEngine, err := expressions.NewCELEngine()
	require.NoError(t, err)

	probe := NewCELConditionProbe(celEngine, map[string]string{
		"order-settled": `steps["place-order"].status == "passed"`,
	})

	state := map[string]any{
		"steps": map[string]any{
			"place-order": map[string]any{"status": "passed"},
		},
	}
	ok, err := probe.Satisfied(context.Background(), "order-settled", state)
	require.NoError(t, err)
	assert.True(t, ok)

	state["steps"] = map[string]any{"place-order": map[string]any{"status": "failed"}}
	ok, err = probe.Satisfied(context.Background(), "order-settled", state)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = probe.Satisfied(context.Background(), "unknown-key", state)
	require.Error(t, err)
	assert.True(t, saga.IsCode(err, saga.ErrCodeProbe))
}
