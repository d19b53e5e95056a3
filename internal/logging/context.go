package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	runIDKey ctxKey = iota
	stepKeyKey
	actorKeyKey
)

// WithRunID returns a context with the run ID set.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// WithStepKey returns a context with the step key set.
func WithStepKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, stepKeyKey, key)
}

// WithActorKey returns a context with the actor key set.
func WithActorKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, actorKeyKey, key)
}

// RunID extracts the run ID from the context, or "" if absent.
func RunID(ctx context.Context) string {
	v, _ := ctx.Value(runIDKey).(string)
	return v
}

// StepKey extracts the step key from the context, or "" if absent.
func StepKey(ctx context.Context) string {
	v, _ := ctx.Value(stepKeyKey).(string)
	return v
}

// ActorKey extracts the actor key from the context, or "" if absent.
func ActorKey(ctx context.Context) string {
	v, _ := ctx.Value(actorKeyKey).(string)
	return v
}

// WithIDs sets all three correlation IDs on the context at once.
func WithIDs(ctx context.Context, runID, stepKey, actorKey string) context.Context {
	ctx = WithRunID(ctx, runID)
	ctx = WithStepKey(ctx, stepKey)
	ctx = WithActorKey(ctx, actorKey)
	return ctx
}

// LogWith returns a logger enriched with correlation IDs from the context.
// Only non-empty values are added as attributes.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := RunID(ctx); id != "" {
		logger = logger.With(slog.String("run_id", id))
	}
	if key := StepKey(ctx); key != "" {
		logger = logger.With(slog.String("step_key", key))
	}
	if key := ActorKey(ctx); key != "" {
		logger = logger.With(slog.String("actor_key", key))
	}
	return logger
}

// CorrelationHandler wraps an slog.Handler, automatically injecting
// correlation IDs from the context into every log record.
// Use with slog.New(NewCorrelationHandler(inner)) so callers can use
// logger.InfoContext(ctx, ...) and IDs appear automatically.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler with automatic correlation ID injection.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if v := RunID(ctx); v != "" {
		r.AddAttrs(slog.String("run_id", v))
	}
	if v := StepKey(ctx); v != "" {
		r.AddAttrs(slog.String("step_key", v))
	}
	if v := ActorKey(ctx); v != "" {
		r.AddAttrs(slog.String("actor_key", v))
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
