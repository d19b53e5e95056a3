package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rendis/sagaline/internal/store"
	"github.com/rendis/sagaline/internal/validation"
	"github.com/rendis/sagaline/pkg/saga"
)

// Service is the engine facade: spec validation, the saga registry, and run
// orchestration behind one surface. The MCP server, the CLI and the scheduler
// all talk to the engine through it.
type Service struct {
	st        store.Store
	validator *validation.SagaValidator
	orch      *Orchestrator
}

// NewService creates the engine facade.
func NewService(st store.Store, validator *validation.SagaValidator, orch *Orchestrator) *Service {
	return &Service{st: st, validator: validator, orch: orch}
}

// Validate parses and validates a raw spec document without registering or
// running it. The returned result carries field-level errors and warnings.
func (s *Service) Validate(ctx context.Context, raw []byte) (*saga.SagaSpec, *saga.ValidationResult) {
	return s.validator.ParseAndValidate(raw)
}

// RegisterSaga validates a raw spec and saves it in the registry under its
// sagaKey. Re-registering an existing key replaces the stored spec.
func (s *Service) RegisterSaga(ctx context.Context, raw []byte) (*saga.SagaSpec, error) {
	spec, result := s.validator.ParseAndValidate(raw)
	if err := result.ToError(); err != nil {
		return nil, err
	}
	rec := &store.SagaRecord{
		SagaKey:   spec.SagaKey,
		Title:     spec.Title,
		Spec:      json.RawMessage(raw),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.st.SaveSaga(ctx, rec); err != nil {
		return nil, saga.NewErrorf(saga.ErrCodeStore, "save saga %q: %s", spec.SagaKey, err.Error()).WithCause(err)
	}
	return spec, nil
}

// StartFromRaw validates a raw spec and starts a run of it immediately,
// without touching the registry.
func (s *Service) StartFromRaw(ctx context.Context, raw []byte, opts RunOptions) (*store.SagaRun, error) {
	spec, result := s.validator.ParseAndValidate(raw)
	if err := result.ToError(); err != nil {
		return nil, err
	}
	return s.orch.StartRun(ctx, spec, opts)
}

// StartRegistered launches a run of a registered saga. Satisfies the
// scheduler's SagaStarter interface.
func (s *Service) StartRegistered(ctx context.Context, sagaKey string, params map[string]any) error {
	rec, err := s.st.GetSaga(ctx, sagaKey)
	if err != nil {
		return err
	}
	spec, result := s.validator.ParseAndValidate(rec.Spec)
	if err := result.ToError(); err != nil {
		return err
	}
	_, err = s.orch.StartRun(ctx, spec, RunOptions{Params: params})
	return err
}

// Status returns a run's read model.
func (s *Service) Status(ctx context.Context, runID string) (*StatusReport, error) {
	return s.orch.Status(ctx, runID)
}

// Cancel signals a run-level cancel.
func (s *Service) Cancel(ctx context.Context, runID string) error {
	return s.orch.Cancel(ctx, runID)
}

// ComposeMessage injects an operator message into an active run.
func (s *Service) ComposeMessage(ctx context.Context, runID, toActorKey string, channel saga.MessageChannel, subject, body string) (*store.ActorMessage, error) {
	return s.orch.ComposeMessage(ctx, runID, toActorKey, channel, subject, body)
}

// ListRuns lists runs matching the filter.
func (s *Service) ListRuns(ctx context.Context, filter store.RunFilter) ([]*store.SagaRun, error) {
	return s.st.ListRuns(ctx, filter)
}
