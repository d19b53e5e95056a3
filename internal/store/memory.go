package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation, used in tests and for
// throwaway dry_run sessions where persistence across processes is not needed.
type MemoryStore struct {
	mu        sync.RWMutex
	sagas     map[string]*SagaRecord
	runs      map[string]*SagaRun
	steps     map[string]map[string]*SagaRunStep // runID -> stepKey -> row
	artifacts map[string][]*SagaArtifact
	profiles  map[string][]*ActorProfile
	messages  map[string][]*ActorMessage
	schedules map[string]*ScheduledRun
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sagas:     make(map[string]*SagaRecord),
		runs:      make(map[string]*SagaRun),
		steps:     make(map[string]map[string]*SagaRunStep),
		artifacts: make(map[string][]*SagaArtifact),
		profiles:  make(map[string][]*ActorProfile),
		messages:  make(map[string][]*ActorMessage),
		schedules: make(map[string]*ScheduledRun),
	}
}

func (m *MemoryStore) SaveSaga(_ context.Context, rec *SagaRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	cp.UpdatedAt = time.Now().UTC()
	m.sagas[rec.SagaKey] = &cp
	return nil
}

func (m *MemoryStore) GetSaga(_ context.Context, sagaKey string) (*SagaRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sagas[sagaKey]
	if !ok {
		return nil, storeNotFound("saga", sagaKey)
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryStore) ListSagas(_ context.Context) ([]*SagaRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*SagaRecord, 0, len(m.sagas))
	for _, rec := range m.sagas {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SagaKey < out[j].SagaKey })
	return out, nil
}

func (m *MemoryStore) DeleteSaga(_ context.Context, sagaKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sagas[sagaKey]; !ok {
		return storeNotFound("saga", sagaKey)
	}
	delete(m.sagas, sagaKey)
	return nil
}

func (m *MemoryStore) CreateRun(_ context.Context, run *SagaRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	m.runs[run.ID] = &cp
	return nil
}

func (m *MemoryStore) GetRun(_ context.Context, id string) (*SagaRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, storeNotFound("run", id)
	}
	cp := *run
	return &cp, nil
}

func (m *MemoryStore) UpdateRun(_ context.Context, id string, update RunUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return storeNotFound("run", id)
	}
	if update.Status != nil {
		run.Status = *update.Status
	}
	if update.TotalSteps != nil {
		run.TotalSteps = *update.TotalSteps
	}
	if update.PassedSteps != nil {
		run.PassedSteps = *update.PassedSteps
	}
	if update.FailedSteps != nil {
		run.FailedSteps = *update.FailedSteps
	}
	if update.SkippedSteps != nil {
		run.SkippedSteps = *update.SkippedSteps
	}
	if update.CoveragePct != nil {
		pct := *update.CoveragePct
		run.CoveragePct = &pct
	}
	if update.CoverageSummary != nil {
		run.CoverageSummary = *update.CoverageSummary
	}
	if len(update.Error) > 0 {
		run.Error = update.Error
	}
	if update.StartedAt != nil {
		t := *update.StartedAt
		run.StartedAt = &t
	}
	if update.CompletedAt != nil {
		t := *update.CompletedAt
		run.CompletedAt = &t
	}
	return nil
}

func (m *MemoryStore) ListRuns(_ context.Context, filter RunFilter) ([]*SagaRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*SagaRun
	for _, run := range m.runs {
		if filter.SagaKey != "" && run.SagaKey != filter.SagaKey {
			continue
		}
		if filter.Status != nil && run.Status != *filter.Status {
			continue
		}
		if filter.Since != nil && run.CreatedAt.Before(*filter.Since) {
			continue
		}
		cp := *run
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryStore) UpsertRunStep(_ context.Context, step *SagaRunStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.steps[step.RunID] == nil {
		m.steps[step.RunID] = make(map[string]*SagaRunStep)
	}
	cp := *step
	m.steps[step.RunID][step.StepKey] = &cp
	return nil
}

func (m *MemoryStore) GetRunStep(_ context.Context, runID, stepKey string) (*SagaRunStep, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	step, ok := m.steps[runID][stepKey]
	if !ok {
		return nil, storeNotFound("run step", stepKey)
	}
	cp := *step
	return &cp, nil
}

func (m *MemoryStore) ListRunSteps(_ context.Context, runID string) ([]*SagaRunStep, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*SagaRunStep, 0, len(m.steps[runID]))
	for _, step := range m.steps[runID] {
		cp := *step
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := out[i], out[j]
		switch {
		case si.StartedAt == nil && sj.StartedAt == nil:
			return si.StepKey < sj.StepKey
		case si.StartedAt == nil:
			return false
		case sj.StartedAt == nil:
			return true
		case si.StartedAt.Equal(*sj.StartedAt):
			return si.StepKey < sj.StepKey
		default:
			return si.StartedAt.Before(*sj.StartedAt)
		}
	})
	return out, nil
}

func (m *MemoryStore) CreateArtifact(_ context.Context, artifact *SagaArtifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *artifact
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	m.artifacts[artifact.RunID] = append(m.artifacts[artifact.RunID], &cp)
	return nil
}

func (m *MemoryStore) ListArtifacts(_ context.Context, runID string) ([]*SagaArtifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*SagaArtifact, 0, len(m.artifacts[runID]))
	for _, a := range m.artifacts[runID] {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) CreateActorProfiles(_ context.Context, profiles []*ActorProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range profiles {
		cp := *p
		m.profiles[p.RunID] = append(m.profiles[p.RunID], &cp)
	}
	return nil
}

func (m *MemoryStore) ListActorProfiles(_ context.Context, runID string) ([]*ActorProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*ActorProfile, 0, len(m.profiles[runID]))
	for _, p := range m.profiles[runID] {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) AppendMessage(_ context.Context, msg *ActorMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.messages[msg.RunID] = append(m.messages[msg.RunID], &cp)
	return nil
}

func (m *MemoryStore) ListMessages(_ context.Context, runID string) ([]*ActorMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*ActorMessage, 0, len(m.messages[runID]))
	for _, msg := range m.messages[runID] {
		cp := *msg
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (m *MemoryStore) CreateScheduledRun(_ context.Context, sched *ScheduledRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sched
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	m.schedules[sched.ID] = &cp
	return nil
}

func (m *MemoryStore) GetScheduledRun(_ context.Context, id string) (*ScheduledRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sched, ok := m.schedules[id]
	if !ok {
		return nil, storeNotFound("scheduled run", id)
	}
	cp := *sched
	return &cp, nil
}

func (m *MemoryStore) UpdateScheduledRun(_ context.Context, id string, update ScheduledRunUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sched, ok := m.schedules[id]
	if !ok {
		return storeNotFound("scheduled run", id)
	}
	if update.Enabled != nil {
		sched.Enabled = *update.Enabled
	}
	if update.LastRunAt != nil {
		t := *update.LastRunAt
		sched.LastRunAt = &t
	}
	if update.NextRunAt != nil {
		t := *update.NextRunAt
		sched.NextRunAt = &t
	}
	if update.LastRunStatus != "" {
		sched.LastRunStatus = update.LastRunStatus
	}
	return nil
}

func (m *MemoryStore) ListScheduledRuns(_ context.Context, filter ScheduledRunFilter) ([]*ScheduledRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ScheduledRun
	for _, sched := range m.schedules {
		if filter.SagaKey != "" && sched.SagaKey != filter.SagaKey {
			continue
		}
		if filter.Enabled != nil && sched.Enabled != *filter.Enabled {
			continue
		}
		cp := *sched
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryStore) DeleteScheduledRun(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[id]; !ok {
		return storeNotFound("scheduled run", id)
	}
	delete(m.schedules, id)
	return nil
}

func (m *MemoryStore) Migrate(_ context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
