package store

import "context"

// Store defines the persistence collaborator contract. The engine is a writer
// of the run record, never a reader of its own historical output mid-run.
// All implementations must be safe for concurrent use.
type Store interface {
	// Saga registry
	SaveSaga(ctx context.Context, rec *SagaRecord) error
	GetSaga(ctx context.Context, sagaKey string) (*SagaRecord, error)
	ListSagas(ctx context.Context) ([]*SagaRecord, error)
	DeleteSaga(ctx context.Context, sagaKey string) error

	// Runs
	CreateRun(ctx context.Context, run *SagaRun) error
	GetRun(ctx context.Context, id string) (*SagaRun, error)
	UpdateRun(ctx context.Context, id string, update RunUpdate) error
	ListRuns(ctx context.Context, filter RunFilter) ([]*SagaRun, error)

	// Run steps
	UpsertRunStep(ctx context.Context, step *SagaRunStep) error
	GetRunStep(ctx context.Context, runID, stepKey string) (*SagaRunStep, error)
	ListRunSteps(ctx context.Context, runID string) ([]*SagaRunStep, error)

	// Artifacts
	CreateArtifact(ctx context.Context, artifact *SagaArtifact) error
	ListArtifacts(ctx context.Context, runID string) ([]*SagaArtifact, error)

	// Actor profiles
	CreateActorProfiles(ctx context.Context, profiles []*ActorProfile) error
	ListActorProfiles(ctx context.Context, runID string) ([]*ActorProfile, error)

	// Actor messages (append-only)
	AppendMessage(ctx context.Context, msg *ActorMessage) error
	ListMessages(ctx context.Context, runID string) ([]*ActorMessage, error)

	// Scheduled runs
	CreateScheduledRun(ctx context.Context, sched *ScheduledRun) error
	GetScheduledRun(ctx context.Context, id string) (*ScheduledRun, error)
	UpdateScheduledRun(ctx context.Context, id string, update ScheduledRunUpdate) error
	ListScheduledRuns(ctx context.Context, filter ScheduledRunFilter) ([]*ScheduledRun, error)
	DeleteScheduledRun(ctx context.Context, id string) error

	// Maintenance
	Migrate(ctx context.Context) error

	// Lifecycle
	Close() error
}
