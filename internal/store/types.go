package store

import (
	"encoding/json"
	"time"

	"github.com/rendis/sagaline/pkg/saga"
)

// SagaRecord is a registered saga specification, keyed by sagaKey.
// Scheduled runs and the MCP surface reference sagas through this registry.
type SagaRecord struct {
	SagaKey   string          `json:"sagaKey"`
	Title     string          `json:"title,omitempty"`
	Spec      json.RawMessage `json:"spec"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// SagaRun is the persisted mutable aggregate for one execution of a saga.
// Counters are derived from step statuses by the orchestrator; they are never
// hand-edited and always equal the sum of step statuses at any observation
// point. At terminal state, blocked steps are reported under FailedSteps.
type SagaRun struct {
	ID              string          `json:"id"`
	SagaKey         string          `json:"sagaKey"`
	Mode            saga.RunMode    `json:"mode"`
	Status          saga.RunStatus  `json:"status"`
	TotalSteps      int             `json:"totalSteps"`
	PassedSteps     int             `json:"passedSteps"`
	FailedSteps     int             `json:"failedSteps"`
	SkippedSteps    int             `json:"skippedSteps"`
	CoveragePct     *int            `json:"coveragePct,omitempty"`
	CoverageSummary string          `json:"coverageSummary,omitempty"`
	Error           json.RawMessage `json:"error,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	StartedAt       *time.Time      `json:"startedAt,omitempty"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
}

// SagaRunStep is the persisted state of one spec step within one run.
// Created when the orchestrator enters the step; transitions only forward.
type SagaRunStep struct {
	ID               string          `json:"id"`
	RunID            string          `json:"runId"`
	StepKey          string          `json:"stepKey"`
	PhaseKey         string          `json:"phaseKey"`
	ActorKey         string          `json:"actorKey"`
	Class            saga.StepClass  `json:"class"`
	Status           saga.StepStatus `json:"status"`
	ResultPayload    json.RawMessage `json:"resultPayload,omitempty"`
	AssertionSummary string          `json:"assertionSummary,omitempty"`
	FailureMessage   string          `json:"failureMessage,omitempty"`
	DurationMs       int64           `json:"durationMs,omitempty"`
	StartedAt        *time.Time      `json:"startedAt,omitempty"`
	CompletedAt      *time.Time      `json:"completedAt,omitempty"`
}

// SagaArtifact is a captured evidence record. SagaRunStepID is empty for
// run-level artifacts (e.g. the coverage report).
type SagaArtifact struct {
	ID            string          `json:"id"`
	RunID         string          `json:"runId"`
	SagaRunStepID string          `json:"sagaRunStepId,omitempty"`
	ArtifactType  string          `json:"artifactType"`
	Title         string          `json:"title,omitempty"`
	ContentType   string          `json:"contentType,omitempty"`
	StoragePath   string          `json:"storagePath,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ActorProfile is the per-run materialization of a spec actor. The messaging
// bus resolves message targets against these rows.
type ActorProfile struct {
	RunID    string `json:"runId"`
	ActorKey string `json:"actorKey"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Persona  string `json:"persona,omitempty"`
}

// ActorMessage is a simulated inter-actor message. History is append-only:
// once delivered or failed a message is never edited, corrections are new
// messages. Seq is a monotonically increasing per-run sequence assigned by
// the mailbox for deterministic replay ordering.
type ActorMessage struct {
	ID            string              `json:"id"`
	RunID         string              `json:"runId"`
	SagaRunStepID string              `json:"sagaRunStepId,omitempty"`
	FromActorKey  string              `json:"fromActorKey,omitempty"`
	ToActorKey    string              `json:"toActorKey,omitempty"`
	Channel       saga.MessageChannel `json:"channel"`
	Status        saga.MessageStatus  `json:"status"`
	Subject       string              `json:"subject,omitempty"`
	BodyText      string              `json:"bodyText"`
	Seq           int64               `json:"seq"`
	QueuedAt      time.Time           `json:"queuedAt"`
	SentAt        *time.Time          `json:"sentAt,omitempty"`
	DeliveredAt   *time.Time          `json:"deliveredAt,omitempty"`
	FailedAt      *time.Time          `json:"failedAt,omitempty"`
}

// ScheduledRun is a cron-triggered recurring execution of a registered saga.
type ScheduledRun struct {
	ID             string          `json:"id"`
	SagaKey        string          `json:"sagaKey"`
	CronExpression string          `json:"cronExpression"`
	Params         json.RawMessage `json:"params,omitempty"`
	Enabled        bool            `json:"enabled"`
	LastRunAt      *time.Time      `json:"lastRunAt,omitempty"`
	NextRunAt      *time.Time      `json:"nextRunAt,omitempty"`
	LastRunStatus  string          `json:"lastRunStatus,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// --- Filter and update types ---

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	SagaKey string          `json:"sagaKey,omitempty"`
	Status  *saga.RunStatus `json:"status,omitempty"`
	Since   *time.Time      `json:"since,omitempty"`
	Limit   int             `json:"limit,omitempty"`
	Offset  int             `json:"offset,omitempty"`
}

// RunUpdate specifies mutable fields of a run.
type RunUpdate struct {
	Status          *saga.RunStatus `json:"status,omitempty"`
	TotalSteps      *int            `json:"totalSteps,omitempty"`
	PassedSteps     *int            `json:"passedSteps,omitempty"`
	FailedSteps     *int            `json:"failedSteps,omitempty"`
	SkippedSteps    *int            `json:"skippedSteps,omitempty"`
	CoveragePct     *int            `json:"coveragePct,omitempty"`
	CoverageSummary *string         `json:"coverageSummary,omitempty"`
	Error           json.RawMessage `json:"error,omitempty"`
	StartedAt       *time.Time      `json:"startedAt,omitempty"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
}

// ScheduledRunUpdate specifies mutable fields of a scheduled run.
type ScheduledRunUpdate struct {
	Enabled       *bool      `json:"enabled,omitempty"`
	LastRunAt     *time.Time `json:"lastRunAt,omitempty"`
	NextRunAt     *time.Time `json:"nextRunAt,omitempty"`
	LastRunStatus string     `json:"lastRunStatus,omitempty"`
}

// ScheduledRunFilter specifies criteria for listing scheduled runs.
type ScheduledRunFilter struct {
	SagaKey string `json:"sagaKey,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}
