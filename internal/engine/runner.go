package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/sagaline/internal/coverage"
	"github.com/rendis/sagaline/internal/evaluator"
	"github.com/rendis/sagaline/internal/logging"
	"github.com/rendis/sagaline/internal/mailbox"
	"github.com/rendis/sagaline/internal/store"
	"github.com/rendis/sagaline/pkg/saga"
)

// RunOptions configures one saga execution.
type RunOptions struct {
	// Mode overrides the spec's defaults.runMode when set.
	Mode saga.RunMode
	// Params are operator-supplied values exposed to condition probes.
	Params map[string]any
}

// StatusReport is the read model returned by Status: the run row, its step
// rows and the message history, assembled for external consumption.
type StatusReport struct {
	Run      *store.SagaRun        `json:"run"`
	Steps    []*store.SagaRunStep  `json:"steps"`
	Messages []*store.ActorMessage `json:"messages,omitempty"`
}

// activeRun tracks an in-flight run's cancel handle and mailbox.
type activeRun struct {
	cancel  context.CancelFunc
	mailbox *mailbox.Mailbox
}

// Orchestrator drives saga runs to a terminal state. Per-run execution is
// single-threaded cooperative: phases in ascending order, steps in ascending
// order within each phase, step N+1 never starting before step N is terminal.
// Multiple runs execute concurrently, bounded by the run pool, with no shared
// mutable state between them beyond the store.
type Orchestrator struct {
	st        store.Store
	runFSM    *RunFSM
	stepFSM   *StepFSM
	delay     *DelayEngine
	eval      *evaluator.Evaluator
	contracts *evaluator.ContractRegistry
	pool      *RunPool
	logger    *slog.Logger

	mu     sync.Mutex
	active map[string]*activeRun
}

// NewOrchestrator wires the orchestrator from its collaborators.
func NewOrchestrator(st store.Store, delayEngine *DelayEngine, eval *evaluator.Evaluator, contracts *evaluator.ContractRegistry, pool *RunPool, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		st:        st,
		runFSM:    NewRunFSM(),
		stepFSM:   NewStepFSM(),
		delay:     delayEngine,
		eval:      eval,
		contracts: contracts,
		pool:      pool,
		logger:    logger,
	}
}

// StartRun creates the run record, materializes actor profiles, and submits
// the run to the pool. It returns as soon as the run is accepted; execution
// proceeds asynchronously. The spec must already be validated.
func (o *Orchestrator) StartRun(ctx context.Context, spec *saga.SagaSpec, opts RunOptions) (*store.SagaRun, error) {
	mode := spec.Defaults.RunMode
	if opts.Mode != "" {
		mode = opts.Mode
	}
	if mode == "" {
		mode = saga.RunModeDryRun
	}

	run := &store.SagaRun{
		ID:         uuid.NewString(),
		SagaKey:    spec.SagaKey,
		Mode:       mode,
		Status:     saga.RunStatusPending,
		TotalSteps: spec.StepCount(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := o.st.CreateRun(ctx, run); err != nil {
		return nil, saga.NewErrorf(saga.ErrCodeStore, "create run: %s", err.Error()).WithCause(err)
	}

	profiles := make([]*store.ActorProfile, 0, len(spec.Actors))
	for _, a := range spec.Actors {
		profiles = append(profiles, &store.ActorProfile{
			RunID:    run.ID,
			ActorKey: a.ActorKey,
			Name:     a.Name,
			Role:     a.Role,
			Email:    a.Email,
			Phone:    a.Phone,
			Persona:  a.Persona,
		})
	}
	if err := o.st.CreateActorProfiles(ctx, profiles); err != nil {
		return nil, saga.NewErrorf(saga.ErrCodeStore, "create actor profiles: %s", err.Error()).WithCause(err)
	}

	// The run outlives the caller's request context.
	runCtx, cancel := context.WithCancel(context.Background())
	runCtx = logging.WithRunID(runCtx, run.ID)

	box := mailbox.New(run.ID, profiles, o.st, o.logger)
	o.mu.Lock()
	if o.active == nil {
		o.active = make(map[string]*activeRun)
	}
	o.active[run.ID] = &activeRun{cancel: cancel, mailbox: box}
	o.mu.Unlock()

	specCopy := spec
	params := opts.Params
	if err := o.pool.Submit(ctx, func(poolCtx context.Context) error {
		defer o.unregister(run.ID)
		return o.execute(runCtx, specCopy, run, box, params)
	}); err != nil {
		o.unregister(run.ID)
		return nil, err
	}

	return run, nil
}

func (o *Orchestrator) unregister(runID string) {
	o.mu.Lock()
	if a, ok := o.active[runID]; ok {
		a.cancel()
		delete(o.active, runID)
	}
	o.mu.Unlock()
}

// Cancel signals a run-level cancel. For an in-flight run the signal is
// observed at the next suspension point or step boundary; a pending run is
// finalized immediately. Cancelling a run already in a terminal state is an
// invalid transition.
func (o *Orchestrator) Cancel(ctx context.Context, runID string) error {
	o.mu.Lock()
	a, isActive := o.active[runID]
	o.mu.Unlock()
	if isActive {
		a.cancel()
		return nil
	}

	run, err := o.st.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status.Terminal() {
		return saga.NewErrorf(saga.ErrCodeInvalidTransition,
			"run %q is already %s", runID, run.Status)
	}
	if err := o.runFSM.Transition(ctx, runID, run.Status, saga.RunStatusCancelled); err != nil {
		return err
	}
	now := time.Now().UTC()
	status := saga.RunStatusCancelled
	return o.st.UpdateRun(ctx, runID, store.RunUpdate{Status: &status, CompletedAt: &now})
}

// Status assembles the run's current read model.
func (o *Orchestrator) Status(ctx context.Context, runID string) (*StatusReport, error) {
	run, err := o.st.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	steps, err := o.st.ListRunSteps(ctx, runID)
	if err != nil {
		return nil, err
	}
	messages, err := o.st.ListMessages(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &StatusReport{Run: run, Steps: steps, Messages: messages}, nil
}

// ComposeMessage injects an operator-authored run-level message into an
// active run's mailbox.
func (o *Orchestrator) ComposeMessage(ctx context.Context, runID, toActorKey string, channel saga.MessageChannel, subject, body string) (*store.ActorMessage, error) {
	o.mu.Lock()
	a, ok := o.active[runID]
	o.mu.Unlock()
	if !ok {
		return nil, saga.NewErrorf(saga.ErrCodeConflict,
			"run %q is not active, operator messages require an in-flight run", runID)
	}
	return a.mailbox.ComposeOperator(ctx, toActorKey, channel, subject, body)
}

// --- Execution ---

// execution carries the mutable loop state of one run.
type execution struct {
	spec    *saga.SagaSpec
	run     *store.SagaRun
	box     *mailbox.Mailbox
	params  map[string]any
	states  map[string]saga.StepStatus
	rows    map[string]*store.SagaRunStep
	results map[string]any
}

func (o *Orchestrator) execute(ctx context.Context, spec *saga.SagaSpec, run *store.SagaRun, box *mailbox.Mailbox, params map[string]any) error {
	log := logging.LogWith(ctx, o.logger)

	if err := o.runFSM.Transition(ctx, run.ID, saga.RunStatusPending, saga.RunStatusRunning); err != nil {
		return err
	}
	now := time.Now().UTC()
	running := saga.RunStatusRunning
	if err := o.st.UpdateRun(ctx, run.ID, store.RunUpdate{Status: &running, StartedAt: &now}); err != nil {
		return o.finalizeFatal(ctx, run, err)
	}
	log.InfoContext(ctx, "run started",
		slog.String("saga_key", spec.SagaKey),
		slog.String("mode", string(run.Mode)),
		slog.Int("total_steps", run.TotalSteps))

	exec := &execution{
		spec:    spec,
		run:     run,
		box:     box,
		params:  params,
		states:  make(map[string]saga.StepStatus),
		rows:    make(map[string]*store.SagaRunStep),
		results: make(map[string]any),
	}
	spec.EachStep(func(_ *saga.Phase, s *saga.Step) {
		exec.states[s.StepKey] = saga.StepStatusPending
	})

	haltPropagation := false // set when continueOnFailure=false saw a failure

	for _, phase := range spec.OrderedPhases() {
		for _, step := range phase.OrderedSteps() {
			stepCopy := step

			if haltPropagation {
				if err := o.skipStep(ctx, exec, &phase, &stepCopy); err != nil {
					return o.finalizeFatal(ctx, run, err)
				}
				continue
			}

			// Cancellation check at the step boundary.
			if ctx.Err() != nil {
				return o.finalizeCancelled(ctx, exec)
			}

			status, err := o.runStep(ctx, exec, &phase, &stepCopy)
			if err != nil {
				if errors.Is(err, context.Canceled) || saga.IsCode(err, saga.ErrCodeCancelled) {
					return o.finalizeCancelled(ctx, exec)
				}
				return o.finalizeFatal(ctx, run, err)
			}

			if (status == saga.StepStatusFailed || status == saga.StepStatusBlocked) && !spec.Defaults.ContinueOnFailure {
				haltPropagation = true
			}
		}
	}

	return o.finalizeTerminal(ctx, exec)
}

// runStep drives one step from pending to a terminal status and returns it.
func (o *Orchestrator) runStep(ctx context.Context, exec *execution, phase *saga.Phase, step *saga.Step) (saga.StepStatus, error) {
	ctx = logging.WithIDs(ctx, exec.run.ID, step.StepKey, step.ActorKey)
	log := logging.LogWith(ctx, o.logger)

	row := &store.SagaRunStep{
		ID:       uuid.NewString(),
		RunID:    exec.run.ID,
		StepKey:  step.StepKey,
		PhaseKey: phase.PhaseKey,
		ActorKey: step.ActorKey,
		Class:    step.Class,
		Status:   saga.StepStatusPending,
	}
	exec.rows[step.StepKey] = row
	if err := o.st.UpsertRunStep(ctx, row); err != nil {
		return "", saga.NewErrorf(saga.ErrCodeStore, "persist step %q: %s", step.StepKey, err.Error()).WithCause(err)
	}

	if err := o.stepFSM.Transition(ctx, exec.run.ID, step.StepKey, saga.StepStatusPending, saga.StepStatusInProgress); err != nil {
		return "", err
	}
	started := time.Now().UTC()
	row.Status = saga.StepStatusInProgress
	row.StartedAt = &started
	exec.states[step.StepKey] = saga.StepStatusInProgress
	if err := o.st.UpsertRunStep(ctx, row); err != nil {
		return "", saga.NewErrorf(saga.ErrCodeStore, "persist step %q: %s", step.StepKey, err.Error()).WithCause(err)
	}
	if err := o.syncCounters(ctx, exec); err != nil {
		return "", err
	}
	log.InfoContext(ctx, "step started", slog.String("class", string(step.Class)))

	verdict, err := o.evaluateStep(ctx, exec, step)
	if err != nil {
		if errors.Is(err, context.Canceled) || saga.IsCode(err, saga.ErrCodeCancelled) {
			return "", err
		}
		// Engine fault: probe, executor, evaluator or mailbox failure maps to
		// a blocked outcome instead of crashing the run.
		log.ErrorContext(ctx, "engine fault, step blocked", slog.String("error", err.Error()))
		verdict = &evaluator.StepVerdict{
			Status: saga.StepStatusBlocked,
			Payload: &saga.ResultPayload{
				Evidence: &saga.EvidenceOutcome{
					Kind:       string(step.Class),
					ReasonCode: saga.ReasonEngineFault,
				},
			},
			FailureMessage: err.Error(),
		}
	}

	if err := o.stepFSM.Transition(ctx, exec.run.ID, step.StepKey, saga.StepStatusInProgress, verdict.Status); err != nil {
		return "", err
	}
	completed := time.Now().UTC()
	row.Status = verdict.Status
	row.ResultPayload = verdict.Payload.Marshal()
	row.AssertionSummary = verdict.AssertionSummary
	row.FailureMessage = verdict.FailureMessage
	row.DurationMs = completed.Sub(started).Milliseconds()
	row.CompletedAt = &completed
	exec.states[step.StepKey] = verdict.Status
	exec.results[step.StepKey] = map[string]any{
		"status":         string(verdict.Status),
		"failureMessage": verdict.FailureMessage,
	}
	if err := o.st.UpsertRunStep(ctx, row); err != nil {
		return "", saga.NewErrorf(saga.ErrCodeStore, "persist step %q: %s", step.StepKey, err.Error()).WithCause(err)
	}
	if err := o.syncCounters(ctx, exec); err != nil {
		return "", err
	}

	log.InfoContext(ctx, "step finished",
		slog.String("status", string(verdict.Status)),
		slog.Int64("duration_ms", row.DurationMs))

	return verdict.Status, nil
}

// evaluateStep resolves the delay stage, executes the step's contract, and
// hands the trace to the evaluator.
func (o *Orchestrator) evaluateStep(ctx context.Context, exec *execution, step *saga.Step) (*evaluator.StepVerdict, error) {
	// Delay stage. Timeout resolves the step blocked without evaluation.
	delayOutcome, err := o.delay.Resolve(ctx, step.Delay, o.probeState(exec))
	if err != nil {
		return nil, err
	}
	if delayOutcome.TimedOut {
		return &evaluator.StepVerdict{
			Status:         saga.StepStatusBlocked,
			FailureMessage: delayOutcome.FailureMessage,
		}, nil
	}

	contract, hasContract := o.contracts.Lookup(step.StepKey)
	// dry_run fabricates contracts for deterministic steps only; exploratory
	// steps need an explicit contract in any mode.
	if !hasContract && exec.run.Mode == saga.RunModeDryRun && step.Class == saga.StepClassDeterministic {
		contract = evaluator.NewSimulatedContract()
		hasContract = true
	}

	actor := exec.spec.FindActor(step.ActorKey)

	if step.Class == saga.StepClassExploratory {
		var trace *evaluator.Trace
		if hasContract {
			trace, err = contract.Execute(ctx, step, actor, exec.params)
			if err != nil {
				return nil, err
			}
			o.emitTraceMessages(ctx, exec, step, trace)
			o.persistEvidence(ctx, exec, step, trace)
		}
		return o.eval.EvaluateExploratory(ctx, step, actor, trace, hasContract)
	}

	if !hasContract {
		return &evaluator.StepVerdict{
			Status:         saga.StepStatusBlocked,
			FailureMessage: "no executor contract registered for step " + step.StepKey,
		}, nil
	}

	trace, err := contract.Execute(ctx, step, actor, exec.params)
	if err != nil {
		return nil, err
	}
	o.emitTraceMessages(ctx, exec, step, trace)
	o.persistEvidence(ctx, exec, step, trace)

	return o.eval.EvaluateDeterministic(ctx, step, actor, trace)
}

// emitTraceMessages enqueues actor messages the executor recorded in the
// trace under data.messages: [{to, channel, subject, body}]. Mailbox errors
// are logged, not fatal; message simulation never decides a step verdict.
func (o *Orchestrator) emitTraceMessages(ctx context.Context, exec *execution, step *saga.Step, trace *evaluator.Trace) {
	if trace == nil || trace.Data == nil {
		return
	}
	raw, ok := trace.Data["messages"].([]any)
	if !ok {
		return
	}
	row := exec.rows[step.StepKey]
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		channel, _ := m["channel"].(string)
		if channel == "" {
			channel = string(saga.ChannelInApp)
		}
		to, _ := m["to"].(string)
		subject, _ := m["subject"].(string)
		body, _ := m["body"].(string)
		if _, err := exec.box.Enqueue(ctx, mailbox.EnqueueInput{
			From:          step.ActorKey,
			To:            to,
			Channel:       saga.MessageChannel(channel),
			Subject:       subject,
			Body:          body,
			CausingStepID: row.ID,
		}); err != nil {
			logging.LogWith(ctx, o.logger).WarnContext(ctx, "trace message dropped",
				slog.String("to", to), slog.String("error", err.Error()))
		}
	}
}

// persistEvidence stores the trace's captures for the step's required evidence
// as step-owned artifacts. Missing captures are the evaluator's concern, not
// this method's; artifact write failures are logged, never fatal.
func (o *Orchestrator) persistEvidence(ctx context.Context, exec *execution, step *saga.Step, trace *evaluator.Trace) {
	if trace == nil || len(trace.Evidence) == 0 {
		return
	}
	row := exec.rows[step.StepKey]
	for _, ev := range step.EvidenceRequired {
		capture, ok := trace.Evidence[ev.Label]
		if !ok {
			continue
		}
		payload, err := json.Marshal(capture)
		if err != nil {
			continue
		}
		if err := o.st.CreateArtifact(ctx, &store.SagaArtifact{
			ID:            uuid.NewString(),
			RunID:         exec.run.ID,
			SagaRunStepID: row.ID,
			ArtifactType:  string(ev.Kind),
			Title:         ev.Label,
			ContentType:   "application/json",
			Payload:       payload,
			CreatedAt:     time.Now().UTC(),
		}); err != nil {
			logging.LogWith(ctx, o.logger).WarnContext(ctx, "evidence artifact dropped",
				slog.String("label", ev.Label), slog.String("error", err.Error()))
		}
	}
}

// skipStep resolves a not-yet-started step to skipped during failure propagation.
func (o *Orchestrator) skipStep(ctx context.Context, exec *execution, phase *saga.Phase, step *saga.Step) error {
	if err := o.stepFSM.Transition(ctx, exec.run.ID, step.StepKey, saga.StepStatusPending, saga.StepStatusSkipped); err != nil {
		return err
	}
	now := time.Now().UTC()
	row := &store.SagaRunStep{
		ID:          uuid.NewString(),
		RunID:       exec.run.ID,
		StepKey:     step.StepKey,
		PhaseKey:    phase.PhaseKey,
		ActorKey:    step.ActorKey,
		Class:       step.Class,
		Status:      saga.StepStatusSkipped,
		CompletedAt: &now,
	}
	exec.rows[step.StepKey] = row
	exec.states[step.StepKey] = saga.StepStatusSkipped
	if err := o.st.UpsertRunStep(ctx, row); err != nil {
		return saga.NewErrorf(saga.ErrCodeStore, "persist step %q: %s", step.StepKey, err.Error()).WithCause(err)
	}
	return o.syncCounters(ctx, exec)
}

// syncCounters recomputes the run counters from step statuses and persists
// them. Counters are always derived, never incremented in place.
func (o *Orchestrator) syncCounters(ctx context.Context, exec *execution) error {
	passed, failed, skipped := 0, 0, 0
	for _, s := range exec.states {
		switch s {
		case saga.StepStatusPassed:
			passed++
		case saga.StepStatusFailed, saga.StepStatusBlocked:
			// Blocked collapses into failed reporting.
			failed++
		case saga.StepStatusSkipped:
			skipped++
		}
	}
	exec.run.PassedSteps = passed
	exec.run.FailedSteps = failed
	exec.run.SkippedSteps = skipped
	return o.st.UpdateRun(ctx, exec.run.ID, store.RunUpdate{
		PassedSteps:  &passed,
		FailedSteps:  &failed,
		SkippedSteps: &skipped,
	})
}

// finalizeTerminal resolves the run's final status from its step statuses,
// persists it, and computes coverage.
func (o *Orchestrator) finalizeTerminal(ctx context.Context, exec *execution) error {
	// Skipped steps do not fail the run: a deterministic-runner skip of an
	// exploratory step is a benign outcome, and propagation skips only ever
	// accompany a failed or blocked step.
	final := saga.RunStatusPassed
	for _, s := range exec.states {
		if s == saga.StepStatusFailed || s == saga.StepStatusBlocked {
			final = saga.RunStatusFailed
			break
		}
	}

	if err := o.runFSM.Transition(ctx, exec.run.ID, saga.RunStatusRunning, final); err != nil {
		return err
	}
	now := time.Now().UTC()
	exec.run.Status = final
	exec.run.CompletedAt = &now
	if err := o.st.UpdateRun(ctx, exec.run.ID, store.RunUpdate{Status: &final, CompletedAt: &now}); err != nil {
		return err
	}

	logging.LogWith(ctx, o.logger).InfoContext(ctx, "run finished",
		slog.String("status", string(final)),
		slog.Int("passed", exec.run.PassedSteps),
		slog.Int("failed", exec.run.FailedSteps),
		slog.Int("skipped", exec.run.SkippedSteps))

	return o.aggregateCoverage(ctx, exec)
}

// finalizeCancelled performs the cancel cascade: the in-flight and pending
// steps resolve skipped and the run resolves cancelled.
func (o *Orchestrator) finalizeCancelled(ctx context.Context, exec *execution) error {
	// The run context is already cancelled; persistence continues on a fresh
	// context carrying the same correlation IDs.
	ctx = logging.WithRunID(context.WithoutCancel(ctx), exec.run.ID)

	if err := CancelRun(ctx, o.runFSM, o.stepFSM, exec.run.ID, saga.RunStatusRunning, exec.states); err != nil {
		return err
	}

	now := time.Now().UTC()
	for stepKey, status := range exec.states {
		if status.Terminal() {
			continue
		}
		exec.states[stepKey] = saga.StepStatusSkipped
		row := exec.rows[stepKey]
		if row == nil {
			continue // never entered, no row to persist
		}
		row.Status = saga.StepStatusSkipped
		row.CompletedAt = &now
		if err := o.st.UpsertRunStep(ctx, row); err != nil {
			return err
		}
	}
	if err := o.syncCounters(ctx, exec); err != nil {
		return err
	}

	cancelled := saga.RunStatusCancelled
	exec.run.Status = cancelled
	if err := o.st.UpdateRun(ctx, exec.run.ID, store.RunUpdate{Status: &cancelled, CompletedAt: &now}); err != nil {
		return err
	}
	logging.LogWith(ctx, o.logger).InfoContext(ctx, "run cancelled")
	return nil
}

// finalizeFatal handles unrecoverable faults (persistence failures, illegal
// transitions): the run resolves failed with the fault recorded on the row.
func (o *Orchestrator) finalizeFatal(ctx context.Context, run *store.SagaRun, cause error) error {
	ctx = logging.WithRunID(context.WithoutCancel(ctx), run.ID)
	logging.LogWith(ctx, o.logger).ErrorContext(ctx, "run failed with fatal fault",
		slog.String("error", cause.Error()))

	failed := saga.RunStatusFailed
	now := time.Now().UTC()
	errJSON, _ := json.Marshal(map[string]string{
		"code":    saga.ReasonEngineFault,
		"message": cause.Error(),
	})
	_ = o.st.UpdateRun(ctx, run.ID, store.RunUpdate{
		Status:      &failed,
		Error:       errJSON,
		CompletedAt: &now,
	})
	return cause
}

// aggregateCoverage computes the coverage report for the terminal run and
// persists it both on the run row and as a run-level artifact.
func (o *Orchestrator) aggregateCoverage(ctx context.Context, exec *execution) error {
	run, err := o.st.GetRun(ctx, exec.run.ID)
	if err != nil {
		return err
	}
	steps, err := o.st.ListRunSteps(ctx, exec.run.ID)
	if err != nil {
		return err
	}
	report, err := coverage.Compute(exec.spec, run, steps)
	if err != nil {
		return err
	}

	if err := o.st.UpdateRun(ctx, exec.run.ID, store.RunUpdate{
		CoveragePct:     &report.CoveragePct,
		CoverageSummary: &report.Summary,
	}); err != nil {
		return err
	}

	return o.st.CreateArtifact(ctx, &store.SagaArtifact{
		ID:           uuid.NewString(),
		RunID:        exec.run.ID,
		ArtifactType: "coverage_report",
		Title:        "Coverage report",
		ContentType:  "application/json",
		Payload:      report.Marshal(),
		CreatedAt:    time.Now().UTC(),
	})
}

// probeState assembles the condition-probe evaluation state from the run.
func (o *Orchestrator) probeState(exec *execution) map[string]any {
	actors := make(map[string]any, len(exec.spec.Actors))
	for _, a := range exec.spec.Actors {
		actors[a.ActorKey] = map[string]any{
			"name":  a.Name,
			"role":  a.Role,
			"email": a.Email,
		}
	}
	return map[string]any{
		"run": map[string]any{
			"runId":   exec.run.ID,
			"sagaKey": exec.run.SagaKey,
			"mode":    string(exec.run.Mode),
		},
		"steps":  exec.results,
		"actors": actors,
		"params": exec.params,
	}
}
