package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/rendis/sagaline/pkg/saga"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-20000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// --- Saga registry ---

func (s *LibSQLStore) SaveSaga(ctx context.Context, rec *SagaRecord) error {
	if len(rec.Spec) == 0 {
		return saga.NewError(saga.ErrCodeValidation, "saga record has empty spec")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sagas (saga_key, title, spec, created_at, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(saga_key) DO UPDATE SET title=excluded.title, spec=excluded.spec, updated_at=CURRENT_TIMESTAMP`,
		rec.SagaKey, nullStr(rec.Title), string(rec.Spec), timeOrNow(rec.CreatedAt),
	)
	return err
}

func (s *LibSQLStore) GetSaga(ctx context.Context, sagaKey string) (*SagaRecord, error) {
	rec := &SagaRecord{}
	var title sql.NullString
	var spec string
	err := s.db.QueryRowContext(ctx,
		`SELECT saga_key, title, spec, created_at, updated_at FROM sagas WHERE saga_key = ?`, sagaKey,
	).Scan(&rec.SagaKey, &title, &spec, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("saga", sagaKey)
	}
	if err != nil {
		return nil, err
	}
	rec.Title = title.String
	rec.Spec = json.RawMessage(spec)
	return rec, nil
}

func (s *LibSQLStore) ListSagas(ctx context.Context) ([]*SagaRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT saga_key, title, spec, created_at, updated_at FROM sagas ORDER BY saga_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*SagaRecord
	for rows.Next() {
		rec := &SagaRecord{}
		var title sql.NullString
		var spec string
		if err := rows.Scan(&rec.SagaKey, &title, &spec, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.Title = title.String
		rec.Spec = json.RawMessage(spec)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *LibSQLStore) DeleteSaga(ctx context.Context, sagaKey string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sagas WHERE saga_key = ?`, sagaKey)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "saga", sagaKey)
}

// --- Runs ---

func (s *LibSQLStore) CreateRun(ctx context.Context, run *SagaRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO saga_runs (id, saga_key, mode, status, total_steps, passed_steps, failed_steps, skipped_steps,
		 coverage_pct, coverage_summary, error, created_at, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SagaKey, string(run.Mode), string(run.Status),
		run.TotalSteps, run.PassedSteps, run.FailedSteps, run.SkippedSteps,
		nullIntPtr(run.CoveragePct), nullStr(run.CoverageSummary), nullRaw(run.Error),
		timeOrNow(run.CreatedAt), nullTime(run.StartedAt), nullTime(run.CompletedAt),
	)
	return err
}

func (s *LibSQLStore) GetRun(ctx context.Context, id string) (*SagaRun, error) {
	run := &SagaRun{}
	var mode, status string
	var coveragePct sql.NullInt64
	var coverageSummary, errJSON sql.NullString
	var startedAt, completedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, saga_key, mode, status, total_steps, passed_steps, failed_steps, skipped_steps,
		 coverage_pct, coverage_summary, error, created_at, started_at, completed_at
		 FROM saga_runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.SagaKey, &mode, &status,
		&run.TotalSteps, &run.PassedSteps, &run.FailedSteps, &run.SkippedSteps,
		&coveragePct, &coverageSummary, &errJSON, &run.CreatedAt, &startedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("run", id)
	}
	if err != nil {
		return nil, err
	}
	run.Mode = saga.RunMode(mode)
	run.Status = saga.RunStatus(status)
	if coveragePct.Valid {
		pct := int(coveragePct.Int64)
		run.CoveragePct = &pct
	}
	run.CoverageSummary = coverageSummary.String
	run.Error = jsonOrNil(errJSON)
	if startedAt.Valid {
		run.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return run, nil
}

func (s *LibSQLStore) UpdateRun(ctx context.Context, id string, update RunUpdate) error {
	var sets []string
	var args []any
	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.TotalSteps != nil {
		sets = append(sets, "total_steps = ?")
		args = append(args, *update.TotalSteps)
	}
	if update.PassedSteps != nil {
		sets = append(sets, "passed_steps = ?")
		args = append(args, *update.PassedSteps)
	}
	if update.FailedSteps != nil {
		sets = append(sets, "failed_steps = ?")
		args = append(args, *update.FailedSteps)
	}
	if update.SkippedSteps != nil {
		sets = append(sets, "skipped_steps = ?")
		args = append(args, *update.SkippedSteps)
	}
	if update.CoveragePct != nil {
		sets = append(sets, "coverage_pct = ?")
		args = append(args, *update.CoveragePct)
	}
	if update.CoverageSummary != nil {
		sets = append(sets, "coverage_summary = ?")
		args = append(args, *update.CoverageSummary)
	}
	if len(update.Error) > 0 {
		sets = append(sets, "error = ?")
		args = append(args, string(update.Error))
	}
	if update.StartedAt != nil {
		sets = append(sets, "started_at = ?")
		args = append(args, *update.StartedAt)
	}
	if update.CompletedAt != nil {
		sets = append(sets, "completed_at = ?")
		args = append(args, *update.CompletedAt)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE saga_runs SET %s WHERE id = ?`, strings.Join(sets, ", ")), args...)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "run", id)
}

func (s *LibSQLStore) ListRuns(ctx context.Context, filter RunFilter) ([]*SagaRun, error) {
	query := `SELECT id, saga_key, mode, status, total_steps, passed_steps, failed_steps, skipped_steps,
	 coverage_pct, coverage_summary, error, created_at, started_at, completed_at FROM saga_runs`
	var conds []string
	var args []any
	if filter.SagaKey != "" {
		conds = append(conds, "saga_key = ?")
		args = append(args, filter.SagaKey)
	}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Since != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, *filter.Since)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*SagaRun
	for rows.Next() {
		run := &SagaRun{}
		var mode, status string
		var coveragePct sql.NullInt64
		var coverageSummary, errJSON sql.NullString
		var startedAt, completedAt sql.NullTime
		if err := rows.Scan(&run.ID, &run.SagaKey, &mode, &status,
			&run.TotalSteps, &run.PassedSteps, &run.FailedSteps, &run.SkippedSteps,
			&coveragePct, &coverageSummary, &errJSON, &run.CreatedAt, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		run.Mode = saga.RunMode(mode)
		run.Status = saga.RunStatus(status)
		if coveragePct.Valid {
			pct := int(coveragePct.Int64)
			run.CoveragePct = &pct
		}
		run.CoverageSummary = coverageSummary.String
		run.Error = jsonOrNil(errJSON)
		if startedAt.Valid {
			run.StartedAt = &startedAt.Time
		}
		if completedAt.Valid {
			run.CompletedAt = &completedAt.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// --- Run steps ---

func (s *LibSQLStore) UpsertRunStep(ctx context.Context, step *SagaRunStep) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO saga_run_steps (id, run_id, step_key, phase_key, actor_key, class, status,
		 result_payload, assertion_summary, failure_message, duration_ms, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, step_key) DO UPDATE SET
		   status=excluded.status,
		   result_payload=excluded.result_payload,
		   assertion_summary=excluded.assertion_summary,
		   failure_message=excluded.failure_message,
		   duration_ms=excluded.duration_ms,
		   started_at=excluded.started_at,
		   completed_at=excluded.completed_at`,
		step.ID, step.RunID, step.StepKey, step.PhaseKey, step.ActorKey,
		string(step.Class), string(step.Status),
		nullRaw(step.ResultPayload), nullStr(step.AssertionSummary), nullStr(step.FailureMessage),
		step.DurationMs, nullTime(step.StartedAt), nullTime(step.CompletedAt),
	)
	return err
}

func (s *LibSQLStore) GetRunStep(ctx context.Context, runID, stepKey string) (*SagaRunStep, error) {
	step, err := scanRunStep(s.db.QueryRowContext(ctx,
		`SELECT id, run_id, step_key, phase_key, actor_key, class, status,
		 result_payload, assertion_summary, failure_message, duration_ms, started_at, completed_at
		 FROM saga_run_steps WHERE run_id = ? AND step_key = ?`, runID, stepKey))
	if err == sql.ErrNoRows {
		return nil, storeNotFound("run step", stepKey)
	}
	return step, err
}

func (s *LibSQLStore) ListRunSteps(ctx context.Context, runID string) ([]*SagaRunStep, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, step_key, phase_key, actor_key, class, status,
		 result_payload, assertion_summary, failure_message, duration_ms, started_at, completed_at
		 FROM saga_run_steps WHERE run_id = ? ORDER BY started_at, step_key`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []*SagaRunStep
	for rows.Next() {
		step, err := scanRunStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunStep(row rowScanner) (*SagaRunStep, error) {
	step := &SagaRunStep{}
	var class, status string
	var resultPayload, assertionSummary, failureMessage sql.NullString
	var startedAt, completedAt sql.NullTime
	err := row.Scan(&step.ID, &step.RunID, &step.StepKey, &step.PhaseKey, &step.ActorKey,
		&class, &status, &resultPayload, &assertionSummary, &failureMessage,
		&step.DurationMs, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	step.Class = saga.StepClass(class)
	step.Status = saga.StepStatus(status)
	step.ResultPayload = jsonOrNil(resultPayload)
	step.AssertionSummary = assertionSummary.String
	step.FailureMessage = failureMessage.String
	if startedAt.Valid {
		step.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		step.CompletedAt = &completedAt.Time
	}
	return step, nil
}

// --- Artifacts ---

func (s *LibSQLStore) CreateArtifact(ctx context.Context, artifact *SagaArtifact) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO saga_artifacts (id, run_id, saga_run_step_id, artifact_type, title, content_type, storage_path, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		artifact.ID, artifact.RunID, nullStr(artifact.SagaRunStepID), artifact.ArtifactType,
		nullStr(artifact.Title), nullStr(artifact.ContentType), nullStr(artifact.StoragePath),
		nullRaw(artifact.Payload), timeOrNow(artifact.CreatedAt),
	)
	return err
}

func (s *LibSQLStore) ListArtifacts(ctx context.Context, runID string) ([]*SagaArtifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, saga_run_step_id, artifact_type, title, content_type, storage_path, payload, created_at
		 FROM saga_artifacts WHERE run_id = ? ORDER BY created_at, id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []*SagaArtifact
	for rows.Next() {
		a := &SagaArtifact{}
		var stepID, title, contentType, storagePath, payload sql.NullString
		if err := rows.Scan(&a.ID, &a.RunID, &stepID, &a.ArtifactType,
			&title, &contentType, &storagePath, &payload, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.SagaRunStepID = stepID.String
		a.Title = title.String
		a.ContentType = contentType.String
		a.StoragePath = storagePath.String
		a.Payload = jsonOrNil(payload)
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// --- Actor profiles ---

func (s *LibSQLStore) CreateActorProfiles(ctx context.Context, profiles []*ActorProfile) error {
	if len(profiles) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, p := range profiles {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO actor_profiles (run_id, actor_key, name, role, email, phone, persona)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.RunID, p.ActorKey, nullStr(p.Name), nullStr(p.Role),
			nullStr(p.Email), nullStr(p.Phone), nullStr(p.Persona),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert actor profile %q: %w", p.ActorKey, err)
		}
	}
	return tx.Commit()
}

func (s *LibSQLStore) ListActorProfiles(ctx context.Context, runID string) ([]*ActorProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, actor_key, name, role, email, phone, persona
		 FROM actor_profiles WHERE run_id = ? ORDER BY actor_key`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*ActorProfile
	for rows.Next() {
		p := &ActorProfile{}
		var name, role, email, phone, persona sql.NullString
		if err := rows.Scan(&p.RunID, &p.ActorKey, &name, &role, &email, &phone, &persona); err != nil {
			return nil, err
		}
		p.Name = name.String
		p.Role = role.String
		p.Email = email.String
		p.Phone = phone.String
		p.Persona = persona.String
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// --- Actor messages ---

func (s *LibSQLStore) AppendMessage(ctx context.Context, msg *ActorMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO actor_messages (id, run_id, saga_run_step_id, from_actor_key, to_actor_key,
		 channel, status, subject, body_text, seq, queued_at, sent_at, delivered_at, failed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.RunID, nullStr(msg.SagaRunStepID), nullStr(msg.FromActorKey), nullStr(msg.ToActorKey),
		string(msg.Channel), string(msg.Status), nullStr(msg.Subject), msg.BodyText,
		msg.Seq, timeOrNow(msg.QueuedAt), nullTime(msg.SentAt), nullTime(msg.DeliveredAt), nullTime(msg.FailedAt),
	)
	return err
}

func (s *LibSQLStore) ListMessages(ctx context.Context, runID string) ([]*ActorMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, saga_run_step_id, from_actor_key, to_actor_key,
		 channel, status, subject, body_text, seq, queued_at, sent_at, delivered_at, failed_at
		 FROM actor_messages WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*ActorMessage
	for rows.Next() {
		m := &ActorMessage{}
		var stepID, from, to, subject sql.NullString
		var channel, status string
		var sentAt, deliveredAt, failedAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.RunID, &stepID, &from, &to,
			&channel, &status, &subject, &m.BodyText, &m.Seq,
			&m.QueuedAt, &sentAt, &deliveredAt, &failedAt); err != nil {
			return nil, err
		}
		m.SagaRunStepID = stepID.String
		m.FromActorKey = from.String
		m.ToActorKey = to.String
		m.Channel = saga.MessageChannel(channel)
		m.Status = saga.MessageStatus(status)
		m.Subject = subject.String
		if sentAt.Valid {
			m.SentAt = &sentAt.Time
		}
		if deliveredAt.Valid {
			m.DeliveredAt = &deliveredAt.Time
		}
		if failedAt.Valid {
			m.FailedAt = &failedAt.Time
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// --- Scheduled runs ---

func (s *LibSQLStore) CreateScheduledRun(ctx context.Context, sched *ScheduledRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled_runs (id, saga_key, cron_expression, params, enabled,
		 last_run_at, next_run_at, last_run_status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sched.ID, sched.SagaKey, sched.CronExpression, nullRaw(sched.Params), sched.Enabled,
		nullTime(sched.LastRunAt), nullTime(sched.NextRunAt), nullStr(sched.LastRunStatus),
		timeOrNow(sched.CreatedAt),
	)
	return err
}

func (s *LibSQLStore) GetScheduledRun(ctx context.Context, id string) (*ScheduledRun, error) {
	sched, err := scanScheduledRun(s.db.QueryRowContext(ctx,
		`SELECT id, saga_key, cron_expression, params, enabled,
		 last_run_at, next_run_at, last_run_status, created_at
		 FROM scheduled_runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, storeNotFound("scheduled run", id)
	}
	return sched, err
}

func (s *LibSQLStore) UpdateScheduledRun(ctx context.Context, id string, update ScheduledRunUpdate) error {
	var sets []string
	var args []any
	if update.Enabled != nil {
		sets = append(sets, "enabled = ?")
		args = append(args, *update.Enabled)
	}
	if update.LastRunAt != nil {
		sets = append(sets, "last_run_at = ?")
		args = append(args, *update.LastRunAt)
	}
	if update.NextRunAt != nil {
		sets = append(sets, "next_run_at = ?")
		args = append(args, *update.NextRunAt)
	}
	if update.LastRunStatus != "" {
		sets = append(sets, "last_run_status = ?")
		args = append(args, update.LastRunStatus)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE scheduled_runs SET %s WHERE id = ?`, strings.Join(sets, ", ")), args...)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "scheduled run", id)
}

func (s *LibSQLStore) ListScheduledRuns(ctx context.Context, filter ScheduledRunFilter) ([]*ScheduledRun, error) {
	query := `SELECT id, saga_key, cron_expression, params, enabled,
	 last_run_at, next_run_at, last_run_status, created_at FROM scheduled_runs`
	var conds []string
	var args []any
	if filter.SagaKey != "" {
		conds = append(conds, "saga_key = ?")
		args = append(args, filter.SagaKey)
	}
	if filter.Enabled != nil {
		conds = append(conds, "enabled = ?")
		args = append(args, *filter.Enabled)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scheds []*ScheduledRun
	for rows.Next() {
		sched, err := scanScheduledRun(rows)
		if err != nil {
			return nil, err
		}
		scheds = append(scheds, sched)
	}
	return scheds, rows.Err()
}

func (s *LibSQLStore) DeleteScheduledRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "scheduled run", id)
}

func scanScheduledRun(row rowScanner) (*ScheduledRun, error) {
	sched := &ScheduledRun{}
	var params, lastRunStatus sql.NullString
	var lastRunAt, nextRunAt sql.NullTime
	err := row.Scan(&sched.ID, &sched.SagaKey, &sched.CronExpression, &params, &sched.Enabled,
		&lastRunAt, &nextRunAt, &lastRunStatus, &sched.CreatedAt)
	if err != nil {
		return nil, err
	}
	sched.Params = jsonOrNil(params)
	sched.LastRunStatus = lastRunStatus.String
	if lastRunAt.Valid {
		sched.LastRunAt = &lastRunAt.Time
	}
	if nextRunAt.Valid {
		sched.NextRunAt = &nextRunAt.Time
	}
	return sched, nil
}

// --- Helpers ---

func storeNotFound(resource, id string) *saga.SagaError {
	return saga.NewErrorf(saga.ErrCodeNotFound, "%s %q not found", resource, id)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullRaw(r json.RawMessage) any {
	if len(r) == 0 {
		return nil
	}
	return string(r)
}

func nullIntPtr(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func jsonOrNil(ns sql.NullString) json.RawMessage {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.RawMessage(ns.String)
}

var _ Store = (*LibSQLStore)(nil)
