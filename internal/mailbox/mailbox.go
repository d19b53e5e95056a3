// Package mailbox implements the virtual actor messaging bus: one mailbox per
// run, simulated delivery, append-only history.
package mailbox

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/sagaline/internal/logging"
	"github.com/rendis/sagaline/internal/store"
	"github.com/rendis/sagaline/pkg/saga"
)

// EnqueueInput describes a message to enqueue. CausingStepID is empty for
// run-level messages (operator compose).
type EnqueueInput struct {
	From          string
	To            string
	Channel       saga.MessageChannel
	Subject       string
	Body          string
	CausingStepID string
}

// Mailbox is the per-run message bus. Writes are serialized by a mutex so
// sequence numbers and message ordering stay deterministic even when the step
// loop and an operator compose concurrently. Delivery is simulated: a message
// advances queued -> sent -> delivered immediately, or resolves failed when
// the target actor is unknown. History is append-only; corrections are new
// messages, never edits.
type Mailbox struct {
	mu     sync.Mutex
	runID  string
	actors map[string]*store.ActorProfile
	seq    int64
	st     store.Store
	logger *slog.Logger
}

// New creates the mailbox for a run over its materialized actor profiles.
func New(runID string, profiles []*store.ActorProfile, st store.Store, logger *slog.Logger) *Mailbox {
	if logger == nil {
		logger = slog.Default()
	}
	actors := make(map[string]*store.ActorProfile, len(profiles))
	for _, p := range profiles {
		actors[p.ActorKey] = p
	}
	return &Mailbox{
		runID:  runID,
		actors: actors,
		st:     st,
		logger: logger,
	}
}

// Enqueue creates a message and immediately advances it through the simulated
// delivery pipeline. An empty To addresses the system recipient, which always
// accepts delivery. An unknown target actor produces a failed message, not
// an error: undeliverable mail is an expected outcome the saga may assert on.
func (m *Mailbox) Enqueue(ctx context.Context, in EnqueueInput) (*store.ActorMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	now := time.Now().UTC()

	msg := &store.ActorMessage{
		ID:            uuid.NewString(),
		RunID:         m.runID,
		SagaRunStepID: in.CausingStepID,
		FromActorKey:  in.From,
		ToActorKey:    in.To,
		Channel:       in.Channel,
		Status:        saga.MessageQueued,
		Subject:       in.Subject,
		BodyText:      in.Body,
		Seq:           m.seq,
		QueuedAt:      now,
	}

	_, known := m.actors[in.To]
	if known || in.To == "" {
		msg.Status = saga.MessageDelivered
		msg.SentAt = &now
		msg.DeliveredAt = &now
	} else {
		msg.Status = saga.MessageFailed
		msg.FailedAt = &now
	}

	if err := m.st.AppendMessage(ctx, msg); err != nil {
		return nil, saga.NewErrorf(saga.ErrCodeMailbox,
			"append message to %q: %s", in.To, err.Error()).WithCause(err)
	}

	logging.LogWith(ctx, m.logger).DebugContext(ctx, "message enqueued",
		slog.String("to", in.To),
		slog.String("channel", string(in.Channel)),
		slog.String("status", string(msg.Status)),
		slog.Int64("seq", msg.Seq))

	return msg, nil
}

// ComposeOperator injects an operator-authored run-level message, used for
// manual what-if testing mid-run. Unlike step-driven enqueues the inputs are
// validated up front: the target must resolve against the run's actor
// profiles and the body must be non-empty.
func (m *Mailbox) ComposeOperator(ctx context.Context, to string, channel saga.MessageChannel, subject, body string) (*store.ActorMessage, error) {
	if strings.TrimSpace(body) == "" {
		return nil, saga.NewError(saga.ErrCodeValidation, "message body must not be empty")
	}
	m.mu.Lock()
	_, known := m.actors[to]
	m.mu.Unlock()
	if !known {
		return nil, saga.NewErrorf(saga.ErrCodeValidation,
			"actor %q not found in run %q", to, m.runID)
	}

	return m.Enqueue(ctx, EnqueueInput{
		To:      to,
		Channel: channel,
		Subject: subject,
		Body:    body,
	})
}

// History returns the run's message history in sequence order.
func (m *Mailbox) History(ctx context.Context) ([]*store.ActorMessage, error) {
	return m.st.ListMessages(ctx, m.runID)
}

// KnownActor reports whether the actor key resolves in this run.
func (m *Mailbox) KnownActor(actorKey string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.actors[actorKey]
	return ok
}
