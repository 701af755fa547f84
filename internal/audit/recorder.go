package audit

import (
	"context"
	"log/slog"

	"wardgate/internal/platform/middleware"
	"wardgate/internal/privacy"
	"wardgate/pkg/requestcontext"
)

// RecordParams carries the facts of one audited step. RawContext is the only
// field that may hold user-entered text; it is classified here and discarded.
type RecordParams struct {
	Type        EventType
	Actor       string
	Subject     string
	Action      string
	AccessLevel string
	Success     bool
	Reason      string
	RawContext  string
}

// Recorder is the single write path into the audit log. It hashes actor and
// subject identifiers and replaces raw context with classification metadata
// before anything is persisted; there is no API that stores raw text.
type Recorder struct {
	publisher  *Publisher
	hasher     *Hasher
	classifier *privacy.Classifier
	logger     *slog.Logger
}

func NewRecorder(publisher *Publisher, hasher *Hasher, classifier *privacy.Classifier, logger *slog.Logger) *Recorder {
	return &Recorder{
		publisher:  publisher,
		hasher:     hasher,
		classifier: classifier,
		logger:     logger,
	}
}

// Hasher exposes the recorder's hasher so tests can correlate hashed ids.
func (r *Recorder) Hasher() *Hasher { return r.hasher }

// Record redacts and persists one audit entry. It never fails the caller:
// audit persistence problems are logged, not propagated, so a sink outage
// cannot turn into an access decision.
func (r *Recorder) Record(ctx context.Context, p RecordParams) {
	event := Event{
		Timestamp:   requestcontext.Now(ctx).UTC(),
		EventType:   p.Type,
		ActorHash:   r.hasher.HashActor(p.Actor),
		Action:      p.Action,
		AccessLevel: p.AccessLevel,
		Success:     p.Success,
		Reason:      p.Reason,
		RequestID:   middleware.GetRequestID(ctx),
	}
	if p.Subject != "" {
		event.SubjectHash = r.hasher.HashActor(p.Subject)
	}
	if p.RawContext != "" {
		classification := r.classifier.Classify(p.RawContext)
		event.Classification = &classification
	}

	r.log(ctx, event)

	if err := r.publisher.Emit(ctx, event); err != nil && r.logger != nil {
		r.logger.ErrorContext(ctx, "failed to emit audit event",
			"error", err, "event_type", event.EventType)
	}
}

func (r *Recorder) log(ctx context.Context, event Event) {
	if r.logger == nil {
		return
	}
	args := []any{
		"event", string(event.EventType),
		"actor_hash", event.ActorHash,
		"action", event.Action,
		"success", event.Success,
		"log_type", "audit",
	}
	if event.Reason != "" {
		args = append(args, "reason", event.Reason)
	}
	if event.RequestID != "" {
		args = append(args, "request_id", event.RequestID)
	}

	switch event.EventType {
	case EventSystemError:
		r.logger.ErrorContext(ctx, string(event.EventType), args...)
	case EventIntegrityViolation, EventIdentifierBlocked, EventSuspiciousActivity:
		// Possible replay or abuse: elevated severity for separate alerting.
		r.logger.WarnContext(ctx, string(event.EventType), args...)
	default:
		r.logger.InfoContext(ctx, string(event.EventType), args...)
	}
}
