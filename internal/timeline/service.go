package timeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clinicore/surgical-ops/internal/audit"
	"github.com/clinicore/surgical-ops/internal/cases"
	"github.com/clinicore/surgical-ops/internal/observability/metrics"
	"github.com/clinicore/surgical-ops/pkg/logging"
)

var timelineTracer = otel.Tracer("surgicalops.internal.timeline")

// caseFinder is the slice of the case service the recorder needs.
type caseFinder interface {
	FindByID(ctx context.Context, caseID uuid.UUID) (*cases.SurgicalCase, error)
}

// auditRecorder appends events to the clinical audit trail.
type auditRecorder interface {
	Record(ctx context.Context, event audit.Event) error
}

// Service is the operative timeline recorder. Edits are governed by the
// chronological-ordering invariant, not a once-only lock: a previously set
// timestamp may be corrected as long as the whole proposed timeline still
// validates.
type Service struct {
	repo    *Repository
	finder  caseFinder
	auditor auditRecorder
	metrics *metrics.EngineMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// NewService constructs a timeline service.
func NewService(repo *Repository, finder caseFinder, auditor auditRecorder, m *metrics.EngineMetrics, logger *logging.Logger) *Service {
	if repo == nil {
		panic("timeline: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:    repo,
		finder:  finder,
		auditor: auditor,
		metrics: m,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GetTimeline returns the case's current timeline, derived durations, and
// the fields still missing for the case's current status. A case with no
// procedure record yet yields all-null timestamps and no missing items.
func (s *Service) GetTimeline(ctx context.Context, caseID uuid.UUID) (*Snapshot, error) {
	c, err := s.finder.FindByID(ctx, caseID)
	if err != nil {
		return nil, err
	}

	rec, err := s.repo.FindByCaseID(ctx, nil, caseID)
	if err != nil {
		if err != ErrRecordNotFound {
			return nil, err
		}
		// No record yet: nothing captured, nothing expected.
		return &Snapshot{
			CaseID:       caseID,
			CaseStatus:   c.Status,
			Timeline:     Timestamps{},
			Durations:    Durations{},
			MissingItems: []Field{},
		}, nil
	}

	return &Snapshot{
		CaseID:       caseID,
		CaseStatus:   c.Status,
		Timeline:     timestampsOf(rec),
		Durations:    ComputeDurations(rec),
		MissingItems: MissingFields(c.Status, rec),
	}, nil
}

type fieldChangeMetadata struct {
	Field    Field      `json:"field"`
	OldValue *time.Time `json:"old_value"`
	NewValue *time.Time `json:"new_value"`
}

type invalidAttemptMetadata struct {
	Patch      map[Field]*time.Time `json:"patch"`
	Violations []Violation          `json:"violations"`
}

// UpdateTimeline applies a partial patch to the case's procedure record.
// The record is auto-created on first write. The entire proposed timeline is
// validated before anything is persisted; a rejected patch mutates nothing
// and leaves a TIMELINE_INVALID_ATTEMPT event in the audit trail.
func (s *Service) UpdateTimeline(ctx context.Context, caseID uuid.UUID, patch *Patch, actor audit.Actor) (*Snapshot, error) {
	ctx, span := timelineTracer.Start(ctx, "timeline.update")
	defer span.End()
	span.SetAttributes(attribute.String("surgicalops.case_id", caseID.String()))

	c, err := s.finder.FindByID(ctx, caseID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created := false
	rec, err := s.repo.FindByCaseID(ctx, tx, caseID)
	if err != nil {
		if err != ErrRecordNotFound {
			span.RecordError(err)
			return nil, err
		}
		rec = &Record{CaseID: c.ID, Diagnosis: c.Diagnosis, Urgency: c.Urgency}
		created = true
	}

	// Build the proposed timeline and the set of actual changes. A patch
	// field carrying the already-stored value is not a change.
	proposed := *rec
	var changes []PatchField
	var oldValues []*time.Time
	for _, pf := range patch.Fields() {
		old := rec.Get(pf.Field)
		if equalTime(old, pf.Value) {
			continue
		}
		proposed.Set(pf.Field, pf.Value)
		changes = append(changes, pf)
		oldValues = append(oldValues, old)
	}

	if verr := validateProposed(&proposed, s.now()); verr != nil {
		s.metrics.ObserveTimelineUpdate("rejected")
		s.recordInvalidAttempt(ctx, caseID, patch, verr, actor)
		return nil, verr
	}

	if len(changes) > 0 {
		if created {
			if _, err := s.repo.CreateForCase(ctx, tx, c); err != nil {
				span.RecordError(err)
				return nil, err
			}
		}
		if err := s.repo.UpdateFields(ctx, tx, caseID, changes); err != nil {
			span.RecordError(err)
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	s.metrics.ObserveTimelineUpdate("applied")
	for i, ch := range changes {
		s.recordFieldUpdate(ctx, caseID, ch, oldValues[i], actor)
	}

	return &Snapshot{
		CaseID:       caseID,
		CaseStatus:   c.Status,
		Timeline:     timestampsOf(&proposed),
		Durations:    ComputeDurations(&proposed),
		MissingItems: MissingFields(c.Status, &proposed),
	}, nil
}

func (s *Service) recordFieldUpdate(ctx context.Context, caseID uuid.UUID, change PatchField, old *time.Time, actor audit.Actor) {
	if s.auditor == nil {
		return
	}
	meta, _ := json.Marshal(fieldChangeMetadata{
		Field:    change.Field,
		OldValue: old,
		NewValue: change.Value,
	})
	err := s.auditor.Record(ctx, audit.Event{
		Action:     audit.ActionTimelineUpdated,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		EntityType: "procedure_record",
		EntityID:   caseID.String(),
		Metadata:   meta,
	})
	if err != nil {
		s.metrics.ObserveAuditWriteFailure()
		s.logger.Error("failed to record timeline audit event",
			"case_id", caseID,
			"field", change.Field,
			"error", err,
		)
	}
}

func (s *Service) recordInvalidAttempt(ctx context.Context, caseID uuid.UUID, patch *Patch, verr *ValidationError, actor audit.Actor) {
	if s.auditor == nil {
		return
	}
	rejected := map[Field]*time.Time{}
	for _, pf := range patch.Fields() {
		rejected[pf.Field] = pf.Value
	}
	meta, _ := json.Marshal(invalidAttemptMetadata{
		Patch:      rejected,
		Violations: verr.Violations,
	})
	err := s.auditor.Record(ctx, audit.Event{
		Action:     audit.ActionTimelineInvalidAttempt,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		EntityType: "procedure_record",
		EntityID:   caseID.String(),
		Metadata:   meta,
	})
	if err != nil {
		s.metrics.ObserveAuditWriteFailure()
		s.logger.Error("failed to record invalid-attempt audit event",
			"case_id", caseID,
			"error", err,
		)
	}
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
