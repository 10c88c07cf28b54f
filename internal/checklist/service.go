package checklist

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

var checklistTracer = otel.Tracer("surgicalops.internal.checklist")

// caseFinder is the slice of the case service the tracker needs.
type caseFinder interface {
	FindByID(ctx context.Context, caseID uuid.UUID) (*cases.SurgicalCase, error)
}

// auditRecorder appends events to the clinical audit trail.
type auditRecorder interface {
	Record(ctx context.Context, event audit.Event) error
}

// Service is the checklist tracker: it finalizes phases atomically and
// answers phase-status queries independently of the case state machine.
type Service struct {
	repo    *Repository
	finder  caseFinder
	auditor auditRecorder
	metrics *metrics.EngineMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// NewService constructs a checklist service.
func NewService(repo *Repository, finder caseFinder, auditor auditRecorder, m *metrics.EngineMetrics, logger *logging.Logger) *Service {
	if repo == nil {
		panic("checklist: repository required")
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

type phaseCompletionMetadata struct {
	Phase       Phase      `json:"phase"`
	ItemCount   int        `json:"item_count"`
	CompletedAt *time.Time `json:"completed_at"`
}

// CompletePhase finalizes one phase of the case's checklist. Every item must
// be confirmed; offending keys are reported together in an IncompleteError.
//
// Re-completing an already-finalized phase is a no-op at the storage level
// but still succeeds and still emits an audit event, so the trail shows
// every completion attempt.
func (s *Service) CompletePhase(ctx context.Context, caseID uuid.UUID, phase Phase, items []ItemConfirmation, actor audit.Actor) (*Status, error) {
	ctx, span := checklistTracer.Start(ctx, "checklist.complete_phase")
	defer span.End()
	span.SetAttributes(
		attribute.String("surgicalops.case_id", caseID.String()),
		attribute.String("surgicalops.phase", string(phase)),
	)

	if _, err := s.finder.FindByID(ctx, caseID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	var unconfirmed []string
	for _, item := range items {
		if !item.Confirmed {
			unconfirmed = append(unconfirmed, item.Key)
		}
	}
	if len(unconfirmed) > 0 {
		return nil, &IncompleteError{Phase: phase, Keys: unconfirmed}
	}

	stored, err := s.repo.CompletePhase(ctx, caseID, phase, items, actor, s.now())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.metrics.ObserveChecklistCompletion(string(phase))
	s.recordCompletionAudit(ctx, caseID, phase, actor, stored)

	return s.GetStatus(ctx, caseID)
}

// GetStatus returns all three phases for a case, defaulting each to an
// empty, incomplete shape when no checklist activity exists yet.
func (s *Service) GetStatus(ctx context.Context, caseID uuid.UUID) (*Status, error) {
	return s.repo.FindByCaseID(ctx, caseID)
}

// IsPhaseCompleted reports whether the named phase is finalized.
func (s *Service) IsPhaseCompleted(ctx context.Context, caseID uuid.UUID, phase Phase) (bool, error) {
	return s.repo.IsPhaseCompleted(ctx, caseID, phase)
}

// Audit failures must not undo a committed clinical action; they are logged
// and counted instead.
func (s *Service) recordCompletionAudit(ctx context.Context, caseID uuid.UUID, phase Phase, actor audit.Actor, stored *PhaseStatus) {
	if s.auditor == nil {
		return
	}
	meta, _ := json.Marshal(phaseCompletionMetadata{
		Phase:       phase,
		ItemCount:   len(stored.Items),
		CompletedAt: stored.CompletedAt,
	})
	err := s.auditor.Record(ctx, audit.Event{
		Action:     audit.ActionChecklistPhaseCompleted,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		EntityType: "surgical_case",
		EntityID:   caseID.String(),
		Metadata:   meta,
	})
	if err != nil {
		s.metrics.ObserveAuditWriteFailure()
		s.logger.Error("failed to record checklist audit event",
			"case_id", caseID,
			"phase", phase,
			"error", err,
		)
	}
}
