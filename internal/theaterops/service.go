package theaterops

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/clinicore/surgical-ops/internal/audit"
	"github.com/clinicore/surgical-ops/internal/cases"
	"github.com/clinicore/surgical-ops/internal/checklist"
	"github.com/clinicore/surgical-ops/internal/observability/metrics"
	"github.com/clinicore/surgical-ops/pkg/logging"
)

var theaterTracer = otel.Tracer("surgicalops.internal.theaterops")

// caseTransitioner executes validated status transitions.
type caseTransitioner interface {
	FindByID(ctx context.Context, caseID uuid.UUID) (*cases.SurgicalCase, error)
	TransitionTo(ctx context.Context, caseID uuid.UUID, target cases.Status, actor audit.Actor) (*cases.SurgicalCase, error)
}

// phaseChecker answers whether a checklist phase has been finalized.
type phaseChecker interface {
	IsPhaseCompleted(ctx context.Context, caseID uuid.UUID, phase checklist.Phase) (bool, error)
}

// auditRecorder appends events to the clinical audit trail.
type auditRecorder interface {
	Record(ctx context.Context, event audit.Event) error
}

// Service is the transition gate enforcer. It wraps the case state machine
// for theater operations: before the IN_PREP -> IN_THEATER and
// IN_THEATER -> RECOVERY edges it requires the SIGN_IN and SIGN_OUT
// checklist phases respectively. All other actions pass through ungated.
type Service struct {
	casesSvc  caseTransitioner
	checklist phaseChecker
	auditor   auditRecorder
	metrics   *metrics.EngineMetrics
	logger    *logging.Logger
	now       func() time.Time
}

// NewService constructs a theater operations service.
func NewService(casesSvc caseTransitioner, checklistSvc phaseChecker, auditor auditRecorder, m *metrics.EngineMetrics, logger *logging.Logger) *Service {
	if casesSvc == nil {
		panic("theaterops: case service required")
	}
	if checklistSvc == nil {
		panic("theaterops: checklist service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		casesSvc:  casesSvc,
		checklist: checklistSvc,
		auditor:   auditor,
		metrics:   m,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// TransitionResult reports a committed workflow transition.
type TransitionResult struct {
	CaseID             uuid.UUID    `json:"case_id"`
	PreviousStatus     cases.Status `json:"previous_status"`
	NewStatus          cases.Status `json:"new_status"`
	Action             Action       `json:"action"`
	TransitionedAt     time.Time    `json:"transitioned_at"`
	TransitionedByID   string       `json:"transitioned_by_id"`
	TransitionedByRole string       `json:"transitioned_by_role"`
}

type transitionMetadata struct {
	Action         Action       `json:"action"`
	PreviousStatus cases.Status `json:"previous_status"`
	NewStatus      cases.Status `json:"new_status"`
	ActorRole      string       `json:"actor_role"`
	Reason         string       `json:"reason,omitempty"`
}

type gateRejectionMetadata struct {
	Action         Action          `json:"action"`
	Gate           checklist.Phase `json:"gate"`
	PreviousStatus cases.Status    `json:"previous_status"`
	TargetStatus   cases.Status    `json:"target_status"`
	Reason         string          `json:"reason,omitempty"`
}

// Transition applies a workflow action to a case. On gate failure the state
// machine is never invoked and the case is not mutated; the rejection itself
// is still written to the audit trail for a complete safety record.
func (s *Service) Transition(ctx context.Context, caseID uuid.UUID, action Action, actor audit.Actor, reason string) (*TransitionResult, error) {
	ctx, span := theaterTracer.Start(ctx, "theaterops.transition", trace.WithAttributes(
		attribute.String("surgicalops.case_id", caseID.String()),
		attribute.String("surgicalops.action", string(action)),
	))
	defer span.End()

	target, ok := action.Target()
	if !ok {
		s.metrics.ObserveTransition(string(action), "invalid_action")
		return nil, &InvalidActionError{Action: string(action)}
	}

	current, err := s.casesSvc.FindByID(ctx, caseID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if gate, gated := requiredGate(current.Status, target); gated {
		complete, err := s.checklist.IsPhaseCompleted(ctx, caseID, gate)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if !complete {
			gateErr := &GateError{Gate: gate, From: current.Status, To: target}
			s.metrics.ObserveGateRejection(string(gate))
			s.metrics.ObserveTransition(string(action), "gate_rejected")
			s.recordGateRejection(ctx, caseID, action, gateErr, actor, reason)
			return nil, gateErr
		}
	}

	updated, err := s.casesSvc.TransitionTo(ctx, caseID, target, actor)
	if err != nil {
		s.metrics.ObserveTransition(string(action), "rejected")
		span.RecordError(err)
		return nil, err
	}

	s.metrics.ObserveTransition(string(action), "applied")
	s.recordTransition(ctx, caseID, action, current.Status, updated.Status, actor, reason)

	return &TransitionResult{
		CaseID:             caseID,
		PreviousStatus:     current.Status,
		NewStatus:          updated.Status,
		Action:             action,
		TransitionedAt:     updated.UpdatedAt,
		TransitionedByID:   actor.ID,
		TransitionedByRole: actor.Role,
	}, nil
}

// requiredGate returns the checklist phase that must be complete before
// moving from one status to another, if any.
func requiredGate(from, to cases.Status) (checklist.Phase, bool) {
	switch {
	case from == cases.StatusInPrep && to == cases.StatusInTheater:
		return checklist.PhaseSignIn, true
	case from == cases.StatusInTheater && to == cases.StatusRecovery:
		return checklist.PhaseSignOut, true
	}
	return "", false
}

func (s *Service) recordTransition(ctx context.Context, caseID uuid.UUID, action Action, from, to cases.Status, actor audit.Actor, reason string) {
	if s.auditor == nil {
		return
	}
	meta, _ := json.Marshal(transitionMetadata{
		Action:         action,
		PreviousStatus: from,
		NewStatus:      to,
		ActorRole:      actor.Role,
		Reason:         reason,
	})
	err := s.auditor.Record(ctx, audit.Event{
		Action:     audit.ActionCaseTransitioned,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		EntityType: "surgical_case",
		EntityID:   caseID.String(),
		Metadata:   meta,
	})
	if err != nil {
		s.metrics.ObserveAuditWriteFailure()
		s.logger.Error("failed to record transition audit event",
			"case_id", caseID,
			"action", action,
			"error", err,
		)
	}
}

func (s *Service) recordGateRejection(ctx context.Context, caseID uuid.UUID, action Action, gateErr *GateError, actor audit.Actor, reason string) {
	if s.auditor == nil {
		return
	}
	meta, _ := json.Marshal(gateRejectionMetadata{
		Action:         action,
		Gate:           gateErr.Gate,
		PreviousStatus: gateErr.From,
		TargetStatus:   gateErr.To,
		Reason:         reason,
	})
	err := s.auditor.Record(ctx, audit.Event{
		Action:     audit.ActionGateRejected,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		EntityType: "surgical_case",
		EntityID:   caseID.String(),
		Metadata:   meta,
	})
	if err != nil {
		s.metrics.ObserveAuditWriteFailure()
		s.logger.Error("failed to record gate-rejection audit event",
			"case_id", caseID,
			"gate", gateErr.Gate,
			"error", err,
		)
	}
}
