package cases

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clinicore/surgical-ops/internal/audit"
	"github.com/clinicore/surgical-ops/pkg/logging"
)

var casesTracer = otel.Tracer("surgicalops.internal.cases")

// Service executes validated status transitions. It owns the transition
// table and the scheduling-readiness gate, but deliberately writes no audit
// events: callers own audit logging so that gate rejections and successful
// transitions share one logging contract.
type Service struct {
	repo   *Repository
	logger *logging.Logger
}

// NewService constructs a case transition service.
func NewService(repo *Repository, logger *logging.Logger) *Service {
	if repo == nil {
		panic("cases: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// FindByID loads a surgical case.
func (s *Service) FindByID(ctx context.Context, caseID uuid.UUID) (*SurgicalCase, error) {
	return s.repo.FindByID(ctx, caseID)
}

// FindPlanByCaseID loads the case plan for a case.
func (s *Service) FindPlanByCaseID(ctx context.Context, caseID uuid.UUID) (*CasePlan, error) {
	return s.repo.FindPlanByCaseID(ctx, nil, caseID)
}

// TransitionTo validates and executes a status transition. The case row is
// locked for the validate+write span so two racing transitions cannot both
// commit from the same stale status.
//
// Only the PLANNING -> READY_FOR_SCHEDULING edge additionally requires the
// case plan to satisfy the minimum documentation rules; violations are
// aggregated into a single ReadinessError.
func (s *Service) TransitionTo(ctx context.Context, caseID uuid.UUID, target Status, actor audit.Actor) (*SurgicalCase, error) {
	ctx, span := casesTracer.Start(ctx, "cases.transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("surgicalops.case_id", caseID.String()),
		attribute.String("surgicalops.target_status", string(target)),
	)

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := s.repo.FindByIDForUpdate(ctx, tx, caseID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if !CanTransition(current.Status, target) {
		return nil, &InvalidTransitionError{From: current.Status, To: target}
	}

	if current.Status == StatusPlanning && target == StatusReadyForScheduling {
		plan, err := s.repo.FindPlanByCaseID(ctx, tx, caseID)
		if err != nil && err != ErrPlanNotFound {
			span.RecordError(err)
			return nil, err
		}
		if err := ValidateReadiness(plan); err != nil {
			return nil, err
		}
	}

	updatedAt, err := s.repo.UpdateStatus(ctx, tx, caseID, target)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}

	updated := *current
	updated.Status = target
	updated.UpdatedAt = updatedAt

	s.logger.Info("case transitioned",
		"case_id", caseID,
		"from", current.Status,
		"to", target,
		"actor_id", actor.ID,
		"actor_role", actor.Role,
	)
	return &updated, nil
}
