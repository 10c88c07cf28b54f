// Package audit provides the append-only clinical action trail.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action identifies the kind of clinical action being recorded.
type Action string

const (
	// ActionCaseTransitioned is recorded when a case status transition commits.
	ActionCaseTransitioned Action = "CASE_TRANSITIONED"
	// ActionGateRejected is recorded when a checklist gate blocks a transition.
	ActionGateRejected Action = "GATE_REJECTED"
	// ActionChecklistPhaseCompleted is recorded on every phase-completion call,
	// including idempotent repeats.
	ActionChecklistPhaseCompleted Action = "CHECKLIST_PHASE_COMPLETED"
	// ActionTimelineUpdated is recorded once per changed timeline field.
	ActionTimelineUpdated Action = "TIMELINE_UPDATED"
	// ActionTimelineInvalidAttempt is recorded when a timeline patch fails
	// chronological validation.
	ActionTimelineInvalidAttempt Action = "TIMELINE_INVALID_ATTEMPT"
)

// Actor identifies the clinical staff member performing an action.
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// Event is an immutable audit record.
type Event struct {
	ID         string          `json:"id"`
	Action     Action          `json:"action"`
	ActorID    string          `json:"actor_id"`
	ActorRole  string          `json:"actor_role"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Service writes and queries audit events. Events are append-only; there is
// no update or delete path.
type Service struct {
	db *sql.DB
}

// NewService creates a new audit service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Record persists a single audit event.
func (s *Service) Record(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_events (
			id, action, actor_id, actor_role, entity_type, entity_id, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Action,
		event.ActorID,
		event.ActorRole,
		event.EntityType,
		event.EntityID,
		nullJSON(event.Metadata),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: record event: %w", err)
	}

	return nil
}

// Filter specifies criteria for querying audit events.
type Filter struct {
	EntityType string
	EntityID   string
	Action     Action
	StartTime  time.Time
	EndTime    time.Time
	Limit      int
	Offset     int
}

// QueryEvents retrieves audit events matching the filter, newest first.
func (s *Service) QueryEvents(ctx context.Context, filter Filter) ([]Event, error) {
	query := `
		SELECT id, action, actor_id, actor_role, entity_type, entity_id, metadata, created_at
		FROM audit_events
		WHERE 1=1
	`
	var args []interface{}
	argIdx := 1

	if filter.EntityType != "" {
		query += fmt.Sprintf(" AND entity_type = $%d", argIdx)
		args = append(args, filter.EntityType)
		argIdx++
	}
	if filter.EntityID != "" {
		query += fmt.Sprintf(" AND entity_id = $%d", argIdx)
		args = append(args, filter.EntityID)
		argIdx++
	}
	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, filter.Action)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var metadata []byte
		err := rows.Scan(
			&e.ID, &e.Action, &e.ActorID, &e.ActorRole,
			&e.EntityType, &e.EntityID, &metadata, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		e.Metadata = metadata
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate events: %w", err)
	}

	return events, nil
}

func nullJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
