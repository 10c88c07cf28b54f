package audit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/clinicore/surgical-ops/pkg/logging"
)

// Handler serves read-only access to the audit trail for back-office review.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new audit HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// QueryEvents returns audit events matching the query filters.
// GET /audit/events
// Query params:
//   - entity_type, entity_id, action: exact-match filters (optional)
//   - start, end: RFC3339 timestamps (optional)
//   - limit, offset: pagination (limit defaults to 100, capped at 500)
func (h *Handler) QueryEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := Filter{
		EntityType: strings.TrimSpace(q.Get("entity_type")),
		EntityID:   strings.TrimSpace(q.Get("entity_id")),
		Action:     Action(strings.TrimSpace(q.Get("action"))),
		Limit:      100,
	}

	if raw := strings.TrimSpace(q.Get("start")); raw != "" {
		start, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, `{"error":"invalid start time, use RFC3339 format"}`, http.StatusBadRequest)
			return
		}
		filter.StartTime = start
	}
	if raw := strings.TrimSpace(q.Get("end")); raw != "" {
		end, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, `{"error":"invalid end time, use RFC3339 format"}`, http.StatusBadRequest)
			return
		}
		filter.EndTime = end
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 500 {
			http.Error(w, `{"error":"invalid limit; must be 1-500"}`, http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}
	if raw := strings.TrimSpace(q.Get("offset")); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			http.Error(w, `{"error":"invalid offset"}`, http.StatusBadRequest)
			return
		}
		filter.Offset = offset
	}

	events, err := h.service.QueryEvents(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to query audit events", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []Event{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}
