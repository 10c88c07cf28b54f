package timeline

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/surgical-ops/internal/cases"
	httpmiddleware "github.com/clinicore/surgical-ops/internal/http/middleware"
	"github.com/clinicore/surgical-ops/pkg/logging"
)

// Handler handles HTTP requests for the operative timeline.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new timeline handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Get handles GET /cases/{caseID}/timeline
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	caseID, err := uuid.Parse(chi.URLParam(r, "caseID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid case id", nil)
		return
	}

	snapshot, err := h.service.GetTimeline(r.Context(), caseID)
	if err != nil {
		if errors.Is(err, cases.ErrCaseNotFound) {
			writeError(w, http.StatusNotFound, "surgical case not found", nil)
			return
		}
		h.logger.Error("failed to load timeline", "case_id", caseID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snapshot)
}

// Update handles PATCH /cases/{caseID}/timeline
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	caseID, err := uuid.Parse(chi.URLParam(r, "caseID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid case id", nil)
		return
	}
	actor, ok := httpmiddleware.ActorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "acting staff member required", nil)
		return
	}

	var patch Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	snapshot, err := h.service.UpdateTimeline(r.Context(), caseID, &patch, actor)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.Is(err, cases.ErrCaseNotFound):
			writeError(w, http.StatusNotFound, "surgical case not found", nil)
		case errors.As(err, &verr):
			writeError(w, http.StatusUnprocessableEntity, verr.Error(), map[string]interface{}{
				"violations": verr.Violations,
			})
		default:
			h.logger.Error("failed to update timeline", "case_id", caseID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error", nil)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snapshot)
}

func writeError(w http.ResponseWriter, code int, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	body := map[string]interface{}{"error": message}
	if len(details) > 0 {
		body["details"] = details
	}
	_ = json.NewEncoder(w).Encode(body)
}
