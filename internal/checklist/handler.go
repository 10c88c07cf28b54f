package checklist

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

// Handler handles HTTP requests for the surgical safety checklist.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new checklist handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// CompletePhaseRequest is the request body for completing a phase.
type CompletePhaseRequest struct {
	Items []ItemConfirmation `json:"items"`
}

// CompletePhase handles POST /cases/{caseID}/checklist/{phase}
func (h *Handler) CompletePhase(w http.ResponseWriter, r *http.Request) {
	caseID, err := uuid.Parse(chi.URLParam(r, "caseID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid case id", nil)
		return
	}
	phase, err := ParsePhase(chi.URLParam(r, "phase"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	actor, ok := httpmiddleware.ActorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "acting staff member required", nil)
		return
	}

	var req CompletePhaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	status, err := h.service.CompletePhase(r.Context(), caseID, phase, req.Items, actor)
	if err != nil {
		var incomplete *IncompleteError
		switch {
		case errors.Is(err, cases.ErrCaseNotFound):
			writeError(w, http.StatusNotFound, "surgical case not found", nil)
		case errors.As(err, &incomplete):
			writeError(w, http.StatusUnprocessableEntity, incomplete.Error(), map[string]interface{}{
				"phase":            incomplete.Phase,
				"unconfirmed_keys": incomplete.Keys,
			})
		default:
			h.logger.Error("failed to complete checklist phase", "case_id", caseID, "phase", phase, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error", nil)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

// GetStatus handles GET /cases/{caseID}/checklist
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	caseID, err := uuid.Parse(chi.URLParam(r, "caseID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid case id", nil)
		return
	}

	status, err := h.service.GetStatus(r.Context(), caseID)
	if err != nil {
		h.logger.Error("failed to load checklist status", "case_id", caseID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
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
