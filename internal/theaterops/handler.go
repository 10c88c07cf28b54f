package theaterops

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/surgical-ops/internal/cases"
	httpmiddleware "github.com/clinicore/surgical-ops/internal/http/middleware"
	"github.com/clinicore/surgical-ops/pkg/logging"
)

// Handler handles HTTP requests for theater workflow transitions.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new theater operations handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// TransitionRequest is the request body for a workflow transition.
type TransitionRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`
}

// Transition handles POST /cases/{caseID}/transition
func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
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

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	action, err := ParseAction(strings.TrimSpace(req.Action))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	result, err := h.service.Transition(r.Context(), caseID, action, actor, req.Reason)
	if err != nil {
		h.writeTransitionError(w, caseID, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (h *Handler) writeTransitionError(w http.ResponseWriter, caseID uuid.UUID, err error) {
	var (
		invalidAction     *InvalidActionError
		invalidTransition *cases.InvalidTransitionError
		gateErr           *GateError
		readiness         *cases.ReadinessError
	)
	switch {
	case errors.Is(err, cases.ErrCaseNotFound):
		writeError(w, http.StatusNotFound, "surgical case not found", nil)
	case errors.As(err, &invalidAction):
		writeError(w, http.StatusBadRequest, invalidAction.Error(), nil)
	case errors.As(err, &gateErr):
		writeError(w, http.StatusConflict, gateErr.Error(), map[string]interface{}{
			"gate":            gateErr.Gate,
			"previous_status": gateErr.From,
			"target_status":   gateErr.To,
		})
	case errors.As(err, &invalidTransition):
		writeError(w, http.StatusConflict, invalidTransition.Error(), map[string]interface{}{
			"from": invalidTransition.From,
			"to":   invalidTransition.To,
		})
	case errors.As(err, &readiness):
		writeError(w, http.StatusUnprocessableEntity, readiness.Error(), map[string]interface{}{
			"missing": readiness.Missing,
		})
	default:
		h.logger.Error("failed to transition case", "case_id", caseID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", nil)
	}
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
