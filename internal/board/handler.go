package board

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/clinicore/surgical-ops/pkg/logging"
)

// Handler serves the day-of-operations board.
type Handler struct {
	builder *Builder
	logger  *logging.Logger
}

// NewHandler creates a new board handler.
func NewHandler(builder *Builder, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{builder: builder, logger: logger}
}

// GetBoard returns the board for a date.
// GET /board
// Query params:
//   - date: YYYY-MM-DD (optional, defaults to today UTC)
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	date := time.Now().UTC()
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, `{"error":"invalid date, use YYYY-MM-DD"}`, http.StatusBadRequest)
			return
		}
		date = parsed
	}

	board, err := h.builder.Build(r.Context(), date)
	if err != nil {
		h.logger.Error("failed to build day board", "date", date.Format("2006-01-02"), "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(board)
}
