package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/surgical-ops/internal/board"
)

type emptyBoardRepo struct{}

func (emptyBoardRepo) ActiveTheaters(context.Context) ([]board.Theater, error) { return nil, nil }

func (emptyBoardRepo) BookingsForDay(context.Context, time.Time, time.Time) ([]board.BookingRow, error) {
	return nil, nil
}

func boardHandler() *board.Handler {
	return board.NewHandler(board.NewBuilder(emptyBoardRepo{}, nil, nil), nil)
}

func TestRouter_Health(t *testing.T) {
	r := New(&Config{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_MetricsMountedWhenConfigured(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("# metrics"))
	})
	r := New(&Config{MetricsHandler: metrics})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	bare := New(&Config{})
	rec = httptest.NewRecorder()
	bare.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_APIRequiresJWTWhenSecretSet(t *testing.T) {
	r := New(&Config{StaffJWTSecret: "secret", BoardHandler: boardHandler()})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/board", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_APIOpenWithoutSecret(t *testing.T) {
	r := New(&Config{BoardHandler: boardHandler()})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/board?date=2026-03-09", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	r := New(&Config{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
