package timeline

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/surgical-ops/internal/cases"
)

func newTimelineRouter(t *testing.T) (*chi.Mux, pgxmock.PgxPoolIface) {
	svc, mock := newTimelineService(t, &stubFinder{status: cases.StatusInTheater}, &stubAuditor{})
	handler := NewHandler(svc, nil)
	r := chi.NewRouter()
	r.Patch("/cases/{caseID}/timeline", handler.Update)
	r.Get("/cases/{caseID}/timeline", handler.Get)
	return r, mock
}

func TestUpdateHandler_ValidationFailure(t *testing.T) {
	router, mock := newTimelineRouter(t)
	caseID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM procedure_records`).
		WithArgs(caseID).
		WillReturnRows(recordRows(mock, caseID, Timestamps{
			IncisionTime: tm(t, "2026-03-09T09:00:00Z"),
		}))
	mock.ExpectRollback()

	body := `{"closure_time":"2026-03-09T08:30:00Z"}`
	req := httptest.NewRequest(http.MethodPatch, "/cases/"+caseID.String()+"/timeline", strings.NewReader(body))
	req.Header.Set("X-Actor-Id", "surgeon-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Details struct {
			Violations []Violation `json:"violations"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Details.Violations, 1)
	assert.Equal(t, FieldClosureTime, resp.Details.Violations[0].Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateHandler_MalformedTimestamp(t *testing.T) {
	router, _ := newTimelineRouter(t)

	req := httptest.NewRequest(http.MethodPatch, "/cases/"+uuid.NewString()+"/timeline", strings.NewReader(`{"wheels_in":"noonish"}`))
	req.Header.Set("X-Actor-Id", "surgeon-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetHandler_Snapshot(t *testing.T) {
	router, mock := newTimelineRouter(t)
	caseID := uuid.New()

	mock.ExpectQuery(`FROM procedure_records`).
		WithArgs(caseID).
		WillReturnRows(recordRows(mock, caseID, Timestamps{
			WheelsIn:  tm(t, "2026-03-09T08:00:00Z"),
			WheelsOut: tm(t, "2026-03-09T09:30:00Z"),
		}))

	req := httptest.NewRequest(http.MethodGet, "/cases/"+caseID.String()+"/timeline", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.NotNil(t, snap.Durations.ORTimeMinutes)
	assert.EqualValues(t, 90, *snap.Durations.ORTimeMinutes)
	assert.Equal(t, cases.StatusInTheater, snap.CaseStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}
