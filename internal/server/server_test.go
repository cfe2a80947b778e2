package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/cadence/internal/clock"
	"github.com/lazypower/cadence/internal/engine"
	"github.com/lazypower/cadence/internal/metrics"
	"github.com/lazypower/cadence/internal/notify"
	"github.com/lazypower/cadence/internal/store"
)

// monday is 2026-03-02 08:30 UTC.
var monday = time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)

func testServer(t *testing.T) *Server {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg := prometheus.NewRegistry()
	eng := engine.NewWithStore(db, notify.NewQueue(db), engine.Options{
		Clock:   clock.Fixed{T: monday},
		Metrics: metrics.New(reg),
	})
	_, err = eng.Anchors.Initialize(context.Background())
	require.NoError(t, err)
	return New(db, eng, "test-version", Options{Gatherer: reg})
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func createMedication(t *testing.T, srv *Server) string {
	t.Helper()
	w := do(t, srv, "POST", "/api/reminders/", map[string]any{
		"title":    "Metformin",
		"category": "medications",
		"time":     "2026-03-02T10:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	rem := decodeBody(t, w)["reminder"].(map[string]any)
	return rem["id"].(string)
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv, "GET", "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test-version", body["version"])
	assert.Equal(t, true, body["db"])
	assert.NotZero(t, body["schema_version"])
}

func TestAnchorsRoundTrip(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv, "PUT", "/api/anchors/breakfast", map[string]string{"time_of_day": "7:15 am"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, srv, "GET", "/api/anchors", nil)
	require.Equal(t, http.StatusOK, w.Code)
	anchors := decodeBody(t, w)["anchors"].(map[string]any)
	assert.Equal(t, "07:15:00", anchors["Breakfast"])
	assert.Equal(t, "12:30:00", anchors["Lunch"])
}

func TestSetAnchorRejectsBadInput(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv, "PUT", "/api/anchors/brunch", map[string]string{"time_of_day": "10:00"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, "PUT", "/api/anchors/Lunch", map[string]string{"time_of_day": "25:99"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, "PUT", "/api/anchors/Lunch", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResolveAndNextSlot(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv, "GET", "/api/resolve?input=routine:Dinner", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Dinner", decodeBody(t, w)["anchor"])

	w = do(t, srv, "GET", "/api/next-slot", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Lunch", decodeBody(t, w)["anchor"])

	w = do(t, srv, "GET", "/api/next-slot?at=garbage", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTierEndpoints(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv, "GET", "/api/tiers/medications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "T1", decodeBody(t, w)["id"])

	w = do(t, srv, "PUT", "/api/tiers", map[string]string{"other": "T2", "groceries": "T9"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, []any{"groceries"}, body["rejected"])
	assert.Equal(t, "T2", body["mapping"].(map[string]any)["other"])

	w = do(t, srv, "GET", "/api/tiers/unknown-category", nil)
	assert.Equal(t, "T3", decodeBody(t, w)["id"])
}

func TestCreateReminderValidation(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv, "POST", "/api/reminders/", map[string]any{"category": "medications"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest("POST", "/api/reminders/", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMedicationLifecycle(t *testing.T) {
	srv := testServer(t)
	id := createMedication(t, srv)

	w := do(t, srv, "GET", "/api/reminders/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["escalation_active"])
	assert.NotEmpty(t, body["notification_id"])

	w = do(t, srv, "GET", "/api/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["notifications"], 4, "primary plus three milestones")

	w = do(t, srv, "GET", "/api/escalations/"+id+"/caregiver", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["escalations"], 1)

	w = do(t, srv, "POST", "/api/reminders/"+id+"/ack", map[string]string{"status": "taken"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	next := decodeBody(t, w)["next"].(map[string]any)
	assert.NotNil(t, next["schedule"])

	w = do(t, srv, "GET", "/api/reminders/"+id, nil)
	body = decodeBody(t, w)
	rem := body["reminder"].(map[string]any)
	assert.Equal(t, "2026-03-03T10:00:00Z", rem["reminder_time"])

	w = do(t, srv, "DELETE", "/api/reminders/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, "GET", "/api/reminders/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, srv, "GET", "/api/notifications", nil)
	assert.Empty(t, decodeBody(t, w)["notifications"])
}

func TestAcknowledgeRejectsUnknownStatus(t *testing.T) {
	srv := testServer(t)
	id := createMedication(t, srv)

	w := do(t, srv, "POST", "/api/reminders/"+id+"/ack", map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSnoozeEndpoint(t *testing.T) {
	srv := testServer(t)
	id := createMedication(t, srv)

	w := do(t, srv, "POST", "/api/reminders/"+id+"/snooze", map[string]int{"minutes": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, "POST", "/api/reminders/"+id+"/snooze", map[string]int{"minutes": 20})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rem := decodeBody(t, w)["reminder"].(map[string]any)
	assert.Equal(t, "snoozed", rem["status"])

	w = do(t, srv, "POST", "/api/reminders/missing/snooze", map[string]int{"minutes": 20})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEscalationStop(t *testing.T) {
	srv := testServer(t)
	id := createMedication(t, srv)

	w := do(t, srv, "POST", "/api/escalations/"+id+"/stop", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, "GET", "/api/escalations/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["active"])

	w = do(t, srv, "POST", "/api/escalations/"+id+"/start", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decodeBody(t, w)["started"])
}

func TestPromptsNotFound(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv, "GET", "/api/prompts", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, "POST", "/api/prompts/nope/accept", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, srv, "POST", "/api/prompts/nope/dismiss", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCalendarExport(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv, "GET", "/api/calendar.ics", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	id := createMedication(t, srv)
	w = do(t, srv, "GET", "/api/calendar.ics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, w.Body.String(), "BEGIN:VCALENDAR")
	assert.Contains(t, w.Body.String(), id+"@cadence")
	assert.Contains(t, w.Body.String(), "FREQ=DAILY")
}

func TestUpcomingAndAgenda(t *testing.T) {
	srv := testServer(t)
	createMedication(t, srv)

	w := do(t, srv, "GET", "/api/upcoming?days=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["upcoming"], 3)

	w = do(t, srv, "GET", "/api/upcoming?days=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, "GET", "/api/agenda", nil)
	require.Equal(t, http.StatusOK, w.Code)
	text := w.Body.String()
	assert.Contains(t, text, "### Routine")
	assert.Contains(t, text, "- 08:00 Breakfast")
	assert.Contains(t, text, "10:00 Metformin [T1] (escalating)")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t)
	createMedication(t, srv)

	w := do(t, srv, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `cadence_reminders_scheduled_total{tier="T1"} 1`)
}
