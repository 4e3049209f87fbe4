package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anicoll/tibber-price-alert/internal/pkg/metrics"
	"github.com/anicoll/tibber-price-alert/internal/pkg/model"
)

type MockChecker struct {
	Result *model.TickResult
}

func (m *MockChecker) LastResult() (model.TickResult, bool) {
	if m.Result == nil {
		return model.TickResult{}, false
	}
	return *m.Result, true
}

type MockTrigger struct {
	Calls int
}

func (m *MockTrigger) Trigger() {
	m.Calls++
}

func serve(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	h := New(&MockChecker{}, &MockTrigger{}, metrics.New().Registry).Handler()

	rec := serve(t, h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestStatus(t *testing.T) {
	c := &MockChecker{}
	h := New(c, &MockTrigger{}, metrics.New().Registry).Handler()

	rec := serve(t, h, http.MethodGet, "/status")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c.Result = &model.TickResult{
		ID:         "tick-1",
		StartedAt:  time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2024, 1, 15, 3, 0, 1, 0, time.UTC),
		Outcome:    model.OutcomeNotified,
		Home:       model.Home{ID: "home-1"},
	}
	rec = serve(t, h, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	got := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "tick-1", got["id"])
	assert.Equal(t, "notified", got["outcome"])
	assert.NotContains(t, got, "cheapest")
}

func TestCheck(t *testing.T) {
	trig := &MockTrigger{}
	h := New(&MockChecker{}, trig, metrics.New().Registry).Handler()

	rec := serve(t, h, http.MethodPost, "/check")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, trig.Calls)

	rec = serve(t, h, http.MethodGet, "/check")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, 1, trig.Calls)
}

func TestMetrics(t *testing.T) {
	m := metrics.New()
	m.Ticks.WithLabelValues("notified").Inc()
	h := New(&MockChecker{}, &MockTrigger{}, m.Registry).Handler()

	rec := serve(t, h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `tibber_price_alert_ticks_total{outcome="notified"} 1`))
}

func TestLoggingMiddleware_CORS(t *testing.T) {
	h := New(&MockChecker{}, &MockTrigger{}, metrics.New().Registry).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://homeassistant.local:8123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://homeassistant.local:8123", rec.Header().Get("Access-Control-Allow-Origin"))
}
