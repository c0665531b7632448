package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/okr/internal/core/tracker"
	"github.com/colonyops/okr/internal/metrics"
	"github.com/colonyops/okr/internal/service"
)

type serverFixture struct {
	app    *service.App
	server *Server
	reg    *prometheus.Registry
}

func newServerFixture(t *testing.T, opts ServerOptions) *serverFixture {
	t.Helper()
	app := newTestApp(t, false)
	reg := prometheus.NewRegistry()
	opts.Gatherer = reg
	opts.Metrics = metrics.MustNewMetrics(reg)
	return &serverFixture{app: app, server: NewServer(app, opts, zerolog.Nop()), reg: reg}
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestServer_Health(t *testing.T) {
	f := newServerFixture(t, ServerOptions{})

	rec := f.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 0, body["clients"])
}

func TestServer_Objectives(t *testing.T) {
	f := newServerFixture(t, ServerOptions{})

	rec := f.do(t, http.MethodPost, "/api/objectives", map[string]any{
		"title":   "Grow revenue",
		"quarter": "1404-Q1",
		"keyResults": []map[string]any{
			{"title": "Launch", "category": "BINARY"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[service.ObjectiveView](t, rec)
	require.Len(t, created.KeyResults, 1)
	assert.InDelta(t, 0.0, created.Progress, 1e-9)

	rec = f.do(t, http.MethodGet, "/api/objectives?quarter=1404-*", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]service.ObjectiveView](t, rec), 1)

	rec = f.do(t, http.MethodGet, "/api/objectives?quarter=1403-*", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]service.ObjectiveView](t, rec))

	rec = f.do(t, http.MethodGet, "/api/objectives/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Grow revenue", decodeBody[service.ObjectiveView](t, rec).Title)

	rec = f.do(t, http.MethodGet, "/api/objectives/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/quarters", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"1404-Q1"}, decodeBody[[]string](t, rec))

	rec = f.do(t, http.MethodPost, "/api/objectives", map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_CheckInAndPeriods(t *testing.T) {
	f := newServerFixture(t, ServerOptions{})
	_, kr := seedObjective(t, f.app)

	rec := f.do(t, http.MethodPost, "/api/key-results/"+kr.ID+"/check-ins", map[string]any{
		"date":  "2025-04-01T10:00:00Z",
		"value": 4,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, true, body["adopted"])
	assert.InDelta(t, 40.0, body["progress"], 1e-9)

	rec = f.do(t, http.MethodGet, "/api/key-results/"+kr.ID+"/periods?now=2025-04-03", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decodeBody[service.PeriodPage](t, rec)
	assert.Equal(t, 0, page.Page)
	require.NotEmpty(t, page.Periods)
	assert.Equal(t, tracker.Exceeded, page.Periods[0].Classification)
	assert.Equal(t, tracker.NoReport, page.Periods[1].Classification)

	rec = f.do(t, http.MethodGet, "/api/key-results/"+kr.ID+"/periods?page=two", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/key-results/"+kr.ID+"/periods?now=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/key-results/"+kr.ID+"/comments", map[string]any{"authorId": "u1", "text": "ok"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	_, err := f.app.Objectives.SetKeyResultArchived(context.Background(), kr.ID, true)
	require.NoError(t, err)
	rec = f.do(t, http.MethodPost, "/api/key-results/"+kr.ID+"/check-ins", map[string]any{"value": 5})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_Notifications(t *testing.T) {
	f := newServerFixture(t, ServerOptions{})
	o, _ := seedObjective(t, f.app)
	require.NoError(t, f.app.Objectives.DeleteObjective(context.Background(), o.ID))
	f.app.Bus.Drain()

	rec := f.do(t, http.MethodGet, "/api/notifications?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]map[string]any](t, rec), 1)
}

func TestServer_Metrics(t *testing.T) {
	f := newServerFixture(t, ServerOptions{})

	f.do(t, http.MethodGet, "/api/health", nil)

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `okr_http_request_duration_seconds_count{method="GET",route="/api/health",status="200"} 1`)
}

func TestServer_CheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "no origin header", want: true},
		{name: "same host", origin: "http://example.com", want: true},
		{name: "other host", origin: "http://evil.test", want: false},
		{name: "glob match", allowed: []string{"*.corp.test"}, origin: "https://okr.corp.test", want: true},
		{name: "glob with port", allowed: []string{"localhost:*"}, origin: "http://localhost:5173", want: true},
		{name: "glob miss", allowed: []string{"*.corp.test"}, origin: "https://corp.test.evil", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServerFixture(t, ServerOptions{AllowedOrigins: tt.allowed})
			req := httptest.NewRequest(http.MethodGet, "http://example.com/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, f.server.checkOrigin(req))
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
