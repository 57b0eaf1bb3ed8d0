package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/journeyd/internal/config"
	"github.com/fyrsmithlabs/journeyd/internal/engine"
	"github.com/fyrsmithlabs/journeyd/internal/events"
	"github.com/fyrsmithlabs/journeyd/internal/journey"
	"github.com/fyrsmithlabs/journeyd/internal/touchpoint"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 9092, ShutdownTimeout: 5 * time.Second},
		Ingest: config.IngestConfig{RatePerSecond: 1000, Burst: 1000},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *engine.Engine) {
	t.Helper()
	eng, err := engine.New(journey.NewMemoryStore(), events.NopPublisher{}, zap.NewNop())
	require.NoError(t, err)
	return NewServer(cfg, eng, zap.NewNop()), eng
}

func doRequest(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestHandleTrack_Created(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	rec := doRequest(s, http.MethodPost, "/api/v1/touchpoints",
		`{"type":"page_view","channel":"organic","user_id":"u-1","page":"/pricing"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var tp touchpoint.Touchpoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tp))
	assert.NotEmpty(t, tp.ID)
	assert.Equal(t, touchpoint.TypePageView, tp.Type)
	assert.Equal(t, touchpoint.StageEvaluation, tp.Stage)
}

func TestHandleTrack_ValidationErrors(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	tests := []struct {
		name string
		body string
	}{
		{"unknown type", `{"type":"hover","channel":"web"}`},
		{"unknown channel", `{"type":"page_view","channel":"fax"}`},
		{"malformed json", `{"type":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(s, http.MethodPost, "/api/v1/touchpoints", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleTrack_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Ingest.RatePerSecond = 0.001
	cfg.Ingest.Burst = 1
	s, _ := newTestServer(t, cfg)

	body := `{"type":"page_view","channel":"web","user_id":"u-1"}`
	rec := doRequest(s, http.MethodPost, "/api/v1/touchpoints", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(s, http.MethodPost, "/api/v1/touchpoints", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHandleJourneys(t *testing.T) {
	s, eng := newTestServer(t, testConfig())

	_, err := eng.Track(context.Background(), touchpoint.Input{
		Type:    touchpoint.TypePageView,
		Channel: touchpoint.ChannelWeb,
		UserID:  "u-1",
	})
	require.NoError(t, err)

	rec := doRequest(s, http.MethodGet, "/api/v1/identities/u-1/journeys", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var journeys []json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &journeys))
	assert.Len(t, journeys, 1)

	rec = doRequest(s, http.MethodGet, "/api/v1/identities/unknown/journeys", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &journeys))
	assert.Empty(t, journeys, "unknown identity is an empty list, not an error")
}

func TestHandleVisualization(t *testing.T) {
	s, eng := newTestServer(t, testConfig())

	_, err := eng.Track(context.Background(), touchpoint.Input{
		Type:    touchpoint.TypePageView,
		Channel: touchpoint.ChannelWeb,
		UserID:  "u-1",
	})
	require.NoError(t, err)
	id := eng.JourneysForIdentity("u-1")[0].ID

	rec := doRequest(s, http.MethodGet, "/api/v1/journeys/"+id+"/visualization", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var vis engine.Visualization
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vis))
	assert.Equal(t, id, vis.JourneyID)
	assert.Len(t, vis.Nodes, 1)

	rec = doRequest(s, http.MethodGet, "/api/v1/journeys/missing/visualization", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListEndpoints_EmptyResults(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	for _, target := range []string{
		"/api/v1/paths",
		"/api/v1/dropoffs",
		"/api/v1/optimizations",
		"/api/v1/paths?limit=5",
		"/api/v1/paths?limit=bogus",
	} {
		rec := doRequest(s, http.MethodGet, target, "")
		assert.Equal(t, http.StatusOK, rec.Code, target)
	}
}

func TestListEndpoints_AfterAnalysis(t *testing.T) {
	s, eng := newTestServer(t, testConfig())
	ctx := context.Background()

	_, err := eng.Track(ctx, touchpoint.Input{
		Type:    touchpoint.TypeDemoRequest,
		Channel: touchpoint.ChannelDirect,
		UserID:  "u-1",
	})
	require.NoError(t, err)
	require.NoError(t, eng.RunAnalysisNow(ctx))

	rec := doRequest(s, http.MethodGet, "/api/v1/paths", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var paths []json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &paths))
	assert.Len(t, paths, 1)
}

func TestHandleHealth(t *testing.T) {
	s, eng := newTestServer(t, testConfig())

	rec := doRequest(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "no journeys yet")

	var h engine.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, engine.StatusUnhealthy, h.Status)

	_, err := eng.Track(context.Background(), touchpoint.Input{
		Type:    touchpoint.TypePageView,
		Channel: touchpoint.ChannelWeb,
		UserID:  "u-1",
	})
	require.NoError(t, err)

	rec = doRequest(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, engine.StatusHealthy, h.Status)
}
