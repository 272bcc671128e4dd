package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/tradegate/internal/domain"
	"github.com/sawpanic/tradegate/internal/metrics"
	"github.com/sawpanic/tradegate/internal/permission"
	"github.com/sawpanic/tradegate/internal/persistence"
)

func testServer(t *testing.T) (*Server, *persistence.MemoryStore) {
	t.Helper()
	store := persistence.NewMemoryStore()
	return NewServer(DefaultConfig(), store, metrics.NewRegistry()), store
}

func seedAssessment(t *testing.T, store *persistence.MemoryStore, asset string, state domain.PermissionState, at time.Time) {
	t.Helper()
	err := store.Save(context.Background(), &permission.Assessment{
		ID:          asset + "-" + at.Format("150405"),
		Asset:       asset,
		State:       state,
		DecidedBy:   "full_permission",
		Uncertainty: domain.UncertaintyLow,
		AssessedAt:  at,
		ValidUntil:  at.Add(15 * time.Minute),
	})
	require.NoError(t, err)
}

func TestServer_Health(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_LatestAssessment(t *testing.T) {
	srv, store := testServer(t)
	seedAssessment(t, store, "BTC-USD", domain.Wait, time.Now().UTC())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/assessments/BTC-USD", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Assessment permission.Assessment `json:"assessment"`
		Eligible   bool                  `json:"eligible"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.Wait, body.Assessment.State)
	assert.False(t, body.Eligible)
}

func TestServer_LatestUnknownAssetReturns404(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/assessments/SOL-USD", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_HistoryFiltersBySince(t *testing.T) {
	srv, store := testServer(t)
	now := time.Now().UTC()
	seedAssessment(t, store, "BTC-USD", domain.TradeAllowed, now.Add(-3*time.Hour))
	seedAssessment(t, store, "BTC-USD", domain.Wait, now)

	url := "/api/v1/assessments/BTC-USD/history?since=" + now.Add(-time.Hour).Format(time.RFC3339)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
}

func TestServer_HistoryRejectsBadParams(t *testing.T) {
	srv, _ := testServer(t)

	for _, url := range []string{
		"/api/v1/assessments/BTC-USD/history?since=yesterday",
		"/api/v1/assessments/BTC-USD/history?limit=-5",
		"/api/v1/assessments/BTC-USD/history?limit=abc",
	} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, url)
	}
}

func TestServer_HistoryCapsOversizedLimit(t *testing.T) {
	srv, store := testServer(t)
	now := time.Now().UTC()
	for i := 0; i < 510; i++ {
		seedAssessment(t, store, "BTC-USD", domain.TradeAllowed, now.Add(time.Duration(i)*time.Second))
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/assessments/BTC-USD/history?limit=10000", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 500, body.Count)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
