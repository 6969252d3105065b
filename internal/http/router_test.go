package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-risk/internal/aggregates"
	"github.com/yungbote/neurobridge-risk/internal/domain/grades"
	httpH "github.com/yungbote/neurobridge-risk/internal/http/handlers"
	"github.com/yungbote/neurobridge-risk/internal/ingest"
	"github.com/yungbote/neurobridge-risk/internal/model/modeltest"
	"github.com/yungbote/neurobridge-risk/internal/observability"
	"github.com/yungbote/neurobridge-risk/internal/scoring"
	"github.com/yungbote/neurobridge-risk/internal/snapshot"
)

type stubReloader struct {
	store *snapshot.Store
	err   error
}

func (s stubReloader) Reload(context.Context) (*snapshot.Snapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.store.Current(), nil
}

func record(id, program, module string, total float64, status grades.Status) grades.Record {
	return grades.Record{StudentID: id, Program: program, Module: module, Total: total, Status: status}.Derive()
}

func newTestRouter(t *testing.T, withSnapshot bool, reloadErr error) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := snapshot.NewStore()
	if withSnapshot {
		ds := &ingest.Dataset{ID: "ds-http", Records: []grades.Record{
			record("s1", "EEA", "Analyse 1", 85, grades.StatusPass),
			record("s1", "EEA", "Physique 1", 80, grades.StatusPass),
			record("s2", "EEA", "Analyse 1", 30, grades.StatusFail),
			record("s2", "EEA", "Electronique", 25, grades.StatusFail),
			record("s3", "EEA", "Analyse 1", 55, grades.StatusPass),
		}}
		store.Swap(snapshot.FromDataset(ds, aggregates.DefaultOptions(), modeltest.Model(t), nil))
	}
	engine := scoring.New(nil, store, scoring.DefaultOptions())
	return NewRouter(RouterConfig{
		Metrics:        observability.NewMetrics(),
		HealthHandler:  httpH.NewHealthHandler(store),
		RiskHandler:    httpH.NewRiskHandler(engine),
		CatalogHandler: httpH.NewCatalogHandler(engine),
		AdminHandler:   httpH.NewAdminHandler(stubReloader{store: store, err: reloadErr}),
	})
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var out map[string]any
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	env, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected an error envelope, got %v", body)
	return env["code"].(string)
}

func TestHealthAndReadiness(t *testing.T) {
	r := newTestRouter(t, false, nil)
	rec, _ := do(t, r, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := do(t, r, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "not_ready", errorCode(t, body))

	rec, body = do(t, r, http.MethodGet, "/api/v1/students/s1/risk", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "data_load", errorCode(t, body))

	r = newTestRouter(t, true, nil)
	rec, body = do(t, r, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["model_available"])

	rec, _ = do(t, r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "risk_api_requests_total")
}

func TestRiskEndpoint(t *testing.T) {
	r := newTestRouter(t, true, nil)
	rec, body := do(t, r, http.MethodGet, "/api/v1/students/s1/risk?module=Analyse%201", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pred := body["prediction"].(map[string]any)
	require.Equal(t, true, pred["using_model"])
	require.Equal(t, "Analyse 1", pred["target_module"])
	require.Equal(t, "MINIMAL", pred["category"])
	require.Equal(t, "learned", pred["estimate"].(map[string]any)["kind"])

	rec, body = do(t, r, http.MethodGet, "/api/v1/students/ghost/risk", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "unknown_student", errorCode(t, body))
}

func TestFeaturesSimilarAndForecast(t *testing.T) {
	r := newTestRouter(t, true, nil)

	rec, body := do(t, r, http.MethodGet, "/api/v1/students/s3/features?module=Nowhere", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	f := body["features"].(map[string]any)
	require.Equal(t, "default", f["module_source"])
	require.NotEmpty(t, f["explanation"])

	rec, body = do(t, r, http.MethodGet, "/api/v1/students/s3/similar-risks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["modules"], 2)

	rec, body = do(t, r, http.MethodGet, "/api/v1/students/ghost/similar-risks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, body["modules"])

	rec, body = do(t, r, http.MethodGet, "/api/v1/students/s3/forecast", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := body["forecast"].(map[string]any)["entries"].([]any)
	require.Len(t, entries, 2)
}

func TestSimulate(t *testing.T) {
	r := newTestRouter(t, true, nil)
	rec, body := do(t, r, http.MethodPost, "/api/v1/risk/simulate", map[string]any{
		"module": "Analyse 1",
		"records": []map[string]any{
			{"program": "EEA", "module": "Physique 1", "practical": 5, "theoretical": 15, "status": "fail"},
			{"program": "EEA", "module": "Electronique", "total": 30, "status": "Fail"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	pred := body["prediction"].(map[string]any)
	require.Equal(t, "simulation", pred["student_id"])
	require.Equal(t, "CRITIQUE", pred["category"])

	rec, body = do(t, r, http.MethodPost, "/api/v1/risk/simulate", map[string]any{"records": []any{}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_input", errorCode(t, body))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/risk/simulate", bytes.NewBufferString("{"))
	raw := httptest.NewRecorder()
	r.ServeHTTP(raw, req)
	require.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	r := newTestRouter(t, true, nil)

	rec, body := do(t, r, http.MethodGet, "/api/v1/students?q=s&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["students"], 2)

	rec, body = do(t, r, http.MethodGet, "/api/v1/modules?q=analyse", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["modules"], 1)

	rec, body = do(t, r, http.MethodGet, "/api/v1/modules/analyse%201", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Analyse 1", body["module"].(map[string]any)["module"])

	rec, body = do(t, r, http.MethodGet, "/api/v1/modules/unknown", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "unknown_module", errorCode(t, body))

	rec, body = do(t, r, http.MethodGet, "/api/v1/overview", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 3, body["overview"].(map[string]any)["students"])

	rec, body = do(t, r, http.MethodGet, "/api/v1/snapshot", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ds-http", body["snapshot"].(map[string]any)["dataset_id"])

	rec, _ = do(t, r, http.MethodGet, "/api/v1/profiles/Excellence/strategy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, body = do(t, r, http.MethodGet, "/api/v1/profiles/Nobody/strategy", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_input", errorCode(t, body))
}

func TestAdminReload(t *testing.T) {
	rec, body := do(t, newTestRouter(t, true, nil), http.MethodPost, "/api/v1/admin/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ds-http", body["snapshot"].(map[string]any)["id"])

	failing := grades.NewError(grades.CodeDataLoad, "snapshot.Build", "source unreadable", nil)
	rec, body = do(t, newTestRouter(t, true, failing), http.MethodPost, "/api/v1/admin/reload", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "data_load", errorCode(t, body))
}
