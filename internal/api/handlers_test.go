package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperengineering/fluidbc/internal/fluidpressure/builtin"
	"github.com/hyperengineering/fluidbc/internal/journal"
	"github.com/hyperengineering/fluidbc/internal/runner"
	"github.com/hyperengineering/fluidbc/internal/types"
)

// --- Mock Implementations for Testing ---

// mockService implements Service for error paths.
type mockService struct {
	err       error
	lastBatch types.Batch
	lastLimit int
}

func (m *mockService) DefaultDimension() types.Dimension { return types.Dim2 }

func (m *mockService) Models(dim types.Dimension) ([]types.ModelInfo, error) {
	return []types.ModelInfo{{Name: "density", Dimension: dim}}, m.err
}

func (m *mockService) Parameters(types.Dimension) ([]types.ParameterInfo, error) {
	return nil, m.err
}

func (m *mockService) Evaluate(_ context.Context, b types.Batch) (types.EvaluateResponse, error) {
	m.lastBatch = b
	return types.EvaluateResponse{Model: "density"}, m.err
}

func (m *mockService) Runs(_ context.Context, limit int) ([]types.RunRecord, error) {
	m.lastLimit = limit
	return []types.RunRecord{}, m.err
}

func (m *mockService) LookupRun(context.Context, string) (types.RunRecord, error) {
	return types.RunRecord{}, m.err
}

// newTestServer wires the real runner with the built-in models and a
// journal in a temp directory.
func newTestServer(t *testing.T, apiKey string) *httptest.Server {
	t.Helper()
	rs, err := builtin.NewRegistries()
	if err != nil {
		t.Fatalf("NewRegistries() error = %v", err)
	}
	j, err := journal.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("journal.Open() error = %v", err)
	}
	t.Cleanup(func() { j.Close() })

	r, err := runner.New(rs, runner.Config{Gravity: "vertical", GravityMagnitude: 1, Journal: j})
	if err != nil {
		t.Fatalf("runner.New() error = %v", err)
	}
	srv := httptest.NewServer(NewRouter(NewHandler(r, apiKey, "test")))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body, apiKey string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

// --- Health ---

func TestHealth(t *testing.T) {
	srv := newTestServer(t, testAPIKey)

	resp := do(t, http.MethodGet, srv.URL+"/api/v1/health", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	health := decode[types.HealthResponse](t, resp)
	if health.Status != "healthy" || health.Version != "test" {
		t.Errorf("health = %+v", health)
	}
	want := []string{"density", "uniform"}
	if strings.Join(health.Models2D, ",") != strings.Join(want, ",") {
		t.Errorf("Models2D = %v, want %v", health.Models2D, want)
	}
	if strings.Join(health.Models3D, ",") != strings.Join(want, ",") {
		t.Errorf("Models3D = %v, want %v", health.Models3D, want)
	}
}

// --- Models and parameters ---

func TestModels_Dimension(t *testing.T) {
	srv := newTestServer(t, "")

	resp := do(t, http.MethodGet, srv.URL+"/api/v1/models?dim=3", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	models := decode[[]types.ModelInfo](t, resp)
	if len(models) != 2 || models[0].Dimension != types.Dim3 {
		t.Errorf("models = %+v", models)
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/models?dim=7", "", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("dim=7 status = %d, want 400", resp.StatusCode)
	}
}

func TestParameters(t *testing.T) {
	srv := newTestServer(t, "")

	resp := do(t, http.MethodGet, srv.URL+"/api/v1/parameters", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	params := decode[[]types.ParameterInfo](t, resp)
	found := false
	for _, p := range params {
		if p.Key == "boundary_fluid_pressure_model.plugin_name" {
			found = true
			if p.Default != "density" {
				t.Errorf("plugin_name default = %q, want density", p.Default)
			}
		}
	}
	if !found {
		t.Error("plugin_name not listed")
	}
}

// --- Evaluate ---

func TestEvaluate_DensityScenario(t *testing.T) {
	srv := newTestServer(t, "")

	body := `{
		"dimension": 2,
		"segments": [{"boundary_id": 1, "points": [
			{"position": [0, 0], "density": 1},
			{"position": [1, 0], "density": 2},
			{"position": [2, 0], "density": 3}
		]}]
	}`
	resp := do(t, http.MethodPost, srv.URL+"/api/v1/evaluate", body, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	out := decode[types.EvaluateResponse](t, resp)
	if out.Model != "density" || out.RunID == "" {
		t.Errorf("response = %+v", out)
	}
	want := [][]float64{{0, -1}, {0, -2}, {0, -3}}
	got := out.Segments[0].Gradients
	for i := range want {
		if got[i][0] != want[i][0] || got[i][1] != want[i][1] {
			t.Errorf("gradient[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	runs := decode[[]types.RunRecord](t, do(t, http.MethodGet, srv.URL+"/api/v1/runs", "", ""))
	if len(runs) != 1 || runs[0].ID != out.RunID {
		t.Fatalf("runs = %+v, want the evaluated run", runs)
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/runs/"+out.RunID, "", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET run status = %d, want 200", resp.StatusCode)
	}
	resp = do(t, http.MethodGet, srv.URL+"/api/v1/runs/01ARZ3NDEKTSV4RRFFQ69G5FAV", "", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET missing run status = %d, want 404", resp.StatusCode)
	}
}

func TestEvaluate_DimensionFromQuery(t *testing.T) {
	srv := newTestServer(t, "")

	body := `{
		"parameters": {"boundary_fluid_pressure_model": {"plugin_name": "uniform", "uniform": {"gradient": "1, 2, 3"}}},
		"segments": [{"boundary_id": 0, "points": [{"position": [0, 0, 1], "density": 1}]}]
	}`
	resp := do(t, http.MethodPost, srv.URL+"/api/v1/evaluate?dim=3d", body, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	out := decode[types.EvaluateResponse](t, resp)
	if out.Model != "uniform" || len(out.Segments[0].Gradients[0]) != 3 {
		t.Errorf("response = %+v", out)
	}
}

func TestEvaluate_Errors(t *testing.T) {
	srv := newTestServer(t, "")

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantDetail string
	}{
		{"invalid json", `{"segments": [`, http.StatusBadRequest, "Invalid JSON"},
		{"no segments", `{"segments": []}`, http.StatusUnprocessableEntity, "invalid fields"},
		{"wrong position length", `{"segments": [{"points": [{"position": [1, 2, 3]}]}]}`, http.StatusUnprocessableEntity, "invalid fields"},
		{
			"unknown model",
			`{"parameters": {"boundary_fluid_pressure_model": {"plugin_name": "nonexistent"}}, "segments": [{"points": [{"position": [0, 0]}]}]}`,
			http.StatusUnprocessableEntity, "nonexistent",
		},
		{
			"malformed option",
			`{"parameters": {"boundary_fluid_pressure_model": {"density": {"density_formulation": "bulk"}}}, "segments": [{"points": [{"position": [0, 0]}]}]}`,
			http.StatusUnprocessableEntity, "density_formulation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, srv.URL+"/api/v1/evaluate", tt.body, "")
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
				t.Errorf("Content-Type = %q, want application/problem+json", ct)
			}
			p := decode[Problem](t, resp)
			if !strings.Contains(p.Detail, tt.wantDetail) {
				t.Errorf("detail = %q, want it to contain %q", p.Detail, tt.wantDetail)
			}
		})
	}
}

func TestEvaluate_BodyTooLarge(t *testing.T) {
	h := NewHandler(&mockService{}, "", "test")
	body := bytes.Repeat([]byte(" "), MaxBodyBytes+1)

	w := httptest.NewRecorder()
	h.Evaluate(w, httptest.NewRequest(http.MethodPost, "/api/v1/evaluate", bytes.NewReader(body)))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestEvaluate_DimensionContextFillsBatch(t *testing.T) {
	svc := &mockService{}
	h := NewHandler(svc, "", "test")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluate", strings.NewReader(`{"segments": []}`))
	req = req.WithContext(WithDimension(req.Context(), types.Dim3))
	w := httptest.NewRecorder()
	h.Evaluate(w, req)

	if svc.lastBatch.Dimension != types.Dim3 {
		t.Errorf("batch dimension = %v, want 3d", svc.lastBatch.Dimension)
	}
}

// --- Runs ---

func TestRuns_Limit(t *testing.T) {
	svc := &mockService{}
	srv := httptest.NewServer(NewRouter(NewHandler(svc, "", "test")))
	defer srv.Close()

	resp := do(t, http.MethodGet, srv.URL+"/api/v1/runs?limit=5", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if svc.lastLimit != 5 {
		t.Errorf("limit = %d, want 5", svc.lastLimit)
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/runs?limit=0", "", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d, want 400", resp.StatusCode)
	}
}

func TestRuns_JournalDisabled(t *testing.T) {
	srv := httptest.NewServer(NewRouter(NewHandler(&mockService{err: runner.ErrJournalDisabled}, "", "test")))
	defer srv.Close()

	resp := do(t, http.MethodGet, srv.URL+"/api/v1/runs", "", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestHealth_ServiceError(t *testing.T) {
	h := NewHandler(&mockService{err: errors.New("boom")}, "", "test")
	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

// --- Auth ---

func TestRoutes_Auth(t *testing.T) {
	srv := newTestServer(t, testAPIKey)

	resp := do(t, http.MethodGet, srv.URL+"/api/v1/models", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("without key status = %d, want 401", resp.StatusCode)
	}
	resp = do(t, http.MethodGet, srv.URL+"/api/v1/models", "", testAPIKey)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("with key status = %d, want 200", resp.StatusCode)
	}
	resp = do(t, http.MethodGet, srv.URL+"/api/v1/health", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}
}
