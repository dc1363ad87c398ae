package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperengineering/fluidbc/internal/api"
	"github.com/hyperengineering/fluidbc/internal/fluidpressure/builtin"
	"github.com/hyperengineering/fluidbc/internal/journal"
	"github.com/hyperengineering/fluidbc/internal/runner"
	"github.com/hyperengineering/fluidbc/internal/types"
)

// setupTestEnv wires the built-in models, a journal in a temp directory and
// the API router in-process. cfg.Journal is filled in.
func setupTestEnv(t *testing.T, cfg runner.Config) (http.Handler, *journal.Store) {
	t.Helper()

	rs, err := builtin.NewRegistries()
	if err != nil {
		t.Fatalf("register models: %v", err)
	}
	j, err := journal.Open(filepath.Join(t.TempDir(), "fluidbc.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })

	if cfg.Gravity == "" {
		cfg.Gravity = "vertical"
		cfg.GravityMagnitude = 1
	}
	cfg.Journal = j
	r, err := runner.New(rs, cfg)
	if err != nil {
		t.Fatalf("runner.New: %v", err)
	}
	return api.NewRouter(api.NewHandler(r, "", "e2e")), j
}

// densityBody builds a one-segment batch whose point i has density i+1.
func densityBody(dim types.Dimension, boundary types.BoundaryID, n int, params map[string]any) *bytes.Buffer {
	points := make([]types.Point, n)
	for i := range points {
		points[i] = types.Point{Position: make([]float64, dim), Density: float64(i + 1)}
	}
	b := types.Batch{
		Dimension:  dim,
		Parameters: params,
		Segments:   []types.Segment{{BoundaryID: boundary, Points: points}},
	}
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(b)
	return &buf
}

// evaluate posts a batch and decodes a successful response.
func evaluate(t *testing.T, router http.Handler, body *bytes.Buffer) types.EvaluateResponse {
	t.Helper()
	status, raw := evaluateRaw(t, router, body)
	if status != http.StatusOK {
		t.Fatalf("evaluate: status %d: %s", status, raw)
	}
	var resp types.EvaluateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("evaluate decode: %v", err)
	}
	return resp
}

func evaluateRaw(t *testing.T, router http.Handler, body *bytes.Buffer) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluate", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec.Code, rec.Body.Bytes()
}

func listRuns(t *testing.T, router http.Handler, limit int) []types.RunRecord {
	t.Helper()
	url := "/api/v1/runs"
	if limit > 0 {
		url = fmt.Sprintf("%s?limit=%d", url, limit)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list runs: status %d: %s", rec.Code, rec.Body.String())
	}
	var runs []types.RunRecord
	if err := json.NewDecoder(rec.Body).Decode(&runs); err != nil {
		t.Fatalf("list runs decode: %v", err)
	}
	return runs
}

// assertGradients compares gradients exactly; every reference model is exact
// in floating point for the inputs the tests use.
func assertGradients(t *testing.T, got, want [][]float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d gradients, want %d", len(got), len(want))
	}
	for i := range want {
		if fmt.Sprint(got[i]) != fmt.Sprint(want[i]) {
			t.Errorf("gradient[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

func encode(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return &buf
}
