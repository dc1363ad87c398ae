package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/fluidbc/internal/types"
)

// MaxBodyBytes bounds the size of an evaluation request.
const MaxBodyBytes = 64 << 20

// Service is the host the handlers delegate to. Implemented by runner.Runner.
type Service interface {
	DefaultDimension() types.Dimension
	Models(dim types.Dimension) ([]types.ModelInfo, error)
	Parameters(dim types.Dimension) ([]types.ParameterInfo, error)
	Evaluate(ctx context.Context, b types.Batch) (types.EvaluateResponse, error)
	Runs(ctx context.Context, limit int) ([]types.RunRecord, error)
	LookupRun(ctx context.Context, id string) (types.RunRecord, error)
}

// Handler implements the API handlers
type Handler struct {
	svc     Service
	apiKey  string
	version string
}

// NewHandler creates a new Handler. An empty apiKey disables authentication.
func NewHandler(svc Service, apiKey, version string) *Handler {
	return &Handler{
		svc:     svc,
		apiKey:  apiKey,
		version: version,
	}
}

// Health handles GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := types.HealthResponse{
		Status:  "healthy",
		Version: h.version,
	}
	for _, dim := range []types.Dimension{types.Dim2, types.Dim3} {
		models, err := h.svc.Models(dim)
		if err != nil {
			MapRunError(w, r, err)
			return
		}
		names := make([]string, len(models))
		for i, m := range models {
			names[i] = m.Name
		}
		if dim == types.Dim2 {
			resp.Models2D = names
		} else {
			resp.Models3D = names
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Models handles GET /api/v1/models
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	models, err := h.svc.Models(DimensionFromContext(r.Context()))
	if err != nil {
		MapRunError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models)
}

// Parameters handles GET /api/v1/parameters
func (h *Handler) Parameters(w http.ResponseWriter, r *http.Request) {
	params, err := h.svc.Parameters(DimensionFromContext(r.Context()))
	if err != nil {
		MapRunError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, params)
}

// Evaluate handles POST /api/v1/evaluate
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var batch types.Batch
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(&batch); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteProblem(w, r, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds %d bytes", MaxBodyBytes))
			return
		}
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}
	if batch.Dimension == 0 {
		batch.Dimension = DimensionFromContext(r.Context())
	}

	resp, err := h.svc.Evaluate(r.Context(), batch)
	if err != nil {
		slog.Warn("evaluation failed",
			"component", "api",
			"segments", len(batch.Segments),
			"error", err,
		)
		MapRunError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Runs handles GET /api/v1/runs
func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteProblem(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.svc.Runs(r.Context(), limit)
	if err != nil {
		MapRunError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// Run handles GET /api/v1/runs/{id}
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.LookupRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		MapRunError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
