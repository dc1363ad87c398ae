package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/hyperengineering/fluidbc/internal/types"
)

// dimensionContextKey is the context key for the requested dimension.
type dimensionContextKey struct{}

// WithDimension returns a new context with the dimension attached.
func WithDimension(ctx context.Context, dim types.Dimension) context.Context {
	return context.WithValue(ctx, dimensionContextKey{}, dim)
}

// DimensionFromContext extracts the requested dimension.
// Returns 0, meaning the configured default, if none was requested.
func DimensionFromContext(ctx context.Context) types.Dimension {
	dim, _ := ctx.Value(dimensionContextKey{}).(types.Dimension)
	return dim
}

// DimensionMiddleware reads the optional "dim" query parameter ("2", "3",
// "2d" or "3d") into the request context. Other values are rejected with 400.
func DimensionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("dim")
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		dim, err := parseDimension(raw)
		if err != nil {
			WriteProblem(w, r, http.StatusBadRequest, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithDimension(r.Context(), dim)))
	})
}

func parseDimension(raw string) (types.Dimension, error) {
	s := raw
	if n := len(s); n > 1 && (s[n-1] == 'd' || s[n-1] == 'D') {
		s = s[:n-1]
	}
	n, err := strconv.Atoi(s)
	if err != nil || !types.Dimension(n).Valid() {
		return 0, fmt.Errorf("invalid dimension %q: must be 2 or 3", raw)
	}
	return types.Dimension(n), nil
}
