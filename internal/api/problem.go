package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hyperengineering/fluidbc/internal/journal"
	"github.com/hyperengineering/fluidbc/internal/plugin"
	"github.com/hyperengineering/fluidbc/internal/prm"
	"github.com/hyperengineering/fluidbc/internal/runner"
	"github.com/hyperengineering/fluidbc/internal/validation"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

// problemTypes maps HTTP status codes to RFC 7807 type URIs and titles.
var problemTypes = map[int]struct {
	typeURI string
	title   string
}{
	http.StatusUnauthorized: {
		typeURI: "https://fluidbc.dev/errors/unauthorized",
		title:   "Unauthorized",
	},
	http.StatusBadRequest: {
		typeURI: "https://fluidbc.dev/errors/bad-request",
		title:   "Bad Request",
	},
	http.StatusNotFound: {
		typeURI: "https://fluidbc.dev/errors/not-found",
		title:   "Not Found",
	},
	http.StatusRequestEntityTooLarge: {
		typeURI: "https://fluidbc.dev/errors/too-large",
		title:   "Request Entity Too Large",
	},
	http.StatusInternalServerError: {
		typeURI: "https://fluidbc.dev/errors/internal-error",
		title:   "Internal Server Error",
	},
	http.StatusUnprocessableEntity: {
		typeURI: "https://fluidbc.dev/errors/validation-error",
		title:   "Validation Error",
	},
	http.StatusServiceUnavailable: {
		typeURI: "https://fluidbc.dev/errors/service-unavailable",
		title:   "Service Unavailable",
	},
}

// WriteProblem writes an RFC 7807 Problem Details response.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	pt, ok := problemTypes[status]
	if !ok {
		pt = struct {
			typeURI string
			title   string
		}{
			typeURI: "https://fluidbc.dev/errors/unknown",
			title:   http.StatusText(status),
		}
	}

	p := Problem{
		Type:     pt.typeURI,
		Title:    pt.title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		slog.Error("failed to encode problem response", "error", err)
	}
}

// ProblemWithErrors extends Problem with validation error details.
type ProblemWithErrors struct {
	Problem
	Errors []validation.ValidationError `json:"errors,omitempty"`
}

// WriteProblemWithErrors writes a 422 Problem Details response with field errors.
func WriteProblemWithErrors(w http.ResponseWriter, r *http.Request, detail string, errs []validation.ValidationError) {
	pt := problemTypes[http.StatusUnprocessableEntity]

	p := ProblemWithErrors{
		Problem: Problem{
			Type:     pt.typeURI,
			Title:    pt.title,
			Status:   http.StatusUnprocessableEntity,
			Detail:   detail,
			Instance: r.URL.Path,
		},
		Errors: errs,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		slog.Error("failed to encode problem response", "error", err)
	}
}

// MapRunError converts run errors to Problem Details responses.
// Configuration and input errors are reported to the client in full; they
// only echo what the client or operator supplied.
func MapRunError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		batchErr *runner.BatchError
		evalErr  *runner.EvaluationError
	)
	switch {
	case errors.As(err, &batchErr):
		WriteProblemWithErrors(w, r, "Batch contains invalid fields", batchErr.Errors)
	case errors.Is(err, plugin.ErrUnknown),
		errors.Is(err, prm.ErrMalformedValue),
		errors.As(err, &evalErr):
		WriteProblem(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, runner.ErrUnsupportedDimension),
		errors.Is(err, journal.ErrInvalidLimit):
		WriteProblem(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, journal.ErrNotFound):
		WriteProblem(w, r, http.StatusNotFound, "Run not found")
	case errors.Is(err, runner.ErrJournalDisabled):
		WriteProblem(w, r, http.StatusServiceUnavailable, "Run journal is disabled")
	default:
		slog.Error("request failed",
			"component", "api",
			"path", r.URL.Path,
			"error", err,
		)
		// Never expose internal error details to client
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}
