package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cashlog/internal/core"
	applog "cashlog/internal/log"
)

// errorResponse is the JSON error envelope. Fields is only present for
// validation failures.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// listMeta carries pagination metadata for list endpoints.
type listMeta struct {
	TotalItems  int64 `json:"totalItems"`
	TotalPages  int64 `json:"totalPages"`
	CurrentPage int   `json:"currentPage"`
	PageSize    int   `json:"pageSize"`
}

type listResponse struct {
	Data any      `json:"data"`
	Meta listMeta `json:"meta"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors to HTTP statuses. Store failures are
// logged with detail but reported generically.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "validation failed",
			Fields: ve.Fields,
		})
		return
	}

	var ce *core.ConflictError
	if errors.As(err, &ce) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: ce.Error()})
		return
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, core.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
