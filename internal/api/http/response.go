package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrAk1876/carRent-sub002/internal/apperr"
	"github.com/MrAk1876/carRent-sub002/internal/logger"
)

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps application errors onto HTTP responses. Unknown errors are
// masked as internal so storage details never leak to callers.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperr.AppError
	if !errors.As(err, &appErr) {
		logger.Error("unhandled error", "error", err)
		appErr = apperr.Internal(err)
	}
	writeJSON(w, appErr.StatusCode(), errorResponse{Error: errorBody{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}})
}

type listMeta struct {
	Total    int32 `json:"total"`
	Page     int32 `json:"page"`
	PageSize int32 `json:"page_size"`
}

type listResponse struct {
	Items any      `json:"items"`
	Meta  listMeta `json:"meta"`
}
