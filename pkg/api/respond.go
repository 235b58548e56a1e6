package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/marmos91/lodestone/internal/errors"
	"github.com/marmos91/lodestone/internal/logger"
)

// errorEnvelope is the wire form of every failed request.
type errorEnvelope struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// writeJSON serializes v with the given status. A nil v sends the status
// and headers only.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("Failed to encode response: %v", err)
	}
}

// writeError maps a domain error to its HTTP status and envelope. Internal
// causes are logged, never serialized.
func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed: %v", err)
	}
	writeJSON(w, status, errorEnvelope{Kind: code.String(), Detail: apperrors.MessageOf(err)})
}

// decodeJSON reads a size-capped JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	body := http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return apperrors.Wrap(apperrors.CodeBadRequest, "malformed JSON body", err)
	}
	return nil
}
