// Package handlers provides JSON request and response helpers shared by domain HTTP handlers.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/osprey/pkg/formatting"
)

// RespondJSON writes data as a JSON body with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError logs err and writes it as {"error": "..."} with the given status code.
// Server errors are logged at error level, client errors at warn level.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	level := slog.LevelWarn
	msg := "request rejected"
	if status >= http.StatusInternalServerError {
		level, msg = slog.LevelError, "request failed"
	}
	logger.Log(context.Background(), level, msg, "status", status, "error", err)
	RespondJSON(w, status, map[string]string{"error": err.Error()})
}

// DecodeJSON decodes the request body into v and reports whether it succeeded.
// On failure the response is already written: 413 when the body exceeded the
// server's size cap, otherwise 400 carrying invalid.
func DecodeJSON(w http.ResponseWriter, r *http.Request, logger *slog.Logger, v any, invalid error) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RespondError(w, logger, http.StatusRequestEntityTooLarge,
			fmt.Errorf("request body exceeds %s", formatting.FormatBytes(tooLarge.Limit, 0)))
		return false
	}

	RespondError(w, logger, http.StatusBadRequest, invalid)
	return false
}
