package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope status values.
const (
	statusOK    = "ok"
	statusError = "error"
)

// Static failure messages. No error detail is ever sent to clients.
const (
	msgPageMissing  = "Page does not exist."
	msgWriteFailed  = "Could not write page."
	msgListFailed   = "Could not list pages."
	msgTagsFailed   = "Could not list tags."
	msgInvalidInput = "Invalid request."
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

func errorBody(msg string) ErrorResponse {
	return ErrorResponse{Status: statusError, Message: msg}
}
