// Package api holds the JSON response helpers shared by all handlers.
// Every error body is {"error": ...}; upstream failures also carry a
// "detail" field with the underlying cause.
package api

import (
	"encoding/json"
	"net/http"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]any{"error": msg})
}

func WriteUpstreamError(w http.ResponseWriter, msg string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	WriteJSON(w, http.StatusInternalServerError, map[string]any{
		"error":  msg,
		"detail": detail,
	})
}
