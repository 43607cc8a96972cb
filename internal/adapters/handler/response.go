package handler

import (
	"encoding/json"
	"net/http"
)

// APIResponse is the envelope every ops endpoint answers with.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func respondWithData(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, APIResponse{Success: true, Data: data})
}

func respondWithError(w http.ResponseWriter, status int, apiErr *APIError) {
	writeEnvelope(w, status, APIResponse{Error: apiErr})
}

func writeEnvelope(w http.ResponseWriter, status int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
