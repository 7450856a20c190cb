package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

func decodeJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	respondJSON(w, status, map[string]any{"error": err.Error()})
}

// generationErrorEnvelope is the structured failure shape of the generation
// endpoints: a summary, the underlying details, and a timestamp.
func respondGenerationError(w http.ResponseWriter, summary string, err error) {
	respondJSON(w, http.StatusInternalServerError, map[string]any{
		"error":     summary,
		"details":   err.Error(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
