package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-keeper/internal/faces"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondResult sends a service result with the status code matching its kind.
func respondResult(w http.ResponseWriter, okStatus int, r faces.Result) {
	if r.OK {
		respondJSON(w, okStatus, r)
		return
	}
	respondJSON(w, statusForKind(r.Kind), r)
}

// statusForKind maps a failure kind to an HTTP status code.
func statusForKind(kind faces.Kind) int {
	switch kind {
	case faces.KindNone:
		return http.StatusOK
	case faces.KindNotFound:
		return http.StatusNotFound
	case faces.KindDuplicateFace, faces.KindCameraBusy:
		return http.StatusConflict
	case faces.KindNoFaceDetected, faces.KindInvalidEmbedding:
		return http.StatusUnprocessableEntity
	case faces.KindCameraUnavailable:
		return http.StatusServiceUnavailable
	case faces.KindCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
