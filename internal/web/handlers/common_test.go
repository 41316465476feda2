package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-keeper/internal/faces"
)

func TestRespondJSON_SetsContentTypeAndStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		data       any
	}{
		{"OK", http.StatusOK, map[string]string{"status": "ok"}},
		{"Created", http.StatusCreated, nil},
		{"NotFound", http.StatusNotFound, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondJSON(recorder, tc.statusCode, tc.data)

			if recorder.Code != tc.statusCode {
				t.Errorf("expected status %d, got %d", tc.statusCode, recorder.Code)
			}
			if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type 'application/json', got '%s'", ct)
			}
			if tc.data == nil && recorder.Body.Len() != 0 {
				t.Errorf("expected empty body, got %q", recorder.Body.String())
			}
		})
	}
}

func TestRespondError_ContainsErrorKey(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondError(recorder, http.StatusBadRequest, "invalid input")

	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if result["error"] != "invalid input" {
		t.Errorf("expected error 'invalid input', got '%s'", result["error"])
	}
}

func TestRespondResult(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondResult(recorder, http.StatusCreated, faces.Result{OK: true, Message: "done", Count: 1})
	if recorder.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	respondResult(recorder, http.StatusCreated, faces.Result{Kind: faces.KindDuplicateFace, Message: "dup"})
	if recorder.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", recorder.Code)
	}

	var result faces.Result
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if result.Kind != faces.KindDuplicateFace || result.Message != "dup" || result.OK {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		kind faces.Kind
		want int
	}{
		{faces.KindNone, http.StatusOK},
		{faces.KindNotFound, http.StatusNotFound},
		{faces.KindDuplicateFace, http.StatusConflict},
		{faces.KindCameraBusy, http.StatusConflict},
		{faces.KindNoFaceDetected, http.StatusUnprocessableEntity},
		{faces.KindInvalidEmbedding, http.StatusUnprocessableEntity},
		{faces.KindCameraUnavailable, http.StatusServiceUnavailable},
		{faces.KindCanceled, http.StatusRequestTimeout},
		{faces.KindPersistenceError, http.StatusInternalServerError},
		{faces.KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			if got := statusForKind(tc.kind); got != tc.want {
				t.Errorf("statusForKind(%q) = %d, want %d", tc.kind, got, tc.want)
			}
		})
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("Alice\r\nINFO fake"); got != "AliceINFO fake" {
		t.Errorf("sanitizeForLog() = %q", got)
	}
}

func TestHealthCheck(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		t.Run(method, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			HealthCheck(recorder, httptest.NewRequest(method, "/api/v1/health", nil))

			if recorder.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", recorder.Code)
			}
			var result map[string]string
			if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if result["status"] != "ok" {
				t.Errorf("expected status 'ok', got '%s'", result["status"])
			}
		})
	}
}
