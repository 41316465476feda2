package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/kozaktomas/face-keeper/internal/faces"
)

// RecognitionHandler controls live recognition.
type RecognitionHandler struct {
	svc *faces.Service
	// baseCtx outlives requests; recognition started over HTTP runs until
	// stopped or until the server shuts down.
	baseCtx context.Context
}

// NewRecognitionHandler creates a new recognition handler.
func NewRecognitionHandler(baseCtx context.Context, svc *faces.Service) *RecognitionHandler {
	return &RecognitionHandler{svc: svc, baseCtx: baseCtx}
}

// StatusResponse describes what the user should currently see.
type StatusResponse struct {
	Message string `json:"message"`
	Running bool   `json:"running"`
	Count   int    `json:"count"`
}

// Start starts recognition.
func (h *RecognitionHandler) Start(w http.ResponseWriter, r *http.Request) {
	respondResult(w, http.StatusAccepted, h.svc.StartRecognition(h.baseCtx))
}

// Stop stops recognition and waits for the camera to be released.
func (h *RecognitionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	respondResult(w, http.StatusOK, h.svc.StopRecognition())
}

// Frame returns the latest annotated frame as JPEG.
func (h *RecognitionHandler) Frame(w http.ResponseWriter, r *http.Request) {
	session := h.svc.Session()
	if session == nil {
		respondError(w, http.StatusNotFound, "no frame available")
		return
	}
	frame := session.Latest()
	if frame == nil {
		respondError(w, http.StatusNotFound, "no frame available")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Frame-Seq", strconv.FormatUint(frame.Seq, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(frame.JPEG)
}

// Events streams recognition events until the client disconnects.
func (h *RecognitionHandler) Events(w http.ResponseWriter, r *http.Request) {
	session := h.svc.Session()
	if session == nil {
		respondError(w, http.StatusNotFound, "recognition not available")
		return
	}
	flusher, ok := setupSSEConnection(w)
	if !ok {
		return
	}

	eventCh := session.Events.AddListener()
	defer session.Events.RemoveListener(eventCh)
	slog.Debug("event stream opened", "listeners", session.Events.Listeners())

	sendSSEEvent(w, flusher, "status", h.status())

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.baseCtx.Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, event.Type, event)
		}
	}
}

// Status returns the current status message.
func (h *RecognitionHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.status())
}

func (h *RecognitionHandler) status() StatusResponse {
	session := h.svc.Session()
	return StatusResponse{
		Message: h.svc.Status(),
		Running: session != nil && session.Running(),
		Count:   h.svc.Count(),
	}
}
