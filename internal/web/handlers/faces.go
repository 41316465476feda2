package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-keeper/internal/constants"
	"github.com/kozaktomas/face-keeper/internal/faces"
	"github.com/kozaktomas/face-keeper/internal/facestore"
)

// FacesHandler serves the face database.
type FacesHandler struct {
	svc *faces.Service
}

// NewFacesHandler creates a new faces handler.
func NewFacesHandler(svc *faces.Service) *FacesHandler {
	return &FacesHandler{svc: svc}
}

// FaceResponse is one known face.
type FaceResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// FacesListResponse lists known faces in storage order.
type FacesListResponse struct {
	Faces []FaceResponse `json:"faces"`
	Count int            `json:"count"`
}

// AddFaceRequest adds a face. Without an embedding the face is captured
// from the camera.
type AddFaceRequest struct {
	Name      string    `json:"name"`
	Embedding []float64 `json:"embedding,omitempty"`
}

// List returns all known faces.
func (h *FacesHandler) List(w http.ResponseWriter, r *http.Request) {
	records := h.svc.Store().Records()
	resp := FacesListResponse{
		Faces: make([]FaceResponse, len(records)),
		Count: len(records),
	}
	for i, rec := range records {
		resp.Faces[i] = FaceResponse{ID: rec.ID, Name: rec.Name, CreatedAt: rec.CreatedAt}
	}
	respondJSON(w, http.StatusOK, resp)
}

// Count returns the number of known faces.
func (h *FacesHandler) Count(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]int{"count": h.svc.Count()})
}

// Create adds a face from the camera or from an explicit embedding.
func (h *FacesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req AddFaceRequest
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	var result faces.Result
	if len(req.Embedding) > 0 {
		result = h.svc.AddEmbedding(r.Context(), req.Embedding, req.Name)
	} else {
		result = h.svc.Add(r.Context(), req.Name)
	}
	if !result.OK {
		slog.Info("add face rejected", "name", sanitizeForLog(req.Name), "kind", result.Kind)
	}
	respondResult(w, http.StatusCreated, result)
}

// ReloadResponse reports the outcome of re-reading the backend.
type ReloadResponse struct {
	State string `json:"state"`
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

// Reload re-reads the face database from its backend, picking up changes
// written by other processes. A failed reload keeps the faces in memory.
func (h *FacesHandler) Reload(w http.ResponseWriter, r *http.Request) {
	report := h.svc.Store().Reload(context.WithoutCancel(r.Context()))
	resp := ReloadResponse{State: report.State.String(), Count: h.svc.Count()}
	status := http.StatusOK
	if report.Err != nil {
		resp.Error = report.Err.Error()
		slog.Warn("face database reload failed", "state", report.State, "error", report.Err)
	}
	if report.State == facestore.LoadUnavailable {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}

// Delete removes the first face with the given name.
func (h *FacesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		var err error
		if name, err = url.PathUnescape(name); err != nil {
			respondError(w, http.StatusBadRequest, "invalid face name")
			return
		}
	}
	if name == "" {
		respondError(w, http.StatusBadRequest, "invalid face name")
		return
	}
	respondResult(w, http.StatusOK, h.svc.Delete(r.Context(), name))
}
