package handlers

import (
	"context"
	"image"
	"image/color"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-keeper/internal/capture"
	"github.com/kozaktomas/face-keeper/internal/capture/capturetest"
	"github.com/kozaktomas/face-keeper/internal/faces"
	"github.com/kozaktomas/face-keeper/internal/facestore"
	"github.com/kozaktomas/face-keeper/internal/facestore/mock"
	"github.com/kozaktomas/face-keeper/internal/recognition"
)

// testEnv bundles a service with its fakes.
type testEnv struct {
	svc     *faces.Service
	backend *mock.MockBackend
	cam     *capturetest.Camera
	opener  *capturetest.Opener
	enc     *capturetest.Encoder
}

// newTestEnv creates a service backed by an in-memory store, a fake camera
// and an encoder that always finds one face.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	backend := mock.NewMockBackend()
	store, err := facestore.New(backend, facestore.Options{Logger: logger})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	store.Load(context.Background())

	cam := &capturetest.Camera{Frames: []image.Image{capturetest.Solid(64, 48, color.Gray{Y: 128})}}
	opener := &capturetest.Opener{Cam: cam}
	enc := &capturetest.Encoder{Detections: []capture.Detection{
		{Box: image.Rect(8, 8, 24, 24), Embedding: []float64{1, 0, 0}},
	}}
	session := recognition.NewSession(opener.Open, enc, store, recognition.Options{Logger: logger})
	t.Cleanup(func() { _ = session.Stop() })

	svc := faces.NewService(store, opener.Open, enc, session, faces.Options{Logger: logger})
	return &testEnv{svc: svc, backend: backend, cam: cam, opener: opener, enc: enc}
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
