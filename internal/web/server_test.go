package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/face-keeper/internal/config"
	"github.com/kozaktomas/face-keeper/internal/faces"
	"github.com/kozaktomas/face-keeper/internal/facestore"
	"github.com/kozaktomas/face-keeper/internal/facestore/mock"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := facestore.New(mock.NewMockBackend(), facestore.Options{Logger: logger})
	if err != nil {
		t.Fatal(err)
	}
	store.Load(context.Background())
	svc := faces.NewService(store, nil, nil, nil, faces.Options{Logger: logger})
	return NewServer(context.Background(), config.Defaults(), svc)
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{http.MethodGet, "/api/v1/health", "", http.StatusOK},
		{http.MethodGet, "/api/v1/faces", "", http.StatusOK},
		{http.MethodGet, "/api/v1/faces/count", "", http.StatusOK},
		{http.MethodPost, "/api/v1/faces", `{"name":"Alice","embedding":[1,2,3]}`, http.StatusCreated},
		{http.MethodPost, "/api/v1/faces/reload", "", http.StatusOK},
		{http.MethodDelete, "/api/v1/faces/Alice", "", http.StatusOK},
		{http.MethodDelete, "/api/v1/faces/Alice", "", http.StatusNotFound},
		{http.MethodPost, "/api/v1/faces", `{"name":"Bob"}`, http.StatusServiceUnavailable},
		{http.MethodPost, "/api/v1/recognition", "", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/v1/recognition/frame", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/status", "", http.StatusOK},
		{http.MethodGet, "/", "", http.StatusOK},
		{http.MethodGet, "/api/v1/nope", "", http.StatusNotFound},
	}

	for _, tc := range tests {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		recorder := httptest.NewRecorder()
		srv.Router().ServeHTTP(recorder, req)

		if recorder.Code != tc.wantStatus {
			t.Errorf("%s %s: expected status %d, got %d: %s",
				tc.method, tc.path, tc.wantStatus, recorder.Code, recorder.Body.String())
		}
	}
}

func TestServer_DeleteEscapedNames(t *testing.T) {
	srv := newTestServer(t)

	for i, name := range []string{"100%", "a/b", "Jane Doe"} {
		body := `{"name":"` + name + `","embedding":[` + [3]string{"1,0,0", "0,1,0", "0,0,1"}[i] + `]}`
		recorder := httptest.NewRecorder()
		srv.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/faces", strings.NewReader(body)))
		if recorder.Code != http.StatusCreated {
			t.Fatalf("adding %q: expected status 201, got %d: %s", name, recorder.Code, recorder.Body.String())
		}
	}

	for _, path := range []string{"/api/v1/faces/100%25", "/api/v1/faces/a%2Fb", "/api/v1/faces/Jane%20Doe"} {
		recorder := httptest.NewRecorder()
		srv.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodDelete, path, nil))
		if recorder.Code != http.StatusOK {
			t.Errorf("DELETE %s: expected status 200, got %d: %s", path, recorder.Code, recorder.Body.String())
		}
	}
}

func TestServer_SecurityHeaders(t *testing.T) {
	srv := newTestServer(t)

	recorder := httptest.NewRecorder()
	srv.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := recorder.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected nosniff, got %q", got)
	}
	if ct := recorder.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected html index, got %q", ct)
	}
}
