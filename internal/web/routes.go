package web

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-keeper/internal/web/handlers"
	"github.com/kozaktomas/face-keeper/internal/web/static"
)

func (s *Server) setupRoutes() {
	facesHandler := handlers.NewFacesHandler(s.svc)
	recognitionHandler := handlers.NewRecognitionHandler(s.baseCtx, s.svc)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Faces
		r.Get("/faces", facesHandler.List)
		r.Get("/faces/count", facesHandler.Count)
		r.Post("/faces", facesHandler.Create)
		r.Post("/faces/reload", facesHandler.Reload)
		r.Delete("/faces/{name}", facesHandler.Delete)

		// Recognition
		r.Post("/recognition", recognitionHandler.Start)
		r.Delete("/recognition", recognitionHandler.Stop)
		r.Get("/recognition/frame", recognitionHandler.Frame)
		r.Get("/recognition/events", recognitionHandler.Events)

		r.Get("/status", recognitionHandler.Status)
	})

	s.router.Get("/", s.serveIndex)
}

// serveIndex serves the embedded single-page dashboard.
func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	f, err := static.GetFileSystem().Open("/index.html")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, f)
}
