package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"mindvault/internal/app"
	"mindvault/internal/metrics"
)

// Deps are the services and settings the router serves.
type Deps struct {
	Folders        *app.FolderService
	Concepts       *app.ConceptService
	Quiz           *app.QuizService
	Auth           *Authenticator
	CORSOrigins    []string
	MaxUploadBytes int64
	// UploadsDir, when set, is served under /uploads/.
	UploadsDir string
}

// NewRouter mounts the REST API under /api plus the health, metrics and upload routes.
func NewRouter(d Deps) http.Handler {
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 10 << 20
	}
	folders := &folderHandler{service: d.Folders}
	concepts := &conceptHandler{service: d.Concepts, maxUpload: d.MaxUploadBytes}
	quiz := &quizHandler{service: d.Quiz}
	live := NewWSHandler(d.Quiz)

	r := chi.NewRouter()
	r.Use(queryToken)
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("MindVault API is running"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())
	if d.UploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.UploadsDir))))
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(d.Auth.Middleware)

		api.Route("/folders", func(fr chi.Router) {
			fr.Post("/", folders.create)
			fr.Get("/", folders.list)
			fr.Get("/{id}", folders.get)
			fr.Patch("/{id}", folders.rename)
			fr.Delete("/{id}", folders.delete)
		})

		api.Route("/concepts", func(cr chi.Router) {
			cr.Post("/", concepts.create)
			cr.Get("/folder/{folderId}", concepts.list)
			cr.Get("/{id}", concepts.get)
			cr.Patch("/{id}", concepts.update)
			cr.Delete("/{id}", concepts.delete)
		})

		api.Route("/quiz", func(qr chi.Router) {
			qr.Get("/history", quiz.history)
			qr.Get("/history/{folderId}", quiz.history)
			qr.Get("/analytics/{folderId}", quiz.analytics)
			qr.Get("/{folderId}", quiz.get)
			qr.Post("/{folderId}/results", quiz.submit)
			qr.Get("/{folderId}/live", live.ServeWS)
		})
	})
	return r
}

// instrument records request counts and latency by route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.ObserveRequest(r.Method, route, status, time.Since(start))
	})
}
