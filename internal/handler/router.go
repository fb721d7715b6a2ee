package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"tumapply/internal/metrics"
)

type Handlers struct {
	Applications *ApplicationHandler
	Profiles     *ProfileHandler
	Documents    *DocumentHandler
}

func NewRouter(h Handlers, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(metrics.Middleware)

	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/profile", func(r chi.Router) {
			r.Get("/", h.Profiles.Get)
			r.Put("/", h.Profiles.Update)
			r.Get("/documents", h.Profiles.ListDocuments)
			r.Post("/documents/{category}", h.Profiles.UploadDocuments)
		})

		r.Post("/jobs/{jobID}/applications", h.Applications.Create)

		r.Get("/applications", h.Applications.ListMine)
		r.Route("/applications/{id}", func(r chi.Router) {
			r.Get("/", h.Applications.Get)
			r.Put("/", h.Applications.Update)
			r.Delete("/", h.Applications.Delete)
			r.Post("/withdraw", h.Applications.Withdraw)
			r.Get("/documents", h.Applications.ListDocuments)
			r.Post("/documents/{category}", h.Applications.UploadDocuments)
			r.Post("/custom-fields/{fieldID}/documents", h.Applications.UploadCustomFieldDocuments)
		})

		r.Route("/documents/{id}", func(r chi.Router) {
			r.Get("/", h.Documents.Download)
			r.Delete("/", h.Documents.Delete)
			r.Put("/rename", h.Documents.Rename)
		})
	})

	return r
}
