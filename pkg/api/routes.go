package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates and configures the Chi router
func NewRouter(h *Handler, apiToken string, origins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CORS(origins))

	r.Get("/health", h.HealthCheck)
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(JSONContentType)
		r.Use(BearerAuth(apiToken))

		r.Route("/words", func(r chi.Router) {
			r.Get("/", h.ListWords)
			r.Post("/", h.CreateWord)

			// Before /{id} to avoid conflicts
			r.Get("/list", h.GetWordList)
			r.Get("/export", h.ExportWords)
			r.Post("/import", h.ImportWords)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetWord)
				r.Put("/", h.UpdateWord)
				r.Delete("/", h.DeleteWord)
				r.Put("/level", h.UpdateWordLevel)
				r.Get("/sightings", h.GetSightings)
			})
		})

		r.Post("/highlight", h.Highlight)
		r.Post("/highlight/url", h.HighlightURL)

		r.Route("/stories", func(r chi.Router) {
			r.Get("/", h.ListStories)
			r.Post("/", h.CreateStory)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetStory)
				r.Put("/", h.UpdateStory)
				r.Delete("/", h.DeleteStory)
			})
		})

		r.Route("/flashcards", func(r chi.Router) {
			r.Get("/next", h.NextFlashcard)
			r.Put("/{id}/level", h.UpdateWordLevel)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.CreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Post("/insert", h.InsertIntoSession)
				r.Delete("/", h.CloseSession)
			})
		})
	})

	return r
}
