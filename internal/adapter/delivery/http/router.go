// Package http exposes the short link use cases over a JSON REST API.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlink/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

const swaggerPath = "/docs/swagger.yml"

// NewRouter returns a chi router serving the short link API under /api/v1
// and its OpenAPI description under /docs and /swagger.
func NewRouter(logger *httplog.Logger, urlUseCase urlUseCase) *chi.Mux {
	h := newURLHandler(urlUseCase, validator.New(validator.WithRequiredStructEnabled()))

	r := chi.NewRouter()
	r.Use(
		corsHandler(),
		middleware.RequestID,
		middleware.RealIP,
		httplog.RequestLogger(logger),
		recoverer,
	)

	r.Group(mountDocs)
	r.Route("/api/v1", h.mount)

	return r
}

func corsHandler() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         int((24 * time.Hour).Seconds()),
	})
}

func mountDocs(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(swaggerPath)))
	r.Get(swaggerPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		if _, err := w.Write(docs.Swagger); err != nil {
			httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))
		}
	})
}

func (h *urlHandler) mount(r chi.Router) {
	r.Get("/ping", handlePing)
	r.Get("/urls", h.listURLs)
	r.Post("/shorten", h.shortenURL)

	r.Route("/shorten/{shortCode}", func(r chi.Router) {
		r.Get("/", h.resolveShortCode)
		r.Put("/", h.modifyURL)
		r.Delete("/", h.deactivateURL)
		r.Get("/stats", h.getURLStats)
	})
}
