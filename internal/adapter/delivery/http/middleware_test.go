package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
)

func TestRecoverer(t *testing.T) {
	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(httplog.NewLogger("", httplog.Options{Writer: io.Discard})))
	r.Use(recoverer)
	r.Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	e := httpexpect.Default(t, server.URL)

	t.Run("panic", func(t *testing.T) {
		obj := e.GET("/panic").
			Expect().
			Status(http.StatusInternalServerError).
			JSON().Object()

		obj.HasValue("status", "error")
		obj.HasValue("message", "server error occurred")
	})

	t.Run("no panic", func(t *testing.T) {
		e.GET("/ok").
			Expect().
			Status(http.StatusNoContent)
	})
}
