package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignite/brief/internal/pkg/httputil"
)

func (w *worker) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", w.handleHealth)
	r.Get("/status", w.handleStatus)
	r.Handle("/metrics", promhttp.HandlerFor(w.app.Registry, promhttp.HandlerOpts{}))
	return r
}

func (w *worker) handleHealth(rw http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := w.app.Ping(ctx); err != nil {
		httputil.Unavailable(rw, err.Error())
		return
	}
	httputil.OK(rw, map[string]string{"status": "ok"})
}

func (w *worker) handleStatus(rw http.ResponseWriter, _ *http.Request) {
	httputil.OK(rw, map[string]any{"last_pass": w.status()})
}
