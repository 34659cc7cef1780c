// Package httpapi exposes the local management API served by
// `llamactl serve`: catalog listing, server status and start/stop.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"llamactl/internal/catalog"
	"llamactl/internal/lifecycle"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() ([]catalog.ModelRecord, error)
	Servers() ([]lifecycle.Status, error)
	Start(ctx context.Context, slug string) (lifecycle.Status, error)
	Stop(slug string) error
}

// Options configures the router.
type Options struct {
	CORSEnabled bool
	CORSOrigins []string
	Log         zerolog.Logger
}

// NewMux builds the management API router.
func NewMux(svc Service, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	if opts.CORSEnabled {
		origins := opts.CORSOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Content-Type"},
		}))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	log := opts.Log

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		recs, err := svc.ListModels()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, map[string]any{"models": recs})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		servers, err := svc.Servers()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if servers == nil {
			servers = []lifecycle.Status{}
		}
		writeJSON(w, map[string]any{"servers": servers})
	})

	r.Post("/models/{slug}/start", func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		start := time.Now()
		st, err := svc.Start(r.Context(), slug)
		if err != nil {
			log.Error().Err(err).Str("slug", slug).Dur("dur", time.Since(start)).Msg("start failed")
			writeJSONError(w, statusFor(err), err.Error())
			return
		}
		log.Info().Str("slug", slug).Int32("pid", st.PID).Dur("dur", time.Since(start)).Msg("server ensured")
		writeJSON(w, st)
	})

	r.Post("/models/{slug}/stop", func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		if err := svc.Stop(slug); err != nil {
			writeJSONError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, map[string]any{"stopped": slug})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// statusFor maps component errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case catalog.IsNotFound(err), lifecycle.IsNotRunning(err):
		return http.StatusNotFound
	case catalog.IsConflict(err):
		return http.StatusConflict
	case lifecycle.IsStartupTimeout(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": msg,
		"code":  status,
	})
}
