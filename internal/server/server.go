// Package server is a development implementation of the report API the
// wizard talks to. It serves the /api/v1 subset the CLI consumes.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/valuation-cli/internal/store"
)

// APIPrefix is the base path of every API route.
const APIPrefix = "/api/v1"

// Config tunes the dev backend.
type Config struct {
	// Token is the bearer token clients must present. Empty disables auth.
	Token string
	// RateLimit is the sustained requests per second allowed per client IP.
	// Zero disables ingress limiting.
	RateLimit float64
	// RateBurst is the limiter bucket size. Default: 10.
	RateBurst int
	// AllowedOrigins for CORS. Default: any.
	AllowedOrigins []string
	// MaxUploadBytes caps multipart uploads. Default: 32 MiB.
	MaxUploadBytes int64
}

// Server routes API requests to a ReportStore.
type Server struct {
	store    store.ReportStore
	cfg      Config
	limiters *clientLimiters
	metrics  *httpMetrics
}

// New creates a Server backed by st.
func New(st store.ReportStore, cfg Config) *Server {
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 10
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	return &Server{
		store:    st,
		cfg:      cfg,
		limiters: newClientLimiters(cfg.RateLimit, cfg.RateBurst),
		metrics:  newHTTPMetrics(),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(s.metrics.middleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Retry-After", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())
	r.Route(APIPrefix, func(r chi.Router) {
		r.Get("/health", s.health)

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit)
			r.Use(s.auth)

			r.Route("/reports", func(r chi.Router) {
				r.Get("/", s.listReports)
				r.Post("/", s.createReport)
				r.Get("/{id}", s.getReport)
				r.Put("/{id}", s.replaceReport)
				r.Patch("/{id}", s.patchReport)
				r.Delete("/{id}", s.deleteReport)
			})
			r.Get("/clients", s.listClients)
			r.Post("/clients", s.createClient)
			r.Post("/files/upload", s.uploadFile)
		})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "Not found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed", "")
	})
	return r
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token == "" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+s.cfg.Token {
			writeError(w, r, http.StatusUnauthorized, "Not authenticated", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		fields := []zap.Field{
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		}
		switch {
		case ww.Status() >= 500:
			zap.L().Error("http request", fields...)
		case ww.Status() >= 400:
			zap.L().Warn("http request", fields...)
		default:
			zap.L().Debug("http request", fields...)
		}
	})
}
