// Package api provides the HTTP handlers and router of the engine's REST
// surface.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"dynatable/internal/auth"
	"dynatable/internal/engine"
	"dynatable/internal/middleware"
)

// Handler serves the auth and record endpoints.
type Handler struct {
	engine *engine.Engine
	auth   *auth.Service
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(eng *engine.Engine, authSvc *auth.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: eng, auth: authSvc, logger: logger}
}

// RouterConfig carries the transport-level knobs the router needs.
type RouterConfig struct {
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// Router assembles the full middleware stack and route table. Everything
// under /api requires a valid bearer token; /auth and /healthz do not.
func (h *Handler) Router(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	if cfg.RateLimitRPS > 0 {
		r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		}))
	}

	r.Get("/healthz", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/refresh", h.refresh)
		r.With(middleware.Auth(h.auth)).Get("/me", h.me)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(h.auth))
		r.Get("/tables", h.listTables)
		r.Route("/tables/{table}", func(r chi.Router) {
			r.Get("/", h.describeTable)
			r.Get("/records", h.listRecords)
			r.Post("/records", h.createRecord)
			r.Get("/records/{id}", h.getRecord)
			r.Patch("/records/{id}", h.updateRecord)
			r.Delete("/records/{id}", h.deleteRecord)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		// Internal detail stays in the logs.
		h.logger.Error("request failed",
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"error", err)
		message = "internal server error"
	}
	writeJSON(w, status, map[string]interface{}{
		"code":    status,
		"message": message,
	})
}
