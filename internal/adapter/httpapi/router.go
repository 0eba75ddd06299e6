// Package httpapi serves the upload endpoint, a health check and the MCP
// streamable HTTP transport.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/guillermoBallester/dqscore/internal/core/port"
	"github.com/guillermoBallester/dqscore/internal/core/service"
)

// Config holds router settings.
type Config struct {
	// BearerToken protects /evaluate and /mcp. Empty disables auth.
	BearerToken    string
	MaxUploadBytes int64
	// AllowedOrigins for CORS. Empty means no cross-origin access.
	AllowedOrigins []string
}

// NewRouter builds the HTTP handler. mcpHandler may be nil, in which case
// /mcp is not mounted.
func NewRouter(cfg Config, svc *service.AssessmentService, mcpHandler http.Handler, logger *slog.Logger, inst port.Instrumentation) http.Handler {
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(func(next http.Handler) http.Handler { return recoveryMiddleware(next, logger) })
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Mcp-Session-Id", "Mcp-Protocol-Version"},
			ExposedHeaders: []string{"Mcp-Session-Id"},
			MaxAge:         300,
		}))
	}

	r.With(render.SetContentType(render.ContentTypeJSON)).Get("/health", healthHandler)

	r.Group(func(r chi.Router) {
		if cfg.BearerToken != "" {
			r.Use(func(next http.Handler) http.Handler { return bearerAuthMiddleware(next, cfg.BearerToken) })
		}
		r.With(render.SetContentType(render.ContentTypeJSON)).
			Post("/evaluate", evaluateHandler(svc, cfg.MaxUploadBytes, logger, inst))
		if mcpHandler != nil {
			r.Handle("/mcp", mcpHandler)
		}
	})

	return r
}

type healthResponse struct {
	Status string `json:"status"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, healthResponse{Status: "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}
