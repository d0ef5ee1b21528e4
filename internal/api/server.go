// Package api provides the HTTP API server and handlers for Bookwarden.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bookwarden/bookwarden-server/internal/notify"
	"github.com/bookwarden/bookwarden-server/internal/ratelimit"
	"github.com/bookwarden/bookwarden-server/internal/search"
	"github.com/bookwarden/bookwarden-server/internal/service"
	"github.com/bookwarden/bookwarden-server/internal/store"
	"github.com/bookwarden/bookwarden-server/internal/validation"
)

// Services bundles the service dependencies handlers dispatch to.
type Services struct {
	Circulation *service.CirculationService
	Catalog     *service.CatalogService
	Waitlist    *service.WaitlistService
	Sweep       *service.SweepService
	Audit       *service.AuditService
	Search      *search.Service
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store      *store.Store
	services   *Services
	sseHandler *notify.Handler
	router     *chi.Mux
	api        huma.API
	limiter    *ratelimit.KeyedRateLimiter
	validator  *validation.Validator
	logger     *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st *store.Store, services *Services, sseHandler *notify.Handler, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	humaConfig := huma.DefaultConfig("Bookwarden API", "1.0.0")
	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		store:      st,
		services:   services,
		sseHandler: sseHandler,
		router:     router,
		api:        api,
		limiter:    ratelimit.New(50, 100),
		validator:  validation.New(),
		logger:     logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Actor"},
		MaxAge:         300,
	}))
	s.router.Use(s.rateLimitMiddleware)
}

// setupRoutes registers all API operations.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerBookRoutes()
	s.registerBorrowerRoutes()
	s.registerLoanRoutes()
	s.registerIncidentRoutes()
	s.registerWaitlistRoutes()
	s.registerAuditRoutes()
	s.registerSearchRoutes()
	s.registerAdminRoutes()

	// SSE stream sits outside huma: it never returns, so an OpenAPI
	// operation shape does not fit.
	if s.sseHandler != nil {
		s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)
	}
}
