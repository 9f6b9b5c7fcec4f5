package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/copperkettle/storefront/pkg/approval"
	"github.com/copperkettle/storefront/pkg/audit"
	"github.com/copperkettle/storefront/pkg/httputil"
	"github.com/copperkettle/storefront/pkg/identity"
	"github.com/copperkettle/storefront/pkg/middleware"
	"github.com/copperkettle/storefront/pkg/observability"
	"github.com/copperkettle/storefront/pkg/storefront"
)

// AuditSink receives audit events. *audit.DBLogger satisfies it.
type AuditSink interface {
	Log(ctx context.Context, event *audit.Event) error
}

// ServerConfig holds the pieces the server composes
type ServerConfig struct {
	Store       identity.Store
	Profiles    ProfileDirectory
	Gate        *middleware.Gate
	Shop        *storefront.Handlers
	Approval    *approval.Handler
	Audit       AuditSink
	AuditSearch AuditSearcher
	Logger      *observability.Logger
	Metrics     *observability.Metrics

	// SessionTTL caps the session cookie lifetime
	SessionTTL time.Duration
	// SecureCookies marks the session cookie Secure; disable for local dev
	SecureCookies bool
}

// Server is the assembled HTTP API
type Server struct {
	router *mux.Router
	logger *observability.Logger
}

// NewServer builds the router with the full middleware chain and all routes
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		router: mux.NewRouter(),
		logger: cfg.Logger,
	}

	s.router.Use(middleware.RequestID(cfg.Logger))
	s.router.Use(httputil.RecoveryMiddleware)
	if cfg.Metrics != nil {
		s.router.Use(middleware.Observe(cfg.Metrics))
	}
	s.router.Use(cfg.Gate.Handler)

	authHandlers := NewAuthHandlers(cfg.Store, cfg.Audit, cfg.Logger, cfg.SessionTTL, cfg.SecureCookies)
	authHandlers.RegisterRoutes(s.router)

	adminHandlers := NewAdminHandlers(cfg.Profiles, cfg.Audit, cfg.AuditSearch, cfg.Logger)
	adminHandlers.RegisterRoutes(s.router)

	cfg.Shop.Register(s.router)

	s.router.HandleFunc("/pending-approval", cfg.Approval.Status).Methods(http.MethodGet)
	s.router.HandleFunc("/", s.home).Methods(http.MethodGet)

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// home handles GET /: the public storefront landing resource
func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"name": "storefront",
		"links": map[string]string{
			"menu":    "/menu",
			"sign_in": "/auth",
		},
	}
	if prof := middleware.ProfileFrom(r.Context()); prof != nil {
		resp["signed_in_as"] = prof.Email
		resp["role"] = prof.Role
	}
	httputil.WriteSuccess(w, resp)
}
