package api

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/cfi/selfservice/internal/api/handler"
	mw "github.com/cfi/selfservice/internal/api/middleware"
	"github.com/cfi/selfservice/internal/api/response"
	"github.com/cfi/selfservice/internal/api/web"
	"github.com/cfi/selfservice/internal/config"
	"github.com/cfi/selfservice/internal/core"
	"github.com/cfi/selfservice/internal/session"
)

type Server struct {
	router    chi.Router
	logger    zerolog.Logger
	services  *core.Services
	sessions  *session.Manager
	catalogue *config.Catalogue
	views     *response.Views
	cfg       *config.Config
}

func NewServer(logger zerolog.Logger, services *core.Services, sessions *session.Manager, catalogue *config.Catalogue, cfg *config.Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger,
		services:  services,
		sessions:  sessions,
		catalogue: catalogue,
		views:     response.NewViews(),
		cfg:       cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))

	pages := handler.NewPages(s.views, s.sessions)
	withSession := mw.Session(s.sessions, s.views)

	s.router.Group(func(r chi.Router) {
		r.Use(withSession)

		// Login, password and MFA flows
		auth := handler.NewAuth(s.services.Auth, s.sessions, pages)
		r.Get("/", auth.LoginPage)
		r.Post("/", auth.Login)
		r.Get("/login/password/reset/force/", auth.ForcePasswordPage)
		r.Post("/login/password/reset/force/", auth.ForcePassword)
		r.Get("/login/password/reset-request/", auth.ResetRequestPage)
		r.Post("/login/password/reset-request/", auth.ResetRequest)
		r.Get("/login/password/reset/", auth.ResetPage)
		r.Post("/login/password/reset/", auth.Reset)
		r.Get("/login/mfa/setup/", auth.MfaSetupPage)
		r.Post("/login/mfa/setup/", auth.MfaSetup)
		r.Get("/login/mfa/request/", auth.MfaVerifyPage)
		r.Post("/login/mfa/request/", auth.MfaVerify)
		r.Get("/logout/", auth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth(s.services.Auth, s.sessions, s.views))
			r.Use(mw.Notifications(s.services.AccessRequest))

			home := handler.NewHome(pages)
			r.Get("/home/", home.Show)

			// Access requests
			accessRequest := handler.NewAccessRequest(s.services.AccessRequest, s.catalogue, pages)
			r.Get("/access-requests/", accessRequest.Dashboard)
			r.Get("/access-requests/new/", accessRequest.NewPage)
			r.Post("/access-requests/new/", accessRequest.Create)
			r.Get("/access-requests/{id}", accessRequest.View)

			// Environment URLs and VPN profiles
			environment := handler.NewEnvironment(s.services.Environment, pages, s.cfg.VPNProfileBucket != "")
			r.Get("/environment-urls-vpn/", environment.List)

			// Admin only
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireAdmin(s.views))

				r.Post("/access-requests/{id}", accessRequest.Decide)
				r.Get("/access-requests/admin/{id}", accessRequest.AdminPage)
				r.Post("/access-requests/admin/{id}", accessRequest.Admin)
				r.Post("/access-requests/export/", accessRequest.Export)

				r.Get("/environment-urls-vpn/update/", environment.UpdatePage)
				r.Post("/environment-urls-vpn/update/", environment.Update)
			})
		})
	})

	s.router.NotFound(withSession(http.HandlerFunc(pages.NotFound)).ServeHTTP)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.services.AccessRequest.Ping(ctx); err != nil {
		checks["dynamodb"] = err.Error()
		healthy = false
	} else {
		checks["dynamodb"] = "ok"
	}

	if err := s.sessions.Ping(ctx); err != nil {
		checks["sessions"] = err.Error()
		healthy = false
	} else {
		checks["sessions"] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	response.WriteJSON(w, status, checks)
}

// Ready reports whether the portal's backing services respond, for the
// separate metrics listener.
func (s *Server) Ready(ctx context.Context) error {
	if err := s.services.AccessRequest.Ping(ctx); err != nil {
		return fmt.Errorf("dynamodb: %w", err)
	}
	if err := s.sessions.Ping(ctx); err != nil {
		return fmt.Errorf("sessions: %w", err)
	}
	return nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
