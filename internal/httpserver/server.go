package httpserver

import (
	"context"
	"crypto/tls"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/al-bashkir/erp-portal/internal/config"
	"github.com/al-bashkir/erp-portal/internal/workspace"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Server is the HTTP server for the dashboard shell and health checks
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	mux        *http.ServeMux
	templates  *template.Template
	workspaces *workspace.Manager
	limiter    *IPRateLimiter
	version    string
	imageBase  *url.URL
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, workspaces *workspace.Manager, version string) (*Server, error) {
	// Parse templates
	templates, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		mux:        http.NewServeMux(),
		templates:  templates,
		workspaces: workspaces,
		limiter:    newIPRateLimiter(10, 50),
		version:    version,
	}
	if u, err := url.Parse(cfg.Identity.BaseURL); err == nil && u.Host != "" {
		s.imageBase = u
	}

	// Register routes
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /login", s.handleLoginPage)
	s.mux.HandleFunc("POST /login/username", s.handleUsername)
	s.mux.HandleFunc("POST /login/image", s.handleSelectImage)
	s.mux.HandleFunc("POST /login/retry", s.handleRetryChallenge)
	s.mux.HandleFunc("POST /login/password", s.handlePassword)
	s.mux.HandleFunc("POST /login/restart", s.handleRestart)
	s.mux.HandleFunc("GET /forgot-password", s.handleForgotPage)
	s.mux.HandleFunc("POST /forgot-password", s.handleForgotSubmit)
	s.mux.HandleFunc("POST /logout", s.handleLogout)
	s.mux.HandleFunc("POST /settings/refresh", s.handleSettingsRefresh)
	s.mux.HandleFunc("GET /m/{module}", s.handleModule)
	s.mux.HandleFunc("GET /{$}", s.handleDashboard)

	// Wrap with middleware
	handler := loggingMiddleware(s.mux)
	handler = recoveryMiddleware(handler)
	handler = s.limiter.middleware(handler)
	handler = securityHeadersMiddleware(s.contentSecurityPolicy())(handler)

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         cfg.Listen.HTTP,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: time.Duration(cfg.Identity.TimeoutSeconds+10) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Configure TLS if enabled
	if cfg.TLS.Enabled {
		s.httpServer.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			CipherSuites: []uint16{
				tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			},
		}
	}

	return s, nil
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	slog.Info("starting HTTP server",
		"addr", s.cfg.Listen.HTTP,
		"tls", s.cfg.TLS.Enabled,
	)

	if s.cfg.TLS.Enabled {
		return s.httpServer.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
	}

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down HTTP server")
	s.limiter.Stop()
	return s.httpServer.Shutdown(ctx)
}

// contentSecurityPolicy allows security images served by the identity
// service.
func (s *Server) contentSecurityPolicy() string {
	img := "img-src 'self' data:"
	if s.imageBase != nil {
		img += " " + s.imageBase.Scheme + "://" + s.imageBase.Host
	}
	return "default-src 'self'; style-src 'self' 'unsafe-inline'; " + img
}
