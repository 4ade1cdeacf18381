// Package app orchestrates the portal's components: durable storage, the
// identity client, the workspace registry and the HTTP shell.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/al-bashkir/erp-portal/internal/config"
	"github.com/al-bashkir/erp-portal/internal/httpserver"
	"github.com/al-bashkir/erp-portal/internal/identity"
	"github.com/al-bashkir/erp-portal/internal/storage"
	"github.com/al-bashkir/erp-portal/internal/workspace"
)

// cliNamespace holds the terminal user's session in shared storage.
const cliNamespace = "cli"

// App represents the portal process that coordinates all components.
type App struct {
	cfg        *config.Config
	store      storage.Store
	closeStore func() error
	workspaces *workspace.Manager
	httpServer *httpserver.Server
}

// New creates the portal with all components initialized.
func New(cfg *config.Config, version string) (*App, error) {
	store, closeStore, err := OpenStorage(&cfg.Storage)
	if err != nil {
		return nil, err
	}

	client := NewIdentityClient(&cfg.Identity)
	slog.Info("identity client initialized", "base_url", client.BaseURL())

	idle := time.Duration(cfg.Workspace.IdleTimeout) * time.Second
	opts := workspace.Options{DemoEnabled: cfg.Auth.DemoEnabled}
	workspaces := workspace.NewManager(idle, func(id string) *workspace.Workspace {
		return workspace.New(id, client, storage.Namespace(store, "ws/"+id), opts)
	})

	slog.Info("workspace manager initialized",
		"idle_timeout", idle,
		"demo_enabled", cfg.Auth.DemoEnabled,
	)

	httpServer, err := httpserver.NewServer(cfg, workspaces, version)
	if err != nil {
		workspaces.Stop()
		_ = closeStore()
		return nil, fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	slog.Info("HTTP server initialized",
		"listen", cfg.Listen.HTTP,
		"tls", cfg.TLS.Enabled,
	)

	return &App{
		cfg:        cfg,
		store:      store,
		closeStore: closeStore,
		workspaces: workspaces,
		httpServer: httpServer,
	}, nil
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
func (a *App) Run(ctx context.Context) error {
	slog.Info("starting ERP portal")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server in a goroutine (it blocks on ListenAndServe)
	httpErrCh := make(chan error, 1)
	go func() {
		if err := a.httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErrCh <- err
		}
		close(httpErrCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-httpErrCh:
		if err != nil {
			slog.Error("HTTP server failed to start", "error", err)
			a.workspaces.Stop()
			_ = a.closeStore()
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}

	// Shutdown gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("error stopping HTTP server", "error", err)
	}

	a.workspaces.Stop()

	if err := a.closeStore(); err != nil {
		slog.Error("error closing storage", "error", err)
	}

	slog.Info("portal shutdown complete")
	return nil
}

// NewIdentityClient builds the identity service client from config.
func NewIdentityClient(cfg *config.IdentityConfig) *identity.Client {
	return identity.NewClient(cfg.BaseURL, time.Duration(cfg.TimeoutSeconds)*time.Second)
}

// OpenWorkspace opens the terminal user's workspace and restores its
// session. The returned function releases the storage.
func OpenWorkspace(ctx context.Context, cfg *config.Config) (*workspace.Workspace, func() error, error) {
	store, closeStore, err := OpenStorage(&cfg.Storage)
	if err != nil {
		return nil, nil, err
	}

	ws := workspace.New(cliNamespace, NewIdentityClient(&cfg.Identity),
		storage.Namespace(store, cliNamespace),
		workspace.Options{DemoEnabled: cfg.Auth.DemoEnabled})
	ws.Init(ctx)
	return ws, closeStore, nil
}
