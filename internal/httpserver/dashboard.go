package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/al-bashkir/erp-portal/internal/navigation"
	"github.com/al-bashkir/erp-portal/internal/workspace"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.serveShell(w, r, "dashboard")
}

// handleModule serves a module page; modules hidden by the settings are
// not found.
func (s *Server) handleModule(w http.ResponseWriter, r *http.Request) {
	s.serveShell(w, r, r.PathValue("module"))
}

func (s *Server) serveShell(w http.ResponseWriter, r *http.Request, module string) {
	ws, ok := s.signedIn(w, r)
	if !ok {
		return
	}

	items := ws.Navigation(r.Context())
	item, found := navigation.Lookup(items, module)
	if !found {
		s.renderError(w, http.StatusNotFound, "This module is not available.")
		return
	}

	p, _ := ws.Session.Principal()
	s.render(w, http.StatusOK, "dashboard.html", dashboardPage{
		Principal:      p,
		Nav:            newNav(items, item.Key),
		Title:          item.Label,
		SettingsLoaded: ws.Settings.Loaded(),
	})
}

// handleSettingsRefresh reloads the feature flags.
func (s *Server) handleSettingsRefresh(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.signedIn(w, r)
	if !ok {
		return
	}

	if _, err := ws.Settings.Refresh(r.Context()); err != nil {
		slog.Warn("settings refresh failed", "error", err)
	}
	redirect(w, r, "/")
}

// signedIn resolves the workspace and sends anonymous visitors to the
// login page.
func (s *Server) signedIn(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ws, err := s.workspaceFor(w, r)
	if err != nil {
		s.workspaceError(w, err)
		return nil, false
	}
	if !ws.Session.IsAuthenticated() {
		redirect(w, r, "/login")
		return nil, false
	}
	return ws, true
}
