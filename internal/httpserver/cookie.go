package httpserver

import (
	"net/http"

	"github.com/al-bashkir/erp-portal/internal/workspace"
)

// workspaceFor returns the browser's workspace, issuing a new cookie when
// the request carries none or an invalid one.
func (s *Server) workspaceFor(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, error) {
	if c, err := r.Cookie(s.cfg.Workspace.CookieName); err == nil && workspace.ValidID(c.Value) {
		return s.workspaces.Get(r.Context(), c.Value)
	}

	ws, err := s.workspaces.Create(r.Context())
	if err != nil {
		return nil, err
	}
	s.setWorkspaceCookie(w, ws.ID)
	return ws, nil
}

// rotateWorkspace re-issues the cookie after sign-in.
func (s *Server) rotateWorkspace(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) error {
	next, err := s.workspaces.Rotate(r.Context(), ws)
	if err != nil {
		return err
	}
	if next.ID != ws.ID {
		s.setWorkspaceCookie(w, next.ID)
	}
	return nil
}

func (s *Server) setWorkspaceCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Workspace.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.TLS.Enabled,
		SameSite: http.SameSiteLaxMode,
	})
}

// maxFormBytes bounds POSTed form bodies.
const maxFormBytes = 16 << 10

// parseForm limits and parses a POSTed form.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return false
	}
	return true
}

func redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}
