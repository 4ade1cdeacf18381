package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/al-bashkir/erp-portal/internal/authflow"
)

// handleLoginPage renders the step of the login flow the workspace is in.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspaceFor(w, r)
	if err != nil {
		s.workspaceError(w, err)
		return
	}

	v := ws.Auth.View()
	if v.State == authflow.Authenticated {
		redirect(w, r, "/")
		return
	}
	s.render(w, http.StatusOK, "login.html", s.newLoginPage(v))
}

// handleUsername records the username and requests the security
// challenge for it.
func (s *Server) handleUsername(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	ws, err := s.workspaceFor(w, r)
	if err != nil {
		s.workspaceError(w, err)
		return
	}

	ws.Auth.SetUsername(r.PostForm.Get("username"))
	ws.Auth.LoadSecurityData(r.Context())
	redirect(w, r, "/login")
}

func (s *Server) handleSelectImage(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	ws, err := s.workspaceFor(w, r)
	if err != nil {
		s.workspaceError(w, err)
		return
	}

	ws.Auth.SelectImage(r.Context(), r.PostForm.Get("image_id"))
	redirect(w, r, "/login")
}

func (s *Server) handleRetryChallenge(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspaceFor(w, r)
	if err != nil {
		s.workspaceError(w, err)
		return
	}

	ws.Auth.RetryChallenge(r.Context())
	redirect(w, r, "/login")
}

// handlePassword submits the password for the username in the form.
func (s *Server) handlePassword(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	ws, err := s.workspaceFor(w, r)
	if err != nil {
		s.workspaceError(w, err)
		return
	}

	if ws.Auth.Login(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("password")) {
		if err := s.rotateWorkspace(w, r, ws); err != nil {
			s.workspaceError(w, err)
			return
		}
		redirect(w, r, "/")
		return
	}
	redirect(w, r, "/login")
}

// handleRestart abandons the current attempt.
func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspaceFor(w, r)
	if err != nil {
		s.workspaceError(w, err)
		return
	}

	ws.Auth.SetUsername("")
	redirect(w, r, "/login")
}

func (s *Server) handleForgotPage(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspaceFor(w, r)
	if err != nil {
		s.workspaceError(w, err)
		return
	}

	v := ws.Auth.View()
	s.render(w, http.StatusOK, "reset.html", resetPage{
		Username: v.Username,
		Error:    v.Error,
		Notice:   v.Notice,
	})
}

func (s *Server) handleForgotSubmit(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	ws, err := s.workspaceFor(w, r)
	if err != nil {
		s.workspaceError(w, err)
		return
	}

	ws.Auth.ResetPassword(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("email"))
	redirect(w, r, "/forgot-password")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspaceFor(w, r)
	if err != nil {
		s.workspaceError(w, err)
		return
	}

	ws.Teardown(r.Context())
	redirect(w, r, "/login")
}

func (s *Server) workspaceError(w http.ResponseWriter, err error) {
	slog.Error("failed to resolve workspace", "error", err)
	s.renderError(w, http.StatusInternalServerError, "Something went wrong. Please reload the page.")
}
