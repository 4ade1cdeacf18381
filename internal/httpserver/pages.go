package httpserver

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/al-bashkir/erp-portal/internal/authflow"
	"github.com/al-bashkir/erp-portal/internal/identity"
	"github.com/al-bashkir/erp-portal/internal/navigation"
	"github.com/al-bashkir/erp-portal/internal/session"
)

type imageView struct {
	ID       string
	URL      string
	Label    string
	Selected bool
}

type loginPage struct {
	Step     string // username, challenge, password
	View     authflow.View
	Images   []imageView
	Verified bool
	Skipped  bool
}

type navLink struct {
	Label  string
	Path   string
	Active bool
}

type dashboardPage struct {
	Principal      session.Principal
	Nav            []navLink
	Title          string
	SettingsLoaded bool
}

type resetPage struct {
	Username string
	Error    string
	Notice   string
}

// render executes the named template into a buffer first so a template
// failure never leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders the error page
func (s *Server) renderError(w http.ResponseWriter, status int, errMsg string) {
	s.render(w, status, "error.html", map[string]string{
		"Error": errMsg,
	})
}

func (s *Server) newLoginPage(v authflow.View) loginPage {
	p := loginPage{
		View:     v,
		Verified: v.ImageVerified,
		Skipped:  v.State == authflow.ChallengeSkipped,
	}
	switch {
	case v.PasswordVisible:
		p.Step = "password"
	case v.ChallengeShown:
		p.Step = "challenge"
	default:
		p.Step = "username"
	}
	for _, img := range v.Images {
		p.Images = append(p.Images, imageView{
			ID:       img.ID,
			URL:      s.imageURL(img),
			Label:    img.Label,
			Selected: img.ID == v.SelectedImageID,
		})
	}
	return p
}

// imageURL resolves relative image paths against the identity service.
func (s *Server) imageURL(img identity.Image) string {
	if s.imageBase == nil {
		return img.URL
	}
	ref, err := url.Parse(img.URL)
	if err != nil {
		return ""
	}
	return s.imageBase.ResolveReference(ref).String()
}

func newNav(items []navigation.Item, active string) []navLink {
	out := make([]navLink, 0, len(items))
	for _, it := range items {
		out = append(out, navLink{Label: it.Label, Path: it.Path, Active: it.Key == active})
	}
	return out
}
