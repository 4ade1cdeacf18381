// Package workspace is the explicit context object that owns one user's
// session store, configuration cache and auth flow controller.
package workspace

import (
	"context"
	"errors"
	"log/slog"

	"github.com/al-bashkir/erp-portal/internal/authflow"
	"github.com/al-bashkir/erp-portal/internal/identity"
	"github.com/al-bashkir/erp-portal/internal/navigation"
	"github.com/al-bashkir/erp-portal/internal/session"
	"github.com/al-bashkir/erp-portal/internal/settings"
	"github.com/al-bashkir/erp-portal/internal/storage"
)

// Options configure a workspace.
type Options struct {
	DemoEnabled bool
}

// Workspace ties the session, the settings cache and the login flow to
// one durable store. Use Init after construction and Teardown to sign
// out.
type Workspace struct {
	ID       string
	Session  *session.Store
	Settings *settings.Cache
	Auth     *authflow.Controller
}

// New builds a workspace over st. The settings calls carry the session's
// token as a bearer credential.
func New(id string, client *identity.Client, st storage.Store, opts Options) *Workspace {
	sess := session.NewStore(st)
	cache := settings.NewCache(&tokenRemote{client: client, session: sess}, st)
	return &Workspace{
		ID:       id,
		Session:  sess,
		Settings: cache,
		Auth:     authflow.New(client, sess, cache, authflow.Options{DemoEnabled: opts.DemoEnabled}),
	}
}

// Init restores a persisted session and reports whether it is signed in.
func (w *Workspace) Init(ctx context.Context) bool {
	return w.Auth.Init(ctx)
}

// Teardown signs out, clearing the session and the settings cache.
func (w *Workspace) Teardown(ctx context.Context) bool {
	return w.Auth.Logout(ctx)
}

// Navigation returns the sidebar for the signed-in user. When settings
// cannot be loaded every item is shown.
func (w *Workspace) Navigation(ctx context.Context) []navigation.Item {
	s, err := w.Settings.GetAll(ctx)
	if err != nil {
		if errors.Is(err, settings.ErrConfigFetch) {
			slog.Debug("settings unavailable, showing full navigation", "workspace", shortID(w.ID))
		}
		s = nil
	}
	return navigation.Visible(navigation.DefaultItems(), s)
}

// tokenRemote authenticates settings calls with the current token.
type tokenRemote struct {
	client  *identity.Client
	session *session.Store
}

func (r *tokenRemote) FetchSettings(ctx context.Context) (map[string]string, error) {
	return r.client.WithToken(ctx, r.session.Token()).FetchSettings(ctx)
}

func (r *tokenRemote) UpdateSetting(ctx context.Context, key, value string) error {
	return r.client.WithToken(ctx, r.session.Token()).UpdateSetting(ctx, key, value)
}

func (r *tokenRemote) ValidateSettings(ctx context.Context) (bool, error) {
	return r.client.WithToken(ctx, r.session.Token()).ValidateSettings(ctx)
}

// shortID keeps workspace ids out of logs in full.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
