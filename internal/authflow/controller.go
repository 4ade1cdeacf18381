// Package authflow drives the login state machine: username entry, the
// optional security phrase and image challenge, password entry and
// session establishment, plus logout and password reset.
package authflow

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/al-bashkir/erp-portal/internal/identity"
	"github.com/al-bashkir/erp-portal/internal/logsanitize"
	"github.com/al-bashkir/erp-portal/internal/session"
)

// Identity is the subset of the identity service the flow calls.
type Identity interface {
	Login(ctx context.Context, email, password string) (*identity.AuthResult, error)
	ChallengeLogin(ctx context.Context, username, password, imageID string) (*identity.AuthResult, error)
	FetchChallenge(ctx context.Context, username string) (*identity.Challenge, error)
	VerifyImage(ctx context.Context, username, imageID string) bool
	ResetPassword(ctx context.Context, username, email string) bool
}

// SettingsCache is cleared on logout.
type SettingsCache interface {
	Clear(ctx context.Context) error
}

// Options tune the controller.
type Options struct {
	DemoEnabled bool
}

// Controller owns the login flow for one workspace. All methods are safe
// for concurrent use; identity calls run without the lock held and their
// results are dropped if the attempt was superseded in the meantime.
type Controller struct {
	identity Identity
	session  *session.Store
	settings SettingsCache
	opts     Options

	mu        sync.Mutex
	state     State
	username  string
	challenge *identity.Challenge
	selected  string
	verifying bool
	errMsg    string
	notice    string

	// generation increases whenever the current attempt is abandoned.
	generation uint64
	attemptID  string
}

// New creates a controller in the Anonymous state. Call Init to pick up a
// persisted session.
func New(id Identity, sess *session.Store, cache SettingsCache, opts Options) *Controller {
	return &Controller{
		identity: id,
		session:  sess,
		settings: cache,
		opts:     opts,
	}
}

// Init restores a persisted session and reports whether the user is
// signed in.
func (c *Controller) Init(ctx context.Context) bool {
	restored := c.session.Restore(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked("")
	if restored {
		c.state = Authenticated
	}
	return restored
}

// View returns a snapshot for rendering.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		State:           c.state,
		Username:        c.username,
		SelectedImageID: c.selected,
		ImageVerified:   c.state == ImageVerified,
		ChallengeShown:  c.state == ChallengeShown,
		Verifying:       c.verifying,
		DemoMode:        c.demoUsernameLocked(),
		Error:           c.errMsg,
		Notice:          c.notice,
	}
	v.PasswordVisible = c.state.acceptsPassword() || (v.DemoMode && c.state != Authenticated)

	if c.challenge != nil && c.state != Authenticated {
		v.Phrase = c.challenge.Phrase
		v.Images = append([]identity.Image(nil), c.challenge.Images...)
	}
	if c.state == Authenticated {
		if p, ok := c.session.Principal(); ok {
			v.Principal = &p
		}
	}
	return v
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetUsername records the username being typed. Any edit abandons the
// current challenge: the selection, the verification and the displayed
// challenge are cleared and in-flight responses are discarded. Ignored
// while signed in.
func (c *Controller) SetUsername(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setUsernameLocked(strings.TrimSpace(username))
}

func (c *Controller) setUsernameLocked(username string) {
	if c.state == Authenticated {
		return
	}
	if username != c.username {
		slog.Debug("username changed, challenge discarded",
			"state", c.state.String(),
			"attempt_id", c.attemptID,
		)
	}
	c.resetLocked(username)
}

// LoadSecurityData fetches the security challenge for the current
// username. It reports whether the challenge is now displayed; when it
// cannot be fetched the flow falls back to password-only login. Also
// used to retry from ChallengeSkipped or ChallengeShown.
func (c *Controller) LoadSecurityData(ctx context.Context) bool {
	c.mu.Lock()
	switch c.state {
	case Anonymous, ChallengeShown, ChallengeSkipped:
	default:
		c.mu.Unlock()
		return false
	}
	if c.username == "" {
		c.errMsg = msgUsernameRequired
		c.mu.Unlock()
		return false
	}
	if c.demoUsernameLocked() {
		c.mu.Unlock()
		return false
	}

	c.generation++
	c.attemptID = uuid.NewString()
	gen, username, attemptID := c.generation, c.username, c.attemptID
	c.state = ChallengePending
	c.challenge = nil
	c.selected = ""
	c.verifying = false
	c.errMsg = ""
	c.notice = ""
	c.mu.Unlock()

	ch, err := c.identity.FetchChallenge(ctx, username)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen || c.username != username {
		slog.Debug("discarding stale challenge response", "attempt_id", attemptID)
		return false
	}

	if err != nil {
		slog.Info("security challenge unavailable, continuing without it",
			"username", logsanitize.Sanitize(username),
			"attempt_id", attemptID,
			"error", err,
		)
		c.state = ChallengeSkipped
		c.notice = messageFor(identity.ErrChallengeUnavailable)
		return false
	}

	c.state = ChallengeShown
	c.challenge = ch
	slog.Debug("security challenge shown",
		"username", logsanitize.Sanitize(username),
		"attempt_id", attemptID,
		"images", len(ch.Images),
	)
	return true
}

// RetryChallenge is the explicit user retry after the challenge was
// skipped.
func (c *Controller) RetryChallenge(ctx context.Context) bool {
	return c.LoadSecurityData(ctx)
}

// SelectImage submits imageID for verification and reports whether it is
// the user's image. A rejection clears the selection and the user may
// try again; there is no attempt limit.
func (c *Controller) SelectImage(ctx context.Context, imageID string) bool {
	c.mu.Lock()
	if c.state != ChallengeShown || c.verifying {
		c.mu.Unlock()
		return false
	}
	if !c.challenge.HasImage(imageID) {
		c.errMsg = msgSelectListedImage
		c.mu.Unlock()
		return false
	}

	c.selected = imageID
	c.verifying = true
	c.errMsg = ""
	gen, username, attemptID := c.generation, c.username, c.attemptID
	c.mu.Unlock()

	ok := c.identity.VerifyImage(ctx, username, imageID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen || c.state != ChallengeShown {
		slog.Debug("discarding stale image verification", "attempt_id", attemptID)
		return false
	}
	c.verifying = false

	if !ok {
		slog.Info("security image not verified",
			"username", logsanitize.Sanitize(username),
			"attempt_id", attemptID,
		)
		c.selected = ""
		c.errMsg = messageFor(identity.ErrImageNotVerified)
		return false
	}

	c.state = ImageVerified
	return true
}

// Login submits the password. Demo credentials sign in locally; any
// other credentials require a verified image or a skipped challenge
// first. Failures leave the flow in password entry with a generic
// message.
func (c *Controller) Login(ctx context.Context, username, password string) bool {
	username = strings.TrimSpace(username)

	c.mu.Lock()
	if c.state == Authenticated {
		c.errMsg = msgAlreadySignedIn
		c.mu.Unlock()
		return false
	}
	if username != c.username {
		c.setUsernameLocked(username)
	}

	creds := ClassifyCredentials(username, password, c.opts.DemoEnabled)
	if _, ok := creds.(DemoCredentials); ok {
		c.mu.Unlock()
		return c.loginDemo(ctx)
	}
	if c.demoUsernameLocked() {
		c.errMsg = msgInvalidCredentials
		c.mu.Unlock()
		return false
	}

	if !c.state.acceptsPassword() {
		c.errMsg = msgCompleteChallenge
		c.mu.Unlock()
		return false
	}

	c.errMsg = ""
	state, imageID, gen, attemptID := c.state, c.selected, c.generation, c.attemptID
	c.mu.Unlock()

	var (
		res *identity.AuthResult
		err error
	)
	if state == ImageVerified {
		res, err = c.identity.ChallengeLogin(ctx, username, password, imageID)
	} else {
		res, err = c.identity.Login(ctx, username, password)
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		slog.Debug("discarding stale login response", "attempt_id", attemptID)
		return false
	}
	if err != nil {
		slog.Info("login failed",
			"username", logsanitize.Sanitize(username),
			"attempt_id", attemptID,
			"error", err,
		)
		c.errMsg = msgInvalidCredentials
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()

	return c.establish(ctx, principalFromUser(res.User), res.Token, attemptID)
}

func (c *Controller) loginDemo(ctx context.Context) bool {
	slog.Info("demo login")
	return c.establish(ctx, DemoPrincipal(), demoToken, "")
}

func (c *Controller) establish(ctx context.Context, p session.Principal, token, attemptID string) bool {
	if err := c.session.Establish(ctx, p, token); err != nil {
		slog.Warn("session established but not persisted", "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked(c.username)
	c.state = Authenticated

	slog.Info("login succeeded",
		"user_id", logsanitize.Sanitize(p.ID),
		"role", logsanitize.Sanitize(p.Role),
		"attempt_id", attemptID,
	)
	return true
}

// Logout ends the session and drops the cached settings. It only acts
// when signed in.
func (c *Controller) Logout(ctx context.Context) bool {
	c.mu.Lock()
	if c.state != Authenticated {
		c.mu.Unlock()
		return false
	}
	c.resetLocked("")
	c.mu.Unlock()

	if err := c.session.Clear(ctx); err != nil {
		slog.Warn("failed to clear session storage", "error", err)
	}
	if c.settings != nil {
		if err := c.settings.Clear(ctx); err != nil {
			slog.Warn("failed to clear settings cache", "error", err)
		}
	}
	slog.Info("logged out")
	return true
}

// ResetPassword asks the identity service to start a password reset. The
// outcome is reported once; nothing is retried.
func (c *Controller) ResetPassword(ctx context.Context, username, email string) bool {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		c.setMessages(msgResetIncomplete, "")
		return false
	}

	ok := c.identity.ResetPassword(ctx, username, email)
	slog.Info("password reset requested",
		"username", logsanitize.Sanitize(username),
		"email", logsanitize.Mask(email),
		"accepted", ok,
	)
	if ok {
		c.setMessages("", msgResetSent)
	} else {
		c.setMessages(msgResetFailed, "")
	}
	return ok
}

func (c *Controller) setMessages(errMsg, notice string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errMsg = errMsg
	c.notice = notice
}

// resetLocked returns to Anonymous for username and abandons the attempt.
func (c *Controller) resetLocked(username string) {
	c.generation++
	c.state = Anonymous
	c.username = username
	c.challenge = nil
	c.selected = ""
	c.verifying = false
	c.errMsg = ""
	c.notice = ""
	c.attemptID = ""
}

func (c *Controller) demoUsernameLocked() bool {
	return c.opts.DemoEnabled && c.username == DemoEmail
}

func principalFromUser(u identity.User) session.Principal {
	return session.Principal{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
	}
}
