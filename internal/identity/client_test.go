package identity_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/al-bashkir/erp-portal/internal/identity"
	"github.com/al-bashkir/erp-portal/internal/identity/identitytest"
)

func newClient(t *testing.T) (*identitytest.Server, *identity.Client) {
	t.Helper()
	srv := identitytest.NewServer()
	t.Cleanup(srv.Close)
	return srv, identity.NewClient(srv.URL+"/", 5*time.Second)
}

func TestLogin(t *testing.T) {
	_, c := newClient(t)
	ctx := context.Background()

	res, err := c.Login(ctx, "alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if res.Token != "token-u-1" {
		t.Errorf("Token = %s, want token-u-1", res.Token)
	}
	if res.User.DisplayName != "Alice Example" || res.User.Role != "manager" {
		t.Errorf("unexpected user: %+v", res.User)
	}

	_, err = c.Login(ctx, "alice@example.com", "wrong")
	if !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestChallengeLogin(t *testing.T) {
	_, c := newClient(t)
	ctx := context.Background()

	res, err := c.ChallengeLogin(ctx, "alice", "s3cret", "img-2")
	if err != nil {
		t.Fatalf("ChallengeLogin failed: %v", err)
	}
	if res.Token != "cas-token-u-1" {
		t.Errorf("Token = %s, want cas-token-u-1", res.Token)
	}

	_, err = c.ChallengeLogin(ctx, "alice", "s3cret", "img-1")
	if !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for wrong image, got %v", err)
	}
}

func TestLoginNetworkFailure(t *testing.T) {
	srv, c := newClient(t)
	srv.Close()

	_, err := c.Login(context.Background(), "alice@example.com", "s3cret")
	if !errors.Is(err, identity.ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}
}

func TestFetchChallenge(t *testing.T) {
	srv, c := newClient(t)
	ctx := context.Background()

	ch, err := c.FetchChallenge(ctx, "alice")
	if err != nil {
		t.Fatalf("FetchChallenge failed: %v", err)
	}
	if ch.Phrase == "" {
		t.Error("expected a phrase")
	}
	if len(ch.Images) != 3 || ch.Images[0].ID != "img-1" {
		t.Errorf("unexpected images: %+v", ch.Images)
	}
	if !ch.HasImage("img-3") || ch.HasImage("img-9") {
		t.Error("HasImage mismatch")
	}

	t.Run("unknown user", func(t *testing.T) {
		_, err := c.FetchChallenge(ctx, "mallory")
		if !errors.Is(err, identity.ErrChallengeUnavailable) {
			t.Errorf("expected ErrChallengeUnavailable, got %v", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		srv.Fail("/api/auth/cas/prelogin", http.StatusServiceUnavailable)
		defer srv.Fail("/api/auth/cas/prelogin", 0)

		_, err := c.FetchChallenge(ctx, "alice")
		if !errors.Is(err, identity.ErrChallengeUnavailable) {
			t.Errorf("expected ErrChallengeUnavailable, got %v", err)
		}
	})

	t.Run("network error", func(t *testing.T) {
		dead := identity.NewClient("http://127.0.0.1:1", time.Second)
		_, err := dead.FetchChallenge(ctx, "alice")
		if !errors.Is(err, identity.ErrChallengeUnavailable) {
			t.Errorf("expected ErrChallengeUnavailable, got %v", err)
		}
	})
}

func TestVerifyImage(t *testing.T) {
	srv, c := newClient(t)
	ctx := context.Background()

	if !c.VerifyImage(ctx, "alice", "img-2") {
		t.Error("expected registered image to verify")
	}
	if c.VerifyImage(ctx, "alice", "img-1") {
		t.Error("expected wrong image to be rejected")
	}

	srv.Fail("/api/auth/cas/verify-image", http.StatusInternalServerError)
	if c.VerifyImage(ctx, "alice", "img-2") {
		t.Error("expected non-2xx to yield false")
	}

	dead := identity.NewClient("http://127.0.0.1:1", time.Second)
	if dead.VerifyImage(ctx, "alice", "img-2") {
		t.Error("expected network failure to yield false")
	}
}

func TestResetPassword(t *testing.T) {
	srv, c := newClient(t)
	ctx := context.Background()

	if !c.ResetPassword(ctx, "alice", "alice@example.com") {
		t.Error("expected reset to succeed")
	}
	if c.ResetPassword(ctx, "alice", "other@example.com") {
		t.Error("expected reset with wrong email to fail")
	}
	if got := srv.Calls("/api/auth/cas/reset-password"); got != 2 {
		t.Errorf("reset calls = %d, want 2 (no retries)", got)
	}
}

func TestSettingsWithToken(t *testing.T) {
	srv, c := newClient(t)
	ctx := context.Background()

	authed := c.WithToken(ctx, "opaque-123")

	settings, err := authed.FetchSettings(ctx)
	if err != nil {
		t.Fatalf("FetchSettings failed: %v", err)
	}
	if settings["inventory_enabled"] != "true" {
		t.Errorf("inventory_enabled = %q, want \"true\"", settings["inventory_enabled"])
	}
	if srv.LastBearer() != "opaque-123" {
		t.Errorf("bearer = %q, want opaque-123", srv.LastBearer())
	}

	if err := authed.UpdateSetting(ctx, "sales_enabled", "true"); err != nil {
		t.Fatalf("UpdateSetting failed: %v", err)
	}
	if srv.Setting("sales_enabled") != "true" {
		t.Error("expected setting to be updated remotely")
	}

	valid, err := authed.ValidateSettings(ctx)
	if err != nil || !valid {
		t.Errorf("ValidateSettings = (%v, %v), want (true, nil)", valid, err)
	}

	if c.WithToken(ctx, "") != c {
		t.Error("WithToken with empty token should return the same client")
	}
}

func TestWithTokenKeepsTimeout(t *testing.T) {
	srv := identitytest.NewServer()
	t.Cleanup(srv.Close)
	t.Cleanup(srv.HoldConfig())

	c := identity.NewClient(srv.URL, 100*time.Millisecond).WithToken(context.Background(), "opaque-123")

	start := time.Now()
	_, err := c.FetchSettings(context.Background())
	if !errors.Is(err, identity.ErrNetwork) {
		t.Fatalf("expected ErrNetwork from a hung service, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("request took %v, timeout not applied", elapsed)
	}
}
