package identity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
)

// FetchChallenge asks for the security phrase and candidate images for
// username. Any failure, including a malformed body, is reported as
// ErrChallengeUnavailable; callers fall back to password-only login.
func (c *Client) FetchChallenge(ctx context.Context, username string) (*Challenge, error) {
	var ch Challenge
	if _, err := c.do(ctx, http.MethodPost, "/api/auth/cas/prelogin", preloginRequest{Username: username}, &ch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}
	if ch.Phrase == "" && len(ch.Images) == 0 {
		return nil, fmt.Errorf("%w: empty challenge", ErrChallengeUnavailable)
	}
	return &ch, nil
}

// VerifyImage reports whether imageID is the user's registered security
// image. A rejection and an unreachable service both yield false.
func (c *Client) VerifyImage(ctx context.Context, username, imageID string) bool {
	var res verifyImageResponse
	if _, err := c.do(ctx, http.MethodPost, "/api/auth/cas/verify-image", verifyImageRequest{Username: username, ImageID: imageID}, &res); err != nil {
		slog.Debug("image verification failed", "error", err)
		return false
	}
	return res.Valid
}

// ResetPassword requests a password reset. Only the HTTP outcome is
// reported; there are no retries.
func (c *Client) ResetPassword(ctx context.Context, username, email string) bool {
	if _, err := c.do(ctx, http.MethodPost, "/api/auth/cas/reset-password", resetPasswordRequest{Username: username, Email: email}, nil); err != nil {
		slog.Debug("password reset request failed", "error", err)
		return false
	}
	return true
}
