package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Login performs the standard email/password login.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var res AuthResult
	_, err := c.do(ctx, http.MethodPost, "/api/auth/login", loginRequest{Email: email, Password: password}, &res)
	if err != nil {
		return nil, loginError(err)
	}
	if res.Token == "" {
		return nil, fmt.Errorf("%w: empty token in login response", ErrInvalidCredentials)
	}
	return &res, nil
}

// ChallengeLogin completes a login that passed the security image
// challenge; imageID is the verified image.
func (c *Client) ChallengeLogin(ctx context.Context, username, password, imageID string) (*AuthResult, error) {
	var res AuthResult
	req := challengeLoginRequest{Username: username, Password: password, ImageID: imageID}
	_, err := c.do(ctx, http.MethodPost, "/api/auth/cas/login", req, &res)
	if err != nil {
		return nil, loginError(err)
	}
	if res.Token == "" {
		return nil, fmt.Errorf("%w: empty token in login response", ErrInvalidCredentials)
	}
	return &res, nil
}

// loginError keeps network failures distinguishable for logging while
// everything else becomes ErrInvalidCredentials.
func loginError(err error) error {
	if errors.Is(err, ErrNetwork) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
}
