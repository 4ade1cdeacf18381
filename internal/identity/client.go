// Package identity is the REST/JSON client for the remote identity and
// configuration service: standard and challenge login, the prelogin
// security challenge, password reset and the feature-flag settings.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// Client talks to the identity service. The zero value is not usable;
// construct with NewClient.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: timeout})
}

// NewClientWithHTTP creates a client that sends requests through hc.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
	}
}

// BaseURL returns the service root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// WithToken returns a client that authenticates every request with the
// session's opaque token as a bearer credential, keeping c's timeout. An
// empty token returns c unchanged.
func (c *Client) WithToken(ctx context.Context, token string) *Client {
	if token == "" {
		return c
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	hc := oauth2.NewClient(ctx, src)
	hc.Timeout = c.httpClient.Timeout
	return &Client{
		baseURL:    c.baseURL,
		httpClient: hc,
	}
}

// do sends in as JSON (when non-nil) and decodes a 2xx body into out
// (when non-nil). Transport failures are wrapped with ErrNetwork; the
// status code is returned for every response that arrived.
func (c *Client) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !isSuccess(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return resp.StatusCode, fmt.Errorf("%w: %s %s returned %d", ErrUnexpectedStatus, method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode %s response: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
