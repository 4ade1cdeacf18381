package identity

import "errors"

// Remote call failures. The auth flow controller turns these into
// user-readable messages; they never reach the presentation layer.
var (
	ErrNetwork              = errors.New("identity service unreachable")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrChallengeUnavailable = errors.New("security challenge unavailable")
	ErrImageNotVerified     = errors.New("security image not verified")
	ErrUnexpectedStatus     = errors.New("unexpected response status")
)
