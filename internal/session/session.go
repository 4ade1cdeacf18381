// Package session persists the authenticated principal and its opaque
// token in durable storage so that a login survives restarts.
package session

import (
	"encoding/json"
	"fmt"
)

// Durable storage keys.
const (
	KeyUser  = "erp-user"
	KeyToken = "erp-token"

	// ConfigKeyPrefix marks configuration cache entries. Clearing a
	// session sweeps them so feature flags never leak across users.
	ConfigKeyPrefix = "config-"
)

// Principal is the authenticated user.
type Principal struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// Name returns the best human-readable name for the principal.
func (p Principal) Name() string {
	switch {
	case p.DisplayName != "":
		return p.DisplayName
	case p.Username != "":
		return p.Username
	default:
		return p.Email
	}
}

func encodePrincipal(p Principal) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode principal: %w", err)
	}
	return string(data), nil
}

// decodePrincipal rejects anything that does not identify a user.
func decodePrincipal(s string) (Principal, error) {
	var p Principal
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return Principal{}, fmt.Errorf("failed to decode principal: %w", err)
	}
	if p.ID == "" && p.Username == "" && p.Email == "" {
		return Principal{}, fmt.Errorf("stored principal has no identity")
	}
	return p, nil
}
