package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/al-bashkir/erp-portal/internal/storage"
)

// Store owns the active session. A non-nil principal and an active
// session are the same thing: IsAuthenticated reports exactly whether a
// principal is held.
type Store struct {
	mu        sync.RWMutex
	storage   storage.Store
	principal *Principal
	token     string
}

// NewStore creates a session store over durable storage. Call Restore to
// pick up a previously persisted session.
func NewStore(st storage.Store) *Store {
	return &Store{storage: st}
}

// Restore loads a persisted session. Both keys must be present and the
// user must parse; anything else is treated as logged out and both keys
// are removed. Restore never fails, it reports whether a session is now
// active.
func (s *Store) Restore(ctx context.Context) bool {
	rawUser, userErr := s.storage.Get(ctx, KeyUser)
	token, tokenErr := s.storage.Get(ctx, KeyToken)

	if errors.Is(userErr, storage.ErrNotFound) && errors.Is(tokenErr, storage.ErrNotFound) {
		s.reset()
		return false
	}

	if userErr != nil || tokenErr != nil || token == "" {
		slog.Warn("incomplete persisted session, clearing",
			"user_error", userErr,
			"token_error", tokenErr,
		)
		s.discard(ctx)
		return false
	}

	p, err := decodePrincipal(rawUser)
	if err != nil {
		slog.Warn("malformed persisted session, clearing", "error", err)
		s.discard(ctx)
		return false
	}

	s.mu.Lock()
	s.principal = &p
	s.token = token
	s.mu.Unlock()

	slog.Debug("session restored", "user_id", p.ID, "role", p.Role)
	return true
}

// Establish marks p as the authenticated principal and persists it with
// its token. The in-memory session is active even when persisting
// fails; the error tells the caller the session will not survive a
// restart.
func (s *Store) Establish(ctx context.Context, p Principal, token string) error {
	s.mu.Lock()
	s.principal = &p
	s.token = token
	s.mu.Unlock()

	encoded, err := encodePrincipal(p)
	if err != nil {
		return err
	}
	if err := s.storage.Set(ctx, KeyUser, encoded); err != nil {
		return fmt.Errorf("failed to persist session user: %w", err)
	}
	if err := s.storage.Set(ctx, KeyToken, token); err != nil {
		return fmt.Errorf("failed to persist session token: %w", err)
	}
	return nil
}

// Clear ends the session: both session keys and every configuration
// cache entry are removed from durable storage.
func (s *Store) Clear(ctx context.Context) error {
	s.reset()

	var errs []error
	if err := s.storage.Delete(ctx, KeyUser, KeyToken); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete session keys: %w", err))
	}
	if n, err := storage.DeletePrefix(ctx, s.storage, ConfigKeyPrefix); err != nil {
		errs = append(errs, fmt.Errorf("failed to sweep config cache: %w", err))
	} else if n > 0 {
		slog.Debug("swept config cache entries", "count", n)
	}
	return errors.Join(errs...)
}

// Principal returns the authenticated principal.
func (s *Store) Principal() (Principal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.principal == nil {
		return Principal{}, false
	}
	return *s.principal, true
}

// Token returns the opaque session token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAuthenticated reports whether a principal is held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.principal != nil
}

func (s *Store) reset() {
	s.mu.Lock()
	s.principal = nil
	s.token = ""
	s.mu.Unlock()
}

func (s *Store) discard(ctx context.Context) {
	if err := s.Clear(ctx); err != nil {
		slog.Warn("failed to clear persisted session", "error", err)
	}
}
