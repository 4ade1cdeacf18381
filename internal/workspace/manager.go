package workspace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrInvalidID is returned for ids that could not have been issued by
// the manager.
var ErrInvalidID = errors.New("invalid workspace id")

// Factory builds the workspace for id. The returned workspace has not
// been initialised yet.
type Factory func(id string) *Workspace

type entry struct {
	ws       *Workspace
	lastUsed time.Time
}

// Manager keeps the live workspaces of the web shell, keyed by the
// browser cookie id, and drops idle ones from memory. Durable state stays
// in storage, so an evicted workspace is rebuilt on its next request.
type Manager struct {
	mu            sync.RWMutex
	workspaces    map[string]*entry
	factory       Factory
	idleTimeout   time.Duration
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	stopOnce      sync.Once
}

// NewManager creates a manager and starts its cleanup goroutine, which
// runs every minute.
func NewManager(idleTimeout time.Duration, factory Factory) *Manager {
	m := &Manager{
		workspaces:    make(map[string]*entry),
		factory:       factory,
		idleTimeout:   idleTimeout,
		cleanupTicker: time.NewTicker(1 * time.Minute),
		stopCleanup:   make(chan struct{}),
	}

	go m.cleanupLoop()

	return m
}

// Stop stops the cleanup goroutine.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.cleanupTicker.Stop()
		close(m.stopCleanup)
	})
}

// Create issues a fresh id (64 hex characters from crypto/rand) and
// returns its initialised workspace.
func (m *Manager) Create(ctx context.Context) (*Workspace, error) {
	id, err := generateID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate workspace ID: %w", err)
	}
	return m.load(ctx, id), nil
}

// Get returns the workspace for id, rebuilding it from durable storage
// when it is not in memory.
func (m *Manager) Get(ctx context.Context, id string) (*Workspace, error) {
	if !ValidID(id) {
		return nil, ErrInvalidID
	}

	m.mu.Lock()
	e, ok := m.workspaces[id]
	if ok && time.Since(e.lastUsed) <= m.idleTimeout {
		e.lastUsed = time.Now()
		m.mu.Unlock()
		return e.ws, nil
	}
	if ok {
		delete(m.workspaces, id)
	}
	m.mu.Unlock()

	return m.load(ctx, id), nil
}

// load builds and initialises the workspace for id outside the lock; if
// another request won the race its workspace is kept.
func (m *Manager) load(ctx context.Context, id string) *Workspace {
	ws := m.factory(id)
	ws.Init(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.workspaces[id]; ok {
		e.lastUsed = time.Now()
		return e.ws
	}
	m.workspaces[id] = &entry{ws: ws, lastUsed: time.Now()}
	return ws
}

// Rotate moves a signed-in workspace to a freshly issued id and wipes the
// session and cached settings stored under the old one, so an id known
// before sign-in never carries the session. A workspace without a
// session is returned unchanged.
func (m *Manager) Rotate(ctx context.Context, ws *Workspace) (*Workspace, error) {
	p, ok := ws.Session.Principal()
	if !ok {
		return ws, nil
	}

	id, err := generateID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate workspace ID: %w", err)
	}
	next := m.factory(id)
	if err := next.Session.Establish(ctx, p, ws.Session.Token()); err != nil {
		return nil, fmt.Errorf("failed to move session: %w", err)
	}
	next.Init(ctx)

	ws.Teardown(ctx)

	m.mu.Lock()
	delete(m.workspaces, ws.ID)
	m.workspaces[id] = &entry{ws: next, lastUsed: time.Now()}
	m.mu.Unlock()

	slog.Debug("workspace id rotated", "from", shortID(ws.ID), "to", shortID(id))
	return next, nil
}

// Delete forgets the in-memory workspace. Durable state is untouched.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.workspaces, id)
}

// Count returns the number of workspaces held in memory.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workspaces)
}

// ValidID reports whether id has the shape of an issued workspace id.
func ValidID(id string) bool {
	if len(id) != 64 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}

// generateID generates a cryptographically secure random workspace ID.
// The ID is 64 hex characters (32 random bytes).
func generateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
