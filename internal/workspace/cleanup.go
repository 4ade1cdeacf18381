package workspace

import (
	"log/slog"
	"time"
)

// cleanupLoop periodically drops idle workspaces until Stop is called.
func (m *Manager) cleanupLoop() {
	for {
		select {
		case <-m.cleanupTicker.C:
			m.cleanup()
		case <-m.stopCleanup:
			return
		}
	}
}

// cleanup removes workspaces idle for longer than the timeout. Their
// sessions stay in durable storage.
func (m *Manager) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	evicted := 0

	for id, e := range m.workspaces {
		if now.Sub(e.lastUsed) > m.idleTimeout {
			slog.Debug("evicting idle workspace",
				"workspace", shortID(id),
				"idle", now.Sub(e.lastUsed).Round(time.Second).String(),
			)
			delete(m.workspaces, id)
			evicted++
		}
	}

	if evicted > 0 {
		slog.Info("evicted idle workspaces", "count", evicted)
	}
}
