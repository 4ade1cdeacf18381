// Package settings caches the feature-flag configuration served by the
// identity service, in memory and mirrored to durable storage.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/al-bashkir/erp-portal/internal/logsanitize"
	"github.com/al-bashkir/erp-portal/internal/session"
	"github.com/al-bashkir/erp-portal/internal/storage"
)

// KeyPrefix marks mirrored settings in durable storage.
const KeyPrefix = session.ConfigKeyPrefix

// ErrConfigFetch is returned when settings could not be obtained from the
// remote service. Callers fail open.
var ErrConfigFetch = errors.New("settings: fetch failed")

// Remote is the remote side of the cache.
type Remote interface {
	FetchSettings(ctx context.Context) (map[string]string, error)
	UpdateSetting(ctx context.Context, key, value string) error
	ValidateSettings(ctx context.Context) (bool, error)
}

// Cache memoizes the settings map. Concurrent GetAll calls that miss
// both memory and the durable mirror share one remote fetch.
type Cache struct {
	remote Remote
	store  storage.Store
	group  singleflight.Group

	mu         sync.RWMutex
	values     Settings
	generation uint64
}

// NewCache creates an empty cache.
func NewCache(remote Remote, store storage.Store) *Cache {
	return &Cache{remote: remote, store: store}
}

// Loaded reports whether settings are held in memory.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values != nil
}

// Snapshot returns the in-memory settings without loading them. The
// result is nil until the cache has been loaded.
func (c *Cache) Snapshot() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values.Clone()
}

// GetAll returns the settings from memory, then the durable mirror, then
// the remote service.
func (c *Cache) GetAll(ctx context.Context) (Settings, error) {
	c.mu.RLock()
	values, gen := c.values, c.generation
	c.mu.RUnlock()
	if values != nil {
		return values.Clone(), nil
	}

	if mirrored := c.readMirror(ctx); len(mirrored) > 0 {
		c.mu.Lock()
		if c.generation == gen && c.values == nil {
			c.values = mirrored
		}
		c.mu.Unlock()
		return mirrored.Clone(), nil
	}

	// A Clear during the fetch bumps the generation, so its result
	// never lands in the cache and later callers start a new flight.
	// The shared fetch outlives any one caller's cancellation; the
	// remote client's timeout bounds it.
	key := fmt.Sprintf("settings-%d", gen)
	ch := c.group.DoChan(key, func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx), gen)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			slog.Debug("settings fetch shared with concurrent caller")
		}
		return res.Val.(Settings).Clone(), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrConfigFetch, ctx.Err())
	}
}

// Get returns a single setting.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	all, err := c.GetAll(ctx)
	if err != nil {
		return "", false, err
	}
	v, ok := all[key]
	return v, ok, nil
}

// Set writes through to the remote service and, on success, updates the
// loaded cache and any existing mirror. It reports whether the remote accepted
// the value.
func (c *Cache) Set(ctx context.Context, key, value string) bool {
	if err := c.remote.UpdateSetting(ctx, key, value); err != nil {
		slog.Warn("failed to update setting",
			"key", logsanitize.Sanitize(key),
			"error", err,
		)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		// Not loaded here, but an earlier process may have left a mirror
		// that the next GetAll would trust.
		if keys, err := c.store.Keys(ctx, KeyPrefix); err != nil || len(keys) == 0 {
			return true
		}
	} else {
		c.values[key] = value
	}
	if err := c.store.Set(ctx, KeyPrefix+key, value); err != nil {
		slog.Warn("failed to mirror setting", "key", logsanitize.Sanitize(key), "error", err)
	}
	return true
}

// Clear drops the in-memory settings and every mirrored entry.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.values = nil
	c.generation++
	c.mu.Unlock()

	if _, err := storage.DeletePrefix(ctx, c.store, KeyPrefix); err != nil {
		return fmt.Errorf("failed to clear settings mirror: %w", err)
	}
	return nil
}

// Refresh discards cached settings and loads them from the remote
// service.
func (c *Cache) Refresh(ctx context.Context) (Settings, error) {
	if err := c.Clear(ctx); err != nil {
		slog.Warn("settings refresh could not clear mirror", "error", err)
	}
	return c.GetAll(ctx)
}

// Validate asks the remote service to validate the current settings.
// Any failure reads as invalid.
func (c *Cache) Validate(ctx context.Context) bool {
	valid, err := c.remote.ValidateSettings(ctx)
	if err != nil {
		slog.Warn("settings validation failed", "error", err)
		return false
	}
	return valid
}

func (c *Cache) fetch(ctx context.Context, gen uint64) (Settings, error) {
	remote, err := c.remote.FetchSettings(ctx)
	if err != nil {
		slog.Warn("failed to fetch settings", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrConfigFetch, err)
	}
	values := Settings(remote).Clone()
	if values == nil {
		values = Settings{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		slog.Debug("discarding settings fetched before clear")
		return values, nil
	}
	c.values = values
	for k, v := range values {
		if err := c.store.Set(ctx, KeyPrefix+k, v); err != nil {
			slog.Warn("failed to mirror setting", "key", logsanitize.Sanitize(k), "error", err)
		}
	}
	slog.Debug("settings loaded", "count", len(values))
	return values, nil
}

func (c *Cache) readMirror(ctx context.Context) Settings {
	keys, err := c.store.Keys(ctx, KeyPrefix)
	if err != nil {
		slog.Warn("failed to list settings mirror", "error", err)
		return nil
	}
	if len(keys) == 0 {
		return nil
	}

	values := make(Settings, len(keys))
	for _, k := range keys {
		v, err := c.store.Get(ctx, k)
		if err != nil {
			continue
		}
		values[strings.TrimPrefix(k, KeyPrefix)] = v
	}
	return values
}
