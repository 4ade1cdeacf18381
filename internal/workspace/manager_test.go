package workspace

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/al-bashkir/erp-portal/internal/authflow"
	"github.com/al-bashkir/erp-portal/internal/identity"
	"github.com/al-bashkir/erp-portal/internal/storage"
)

// offlineFactory builds workspaces whose identity service is never
// reached; demo login and session restore need no network.
func offlineFactory(base storage.Store) Factory {
	client := identity.NewClient("http://127.0.0.1:1", time.Second)
	return func(id string) *Workspace {
		return New(id, client, storage.Namespace(base, id), Options{DemoEnabled: true})
	}
}

func TestNewManager(t *testing.T) {
	mgr := NewManager(5*time.Minute, offlineFactory(storage.NewMemoryStore()))
	defer mgr.Stop()

	if mgr == nil {
		t.Fatal("NewManager returned nil")
	}

	if mgr.Count() != 0 {
		t.Errorf("expected 0 workspaces, got %d", mgr.Count())
	}
}

func TestCreateWorkspace(t *testing.T) {
	mgr := NewManager(5*time.Minute, offlineFactory(storage.NewMemoryStore()))
	defer mgr.Stop()

	ws, err := mgr.Create(context.Background())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if len(ws.ID) != 64 {
		t.Errorf("workspace ID length = %d, want 64", len(ws.ID))
	}

	if ws.Auth.State() != authflow.Anonymous {
		t.Errorf("new workspace state = %s, want anonymous", ws.Auth.State())
	}

	if mgr.Count() != 1 {
		t.Errorf("expected 1 workspace, got %d", mgr.Count())
	}
}

func TestGetWorkspace(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(5*time.Minute, offlineFactory(storage.NewMemoryStore()))
	defer mgr.Stop()

	created, err := mgr.Create(ctx)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	retrieved, err := mgr.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if retrieved != created {
		t.Error("expected the in-memory workspace to be returned")
	}

	_, err = mgr.Get(ctx, "nonexistent")
	if !errors.Is(err, ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}

	unknown := strings.Repeat("ab", 32)
	ws, err := mgr.Get(ctx, unknown)
	if err != nil {
		t.Fatalf("Get for well-formed unknown id failed: %v", err)
	}
	if ws.ID != unknown {
		t.Errorf("workspace ID = %s, want %s", ws.ID, unknown)
	}
	if mgr.Count() != 2 {
		t.Errorf("expected 2 workspaces, got %d", mgr.Count())
	}
}

func TestGetRebuildsFromStorage(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(5*time.Minute, offlineFactory(storage.NewMemoryStore()))
	defer mgr.Stop()

	ws, err := mgr.Create(ctx)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !ws.Auth.Login(ctx, authflow.DemoEmail, authflow.DemoPassword) {
		t.Fatal("demo login failed")
	}

	mgr.Delete(ws.ID)
	if mgr.Count() != 0 {
		t.Errorf("expected 0 workspaces after delete, got %d", mgr.Count())
	}

	rebuilt, err := mgr.Get(ctx, ws.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rebuilt == ws {
		t.Error("expected a rebuilt workspace")
	}
	if !rebuilt.Session.IsAuthenticated() {
		t.Error("rebuilt workspace should restore the persisted session")
	}

	// Delete non-existent workspace (should not panic)
	mgr.Delete("nonexistent")
}

func TestRotateMovesSession(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(5*time.Minute, offlineFactory(storage.NewMemoryStore()))
	defer mgr.Stop()

	ws, err := mgr.Create(ctx)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Nothing to move before sign-in.
	same, err := mgr.Rotate(ctx, ws)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if same != ws {
		t.Error("anonymous workspace should keep its id")
	}

	if !ws.Auth.Login(ctx, authflow.DemoEmail, authflow.DemoPassword) {
		t.Fatal("demo login failed")
	}
	token := ws.Session.Token()
	next, err := mgr.Rotate(ctx, ws)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if next.ID == ws.ID || !ValidID(next.ID) {
		t.Fatalf("expected a fresh id, got %q", next.ID)
	}
	if next.Auth.State() != authflow.Authenticated || next.Session.Token() != token {
		t.Error("rotated workspace should be signed in")
	}
	if p, ok := next.Session.Principal(); !ok || p.Role != authflow.DemoRole {
		t.Errorf("rotated principal = %+v, %v", p, ok)
	}
	if mgr.Count() != 1 {
		t.Errorf("expected 1 workspace after rotation, got %d", mgr.Count())
	}

	// The old id no longer carries the session, even rebuilt from storage.
	old, err := mgr.Get(ctx, ws.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if old.Session.IsAuthenticated() {
		t.Error("old workspace id must not stay signed in")
	}

	got, err := mgr.Get(ctx, next.ID)
	if err != nil || got != next {
		t.Errorf("Get(new id) = %v, %v", got, err)
	}
}

func TestWorkspacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(5*time.Minute, offlineFactory(storage.NewMemoryStore()))
	defer mgr.Stop()

	a, _ := mgr.Create(ctx)
	b, _ := mgr.Create(ctx)

	if !a.Auth.Login(ctx, authflow.DemoEmail, authflow.DemoPassword) {
		t.Fatal("demo login failed")
	}

	if b.Session.IsAuthenticated() {
		t.Error("login in one workspace leaked into another")
	}
}

func TestIdleExpiry(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(100*time.Millisecond, offlineFactory(storage.NewMemoryStore()))
	defer mgr.Stop()

	ws, err := mgr.Create(ctx)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Wait for expiry
	time.Sleep(150 * time.Millisecond)

	again, err := mgr.Get(ctx, ws.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if again == ws {
		t.Error("expected an idle workspace to be rebuilt")
	}
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(100*time.Millisecond, offlineFactory(storage.NewMemoryStore()))
	defer mgr.Stop()

	for i := 0; i < 5; i++ {
		if _, err := mgr.Create(ctx); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	if mgr.Count() != 5 {
		t.Errorf("expected 5 workspaces, got %d", mgr.Count())
	}

	// Wait for expiry
	time.Sleep(150 * time.Millisecond)

	// Trigger cleanup manually
	mgr.cleanup()

	if mgr.Count() != 0 {
		t.Errorf("expected 0 workspaces after cleanup, got %d", mgr.Count())
	}
}

func TestConcurrentAccess(t *testing.T) {
	mgr := NewManager(5*time.Minute, offlineFactory(storage.NewMemoryStore()))
	defer mgr.Stop()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			_, err := mgr.Create(context.Background())
			if err != nil {
				t.Errorf("Create failed: %v", err)
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	if mgr.Count() != 10 {
		t.Errorf("expected 10 workspaces, got %d", mgr.Count())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	mgr := NewManager(time.Minute, offlineFactory(storage.NewMemoryStore()))
	mgr.Stop()
	mgr.Stop()
}

func TestGenerateID(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		id, err := generateID()
		if err != nil {
			t.Fatalf("generateID failed: %v", err)
		}

		if !ValidID(id) {
			t.Errorf("generated ID %q is not valid", id)
		}

		if seen[id] {
			t.Errorf("duplicate workspace ID generated: %s", id)
		}

		seen[id] = true
	}
}

func TestValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{strings.Repeat("0f", 32), true},
		{strings.Repeat("0f", 31), false},
		{strings.Repeat("zz", 32), false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidID(tt.id); got != tt.want {
			t.Errorf("ValidID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
