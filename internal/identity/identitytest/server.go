// Package identitytest provides an in-process fake of the identity and
// configuration service for tests.
package identitytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/al-bashkir/erp-portal/internal/identity"
)

// Account is a user known to the fake service.
type Account struct {
	User     identity.User
	Password string
	ImageID  string // registered security image
}

// Server is a fake identity service backed by httptest.Server.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	accounts   map[string]Account // keyed by username and by email
	phrase     string
	images     []identity.Image
	settings   map[string]string
	valid      bool
	failures   map[string]int // path -> status to return instead
	lastBearer string

	fetchGate    chan struct{}
	preloginGate chan struct{}
	verifyGate   chan struct{}

	calls sync.Map // path -> *atomic.Int64
}

// NewServer starts a fake service with one account, alice, whose
// security image is "img-2".
func NewServer() *Server {
	s := &Server{
		accounts: make(map[string]Account),
		phrase:   "blue harbour at dawn",
		images: []identity.Image{
			{ID: "img-1", URL: "/static/img/1.png", Label: "Lighthouse"},
			{ID: "img-2", URL: "/static/img/2.png", Label: "Sailboat"},
			{ID: "img-3", URL: "/static/img/3.png", Label: "Anchor"},
		},
		settings: map[string]string{
			"inventory_enabled":  "true",
			"sales_enabled":      "false",
			"accounting_enabled": "true",
		},
		valid:    true,
		failures: make(map[string]int),
	}
	s.AddAccount(Account{
		User: identity.User{
			ID:          "u-1",
			Username:    "alice",
			Email:       "alice@example.com",
			DisplayName: "Alice Example",
			Role:        "manager",
		},
		Password: "s3cret",
		ImageID:  "img-2",
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", s.handleLogin)
	mux.HandleFunc("/api/auth/cas/login", s.handleChallengeLogin)
	mux.HandleFunc("/api/auth/cas/prelogin", s.handlePrelogin)
	mux.HandleFunc("/api/auth/cas/verify-image", s.handleVerifyImage)
	mux.HandleFunc("/api/auth/cas/reset-password", s.handleResetPassword)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/config/validate", s.handleValidate)
	mux.HandleFunc("/api/config/", s.handleConfigKey)

	s.Server = httptest.NewServer(s.count(mux))
	return s
}

// AddAccount registers an account.
func (s *Server) AddAccount(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.User.Username] = a
	s.accounts[a.User.Email] = a
}

// Fail makes path answer with status until cleared with status 0.
func (s *Server) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, path)
		return
	}
	s.failures[path] = status
}

// SetSettings replaces the settings map.
func (s *Server) SetSettings(m map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = m
}

// Setting returns the current value of a setting.
func (s *Server) Setting(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings[key]
}

// SetValid sets the answer of the validate endpoint.
func (s *Server) SetValid(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valid = v
}

// HoldConfig makes /api/config block until the returned release
// function is called.
func (s *Server) HoldConfig() (release func()) {
	return s.hold(&s.fetchGate)
}

// HoldPrelogin makes prelogin block until the returned release function
// is called.
func (s *Server) HoldPrelogin() (release func()) {
	return s.hold(&s.preloginGate)
}

// HoldVerify makes verify-image block until the returned release
// function is called.
func (s *Server) HoldVerify() (release func()) {
	return s.hold(&s.verifyGate)
}

func (s *Server) hold(gate *chan struct{}) func() {
	ch := make(chan struct{})
	s.mu.Lock()
	*gate = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			*gate = nil
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Server) wait(gate *chan struct{}) {
	s.mu.Lock()
	ch := *gate
	s.mu.Unlock()
	if ch != nil {
		<-ch
	}
}

// LastBearer returns the bearer token seen on the last request to a
// config endpoint.
func (s *Server) LastBearer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBearer
}

// Calls returns how many requests hit path.
func (s *Server) Calls(path string) int64 {
	v, ok := s.calls.Load(path)
	if !ok {
		return 0
	}
	return v.(*atomic.Int64).Load()
}

// TotalCalls returns how many requests hit the service at all.
func (s *Server) TotalCalls() int64 {
	var total int64
	s.calls.Range(func(_, v any) bool {
		total += v.(*atomic.Int64).Load()
		return true
	})
	return total
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, _ := s.calls.LoadOrStore(r.URL.Path, new(atomic.Int64))
		v.(*atomic.Int64).Add(1)

		s.mu.Lock()
		if strings.HasPrefix(r.URL.Path, "/api/config") {
			s.lastBearer = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		status, failing := s.failures[r.URL.Path]
		s.mu.Unlock()
		if failing {
			http.Error(w, "injected failure", status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	acct, ok := s.accounts[req.Email]
	s.mu.Unlock()
	if !ok || acct.Password != req.Password {
		http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
		return
	}
	writeJSON(w, identity.AuthResult{Token: "token-" + acct.User.ID, User: acct.User})
}

func (s *Server) handleChallengeLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		ImageID  string `json:"imageId"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	acct, ok := s.accounts[req.Username]
	s.mu.Unlock()
	if !ok || acct.Password != req.Password || acct.ImageID != req.ImageID {
		http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
		return
	}
	writeJSON(w, identity.AuthResult{Token: "cas-token-" + acct.User.ID, User: acct.User})
}

func (s *Server) handlePrelogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.wait(&s.preloginGate)
	s.mu.Lock()
	_, ok := s.accounts[req.Username]
	ch := identity.Challenge{Phrase: s.phrase + " (" + req.Username + ")", Images: s.images}
	s.mu.Unlock()
	if !ok {
		http.Error(w, "unknown user", http.StatusNotFound)
		return
	}
	writeJSON(w, ch)
}

func (s *Server) handleVerifyImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		ImageID  string `json:"imageId"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.wait(&s.verifyGate)
	s.mu.Lock()
	acct, ok := s.accounts[req.Username]
	s.mu.Unlock()
	writeJSON(w, map[string]bool{"valid": ok && acct.ImageID == req.ImageID})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	acct, ok := s.accounts[req.Username]
	s.mu.Unlock()
	if !ok || !strings.EqualFold(acct.User.Email, req.Email) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.wait(&s.fetchGate)
	s.mu.Lock()
	out := make(map[string]string, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	s.mu.Unlock()
	writeJSON(w, map[string]any{"settings": out})
}

func (s *Server) handleConfigKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	key := strings.TrimPrefix(r.URL.Path, "/api/config/")
	var req struct {
		Value string `json:"value"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	s.settings[key] = req.Value
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	valid := s.valid
	s.mu.Unlock()
	writeJSON(w, map[string]bool{"valid": valid})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
