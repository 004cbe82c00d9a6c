// Package auth contains hand-written test doubles for the identity ports.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/UPI05/InsecMed/internal/domain/auth"
	"github.com/UPI05/InsecMed/internal/ports"
)

var (
	_ ports.AuthProvider = (*MockAuthProvider)(nil)
	_ ports.SessionStore = (*MemorySessionStore)(nil)
)

// ErrNotFound is returned by MemorySessionStore for unknown ids.
var ErrNotFound = errors.New("not found")

// MockAuthProvider simulates an IdP with deterministic state and nonce values
// (state-1, nonce-1, state-2, ...).
type MockAuthProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error)

	AuthURL     string
	DefaultUser domainauth.Identity

	mu        sync.Mutex
	callCount int
}

// DefaultIdentity is the identity Exchange returns when DefaultUser is unset.
func DefaultIdentity() domainauth.Identity {
	return domainauth.Identity{
		UserID:    "mock-doctor-1",
		FirstName: "Mock",
		LastName:  "Doctor",
		Email:     "mock.doctor@example.com",
		Groups:    []string{"doctors"},
	}
}

// NewMockAuthProvider creates a MockAuthProvider with defaults.
func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{AuthURL: "https://mock-idp/auth", DefaultUser: DefaultIdentity()}
}

// Begin returns AuthURL and the next numbered state and nonce.
func (m *MockAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}
	m.mu.Lock()
	m.callCount++
	n := m.callCount
	m.mu.Unlock()

	authURL := m.AuthURL
	if authURL == "" {
		authURL = "https://mock-idp/auth"
	}
	return authURL, fmt.Sprintf("state-%d", n), fmt.Sprintf("nonce-%d", n), nil
}

// Exchange returns DefaultUser with an expiry one hour out.
func (m *MockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	user := m.DefaultUser
	if user.UserID == "" && user.Email == "" {
		user = DefaultIdentity()
	}
	if user.ExpiresAt.IsZero() {
		user.ExpiresAt = time.Now().Add(time.Hour)
	}
	return user, nil
}

// MemorySessionStore is an in-memory SessionStore.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
}

// NewMemorySessionStore creates an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domainauth.Session)}
}

// Save stores sess by id.
func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

// Get returns the stored session or ErrNotFound.
func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

// Delete removes a session.
func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len reports how many sessions are stored.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
