package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/UPI05/InsecMed/internal/domain/auth"
	"github.com/UPI05/InsecMed/internal/ports"
)

func TestMockAuthProvider_BeginCounts(t *testing.T) {
	p := NewMockAuthProvider()
	ctx := context.Background()

	authURL, state, nonce, err := p.Begin(ctx, ports.BeginInput{RedirectURL: "/"})
	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth", authURL)
	assert.Equal(t, "state-1", state)
	assert.Equal(t, "nonce-1", nonce)

	_, state, nonce, err = p.Begin(ctx, ports.BeginInput{RedirectURL: "/"})
	require.NoError(t, err)
	assert.Equal(t, "state-2", state)
	assert.Equal(t, "nonce-2", nonce)
}

func TestMockAuthProvider_ExchangeDefaults(t *testing.T) {
	p := &MockAuthProvider{}
	id, err := p.Exchange(context.Background(), ports.ExchangeInput{})
	require.NoError(t, err)
	assert.Equal(t, "mock.doctor@example.com", id.Email)
	assert.True(t, id.ExpiresAt.After(time.Now()))
}

func TestMemorySessionStore(t *testing.T) {
	s := NewMemorySessionStore()
	ctx := context.Background()

	require.Error(t, s.Save(ctx, domainauth.Session{}))
	require.NoError(t, s.Save(ctx, domainauth.Session{ID: "a", Email: "a@example.com"}))
	assert.Equal(t, 1, s.Len())

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Email)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	require.ErrorIs(t, err, ErrNotFound)
}
