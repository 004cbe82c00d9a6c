// Package devauth provides a config-driven AuthProvider for AUTH_MODE=mock.
package devauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	domainauth "github.com/UPI05/InsecMed/internal/domain/auth"
	"github.com/UPI05/InsecMed/internal/ports"
)

// Config controls the dev identity. Groups may be empty, which yields a
// guest session.
type Config struct {
	UserID          string
	Email           string
	Groups          []string
	SessionDuration time.Duration // default 8h when zero
}

// Provider skips the IdP round trip: Begin points straight at our own
// callback and Exchange returns the configured identity.
type Provider struct {
	mu       sync.Mutex
	identity domainauth.Identity
	duration time.Duration
	now      func() time.Time
}

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.UserID) == "" {
		return nil, errors.New("dev auth: UserID is required")
	}
	if strings.TrimSpace(cfg.Email) == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	dur := cfg.SessionDuration
	if dur <= 0 {
		dur = 8 * time.Hour
	}
	return &Provider{
		identity: domainauth.Identity{
			UserID: strings.TrimSpace(cfg.UserID),
			Email:  strings.TrimSpace(cfg.Email),
			Groups: append([]string(nil), cfg.Groups...),
		},
		duration: dur,
		now:      time.Now,
	}, nil
}

// Begin returns a local callback URL carrying a fresh state.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	state, err := token(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := token(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	q := url.Values{"code": {"dev"}, "state": {state}}
	return "/auth/callback?" + q.Encode(), state, nonce, nil
}

// Exchange returns the dev identity with an expiry one session duration out.
// State and nonce are checked by the HTTP handler.
func (p *Provider) Exchange(_ context.Context, _ ports.ExchangeInput) (domainauth.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.identity
	id.Groups = append([]string(nil), p.identity.Groups...)
	id.ExpiresAt = p.now().Add(p.duration)
	return id, nil
}

func token(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}
