// Package oidc implements the AuthProvider port with OpenID Connect.
package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/UPI05/InsecMed/internal/domain/auth"
	"github.com/UPI05/InsecMed/internal/ports"
)

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	DiscoveryURL string
	LogoutURL    string
	HTTPClient   *http.Client // defaults to a client with a 30s timeout
}

// Provider performs the authorization-code flow and verifies the id_token.
type Provider struct {
	config     *oauth2.Config
	logoutURL  string
	httpClient *http.Client
	provider   *gooidc.Provider
	verifier   *gooidc.IDTokenVerifier
	now        func() time.Time
}

// NewProvider discovers the issuer and builds a Provider.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	switch {
	case cfg.ClientID == "":
		return nil, errors.New("client ID is required")
	case cfg.ClientSecret == "":
		return nil, errors.New("client secret is required")
	case cfg.RedirectURL == "":
		return nil, errors.New("redirect URL is required")
	case cfg.DiscoveryURL == "":
		return nil, errors.New("discovery URL is required")
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}

	ctx := gooidc.ClientContext(context.Background(), hc)
	op, err := gooidc.NewProvider(ctx, issuerFromDiscovery(cfg.DiscoveryURL))
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       strings.Fields(cfg.Scope),
			Endpoint:     op.Endpoint(),
		},
		logoutURL:  cfg.LogoutURL,
		httpClient: hc,
		provider:   op,
		verifier:   op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		now:        time.Now,
	}, nil
}

func issuerFromDiscovery(u string) string {
	u = strings.TrimSuffix(u, "/")
	u = strings.TrimSuffix(u, "/.well-known/openid-configuration")
	return strings.TrimSuffix(u, "/")
}

// LogoutURL returns the IdP end-session URL, if configured.
func (p *Provider) LogoutURL() string { return p.logoutURL }

// Begin builds the IdP authorization URL with a fresh state and nonce.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	if in.RedirectURL == "" {
		return "", "", "", errors.New("redirect URL is required")
	}
	state, err := randomToken(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomToken(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	return p.config.AuthCodeURL(state, gooidc.Nonce(nonce)), state, nonce, nil
}

// Exchange trades the code for tokens, verifies the id_token and nonce,
// and fills gaps from the userinfo endpoint.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	switch {
	case in.Code == "":
		return domainauth.Identity{}, errors.New("authorization code is required")
	case in.State == "":
		return domainauth.Identity{}, errors.New("state is required")
	case in.Nonce == "":
		return domainauth.Identity{}, errors.New("nonce is required")
	}

	ctx = gooidc.ClientContext(ctx, p.httpClient)
	tok, err := p.config.Exchange(ctx, in.Code)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("exchange code for token: %w", err)
	}

	var c claims
	if slices.Contains(p.config.Scopes, gooidc.ScopeOpenID) {
		if c, err = p.verifyIDToken(ctx, tok, in.Nonce); err != nil {
			return domainauth.Identity{}, fmt.Errorf("extract id_token: %w", err)
		}
	}

	if c.userID() == "" || c.email() == "" {
		ui, err := p.provider.UserInfo(ctx, oauth2.StaticTokenSource(tok))
		if err != nil {
			return domainauth.Identity{}, fmt.Errorf("get user info: %w", err)
		}
		var extra claims
		if err := ui.Claims(&extra); err != nil {
			return domainauth.Identity{}, fmt.Errorf("decode user info: %w", err)
		}
		c = c.merge(extra)
	}

	expiresAt := p.now().Add(time.Hour)
	if !tok.Expiry.IsZero() {
		expiresAt = tok.Expiry
	}
	return c.identity(expiresAt), nil
}

func (p *Provider) verifyIDToken(ctx context.Context, tok *oauth2.Token, nonce string) (claims, error) {
	raw, err := rawIDToken(tok)
	if err != nil {
		return claims{}, err
	}
	idTok, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return claims{}, fmt.Errorf("verify id_token: %w", err)
	}
	var c claims
	if err := idTok.Claims(&c); err != nil {
		return claims{}, fmt.Errorf("parse id_token claims: %w", err)
	}
	if c.Nonce != nonce {
		return claims{}, errors.New("invalid nonce")
	}
	return c, nil
}

func rawIDToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	s, ok := tok.Extra("id_token").(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}

// claims covers standard OIDC claims and the Active Directory (ADFS) shape.
type claims struct {
	Sub               string   `json:"sub"`
	PreferredUsername string   `json:"preferred_username"`
	Email             string   `json:"email"`
	GivenName         string   `json:"given_name"`
	FamilyName        string   `json:"family_name"`
	Groups            []string `json:"groups"`
	Nonce             string   `json:"nonce"`

	SamAccountName string   `json:"samaccountname"`
	Mail           string   `json:"mail"`
	FirstName      string   `json:"firstname"`
	LastName       string   `json:"lastname"`
	MemberOf       []string `json:"memberof"`
}

func (c claims) userID() string {
	return firstNonEmpty(c.PreferredUsername, c.SamAccountName, c.Sub)
}

func (c claims) email() string { return firstNonEmpty(c.Email, c.Mail) }

func (c claims) groups() []string {
	if len(c.Groups) > 0 {
		return c.Groups
	}
	return c.MemberOf
}

// merge fills fields of c that are empty from other.
func (c claims) merge(other claims) claims {
	if c.userID() == "" {
		c.PreferredUsername = other.userID()
	}
	if c.email() == "" {
		c.Email = other.email()
	}
	if c.GivenName == "" && c.FirstName == "" {
		c.GivenName = firstNonEmpty(other.GivenName, other.FirstName)
	}
	if c.FamilyName == "" && c.LastName == "" {
		c.FamilyName = firstNonEmpty(other.FamilyName, other.LastName)
	}
	if len(c.groups()) == 0 {
		c.Groups = other.groups()
	}
	return c
}

func (c claims) identity(expiresAt time.Time) domainauth.Identity {
	return domainauth.Identity{
		UserID:    c.userID(),
		FirstName: firstNonEmpty(c.GivenName, c.FirstName),
		LastName:  firstNonEmpty(c.FamilyName, c.LastName),
		Email:     c.email(),
		Groups:    c.groups(),
		ExpiresAt: expiresAt,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// randomToken returns a URL-safe random string of exactly n characters.
func randomToken(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}
