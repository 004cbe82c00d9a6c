package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/UPI05/InsecMed/config"
	"github.com/UPI05/InsecMed/internal/adapters/authroles"
	"github.com/UPI05/InsecMed/internal/adapters/devauth"
	"github.com/UPI05/InsecMed/internal/adapters/oidc"
	redisadapter "github.com/UPI05/InsecMed/internal/adapters/redis"
	"github.com/UPI05/InsecMed/internal/ports"
	"github.com/UPI05/InsecMed/internal/service"
)

// sessionKeyPrefix namespaces session keys away from the status cache and rate limiter.
const sessionKeyPrefix = "insecmed:session:"

// AuthConfig contains configuration for auth service.
type AuthConfig struct {
	Auth        config.AuthConfig
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// BuildAuthService creates an auth service for the configured auth mode.
// Every API route needs a session, so incomplete configuration is an error.
func BuildAuthService(cfg AuthConfig) (*service.AuthService, error) {
	if cfg.RedisClient == nil {
		return nil, errors.New("auth: redis client is required for the session store")
	}

	sessions := redisadapter.NewSessionStoreWithOptions(cfg.RedisClient, redisadapter.SessionStoreOptions{
		Prefix: sessionKeyPrefix,
	})
	roles := authroles.StaticRoleMapper{
		AdminGroup: cfg.Auth.AdminGroup,
		UserGroup:  cfg.Auth.UserGroup,
	}

	var (
		prov ports.AuthProvider
		err  error
	)
	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		prov, err = buildDevAuthProvider(cfg)
	case config.AuthModeOAuth:
		prov, err = buildOIDCProvider(cfg.Auth.OAuth)
	default:
		err = fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("auth configured", "mode", cfg.Auth.Mode)
	}
	return service.NewAuthService(service.AuthServiceOptions{
		Provider: prov,
		Sessions: sessions,
		Roles:    roles,
	}), nil
}

//nolint:ireturn // the caller picks between providers at runtime.
func buildDevAuthProvider(cfg AuthConfig) (ports.AuthProvider, error) {
	if cfg.Logger != nil {
		cfg.Logger.Warn("dev auth enabled; every login is signed in as the configured identity",
			"email", cfg.Auth.DevAuth.Email)
	}
	prov, err := devauth.NewProvider(devauth.Config{
		UserID: cfg.Auth.DevAuth.UserID,
		Email:  cfg.Auth.DevAuth.Email,
		Groups: cfg.Auth.DevAuth.Groups,
	})
	if err != nil {
		return nil, fmt.Errorf("dev auth provider: %w", err)
	}
	return prov, nil
}

//nolint:ireturn // the caller picks between providers at runtime.
func buildOIDCProvider(oauth config.OAuthConfig) (ports.AuthProvider, error) {
	if oauth.DiscoveryURL == "" || oauth.ClientID == "" || oauth.ClientSecret == "" {
		return nil, errors.New("oauth mode requires OAUTH_DISCOVERY_URL, OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET")
	}

	prov, err := oidc.NewProvider(oidc.ProviderConfig{
		ClientID:     oauth.ClientID,
		ClientSecret: oauth.ClientSecret,
		RedirectURL:  oauth.RedirectURL,
		Scope:        oauth.Scope,
		DiscoveryURL: oauth.DiscoveryURL,
		LogoutURL:    oauth.LogoutURL,
	})
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}
	return prov, nil
}
