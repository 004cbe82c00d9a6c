package bootstrap

import (
	"io"
	"log/slog"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UPI05/InsecMed/config"
)

func testAuthConfig(mode config.AuthMode) config.AuthConfig {
	return config.AuthConfig{
		Mode:       mode,
		AdminGroup: "admins",
		UserGroup:  "doctors",
		DevAuth: config.DevAuthConfig{
			UserID: "dev",
			Email:  "dev@example.com",
			Groups: []string{"doctors"},
		},
	}
}

func TestBuildAuthService(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	// The client is never dialled; the session store only talks to Redis per request.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	t.Run("requires redis", func(t *testing.T) {
		svc, err := BuildAuthService(AuthConfig{Auth: testAuthConfig(config.AuthModeMock), Logger: logger})
		require.Error(t, err)
		assert.Nil(t, svc)
	})

	t.Run("dev auth", func(t *testing.T) {
		svc, err := BuildAuthService(AuthConfig{
			Auth:        testAuthConfig(config.AuthModeMock),
			RedisClient: client,
			Logger:      logger,
		})
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("oauth without discovery url", func(t *testing.T) {
		auth := testAuthConfig(config.AuthModeOAuth)
		auth.OAuth = config.OAuthConfig{ClientID: "client-id", ClientSecret: "secret"}

		svc, err := BuildAuthService(AuthConfig{Auth: auth, RedisClient: client, Logger: logger})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "OAUTH_DISCOVERY_URL")
		assert.Nil(t, svc)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := BuildAuthService(AuthConfig{Auth: testAuthConfig("saml"), RedisClient: client})
		require.Error(t, err)
	})
}
