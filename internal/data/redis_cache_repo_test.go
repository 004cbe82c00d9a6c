package data

import (
	"context"
	"testing"
	"time"

	"github.com/UPI05/InsecMed/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCacheRepo_Set_Get_Delete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := testutil.SetupTestRedis(t)

	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		key := "test:status:1"
		value := []byte(`{"state":"done"}`)
		ttl := 5 * time.Minute

		require.NoError(t, repo.Set(ctx, key, value, ttl))

		result, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, value, result)

		actualTTL := client.TTL(ctx, key).Val()
		assert.True(t, actualTTL > 0 && actualTTL <= ttl)
	})

	t.Run("get missing key", func(t *testing.T) {
		result, err := repo.Get(ctx, "test:status:missing")
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("delete", func(t *testing.T) {
		key := "test:status:2"
		require.NoError(t, repo.Set(ctx, key, []byte("x"), time.Minute))

		deleted, err := repo.Delete(ctx, key)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.Delete(ctx, key)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("empty key", func(t *testing.T) {
		require.Error(t, repo.Set(ctx, "", []byte("x"), time.Minute))
		_, err := repo.Get(ctx, "")
		require.Error(t, err)
		_, err = repo.Delete(ctx, "")
		require.Error(t, err)
		_, err = repo.Increment(ctx, "", time.Minute)
		require.Error(t, err)
	})
}

func TestRedisCacheRepo_Increment(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := testutil.SetupTestRedis(t)

	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	t.Run("counts and sets ttl once", func(t *testing.T) {
		key := "test:rate:1"
		n, err := repo.Increment(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		require.NoError(t, client.Expire(ctx, key, 30*time.Second).Err())

		n, err = repo.Increment(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		ttl := client.TTL(ctx, key).Val()
		assert.LessOrEqual(t, ttl, 30*time.Second, "existing expiry is kept")
		assert.Positive(t, ttl)
	})

	t.Run("zero ttl leaves key persistent", func(t *testing.T) {
		key := "test:rate:2"
		_, err := repo.Increment(ctx, key, 0)
		require.NoError(t, err)
		assert.Equal(t, time.Duration(-1), client.TTL(ctx, key).Val())
	})
}

func TestRedisCacheRepo_Health(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := testutil.SetupTestRedis(t)

	require.NoError(t, NewRedisCacheRepo(client).Health(context.Background()))
}
