package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tutor/pkg/adapters/redis"
	"github.com/aretw0/tutor/pkg/domain"
	"github.com/aretw0/tutor/pkg/ports"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunStateStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_CBORContract(t *testing.T) {
	_, client := newClient(t)
	ports.RunStateStoreContract(t, redis.NewFromClient(client, redis.WithCBOR()))
}

func TestRedisStore_CBORPreservesTimestamp(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithCBOR())
	ctx := context.Background()

	state := domain.NewSessionState("s1", "IntroducingVariables")
	require.NoError(t, store.Save(ctx, "s1", state))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, state.UpdatedAt.Equal(loaded.UpdatedAt))
}

func TestRedisStore_PrefixAndTTL(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("test:"), redis.WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", domain.NewSessionState("s1", "p")))
	assert.True(t, mr.Exists("test:s1"))
	assert.Equal(t, time.Minute, mr.TTL("test:s1"))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
}

func TestRedisStore_ListPrunesExpired(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "old", domain.NewSessionState("old", "p")))

	// Push the index score into the past, as if the TTL had elapsed.
	require.NoError(t, client.ZAdd(ctx, redis.DefaultPrefix+"index", backend.Z{Score: 1, Member: "old"}).Err())

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
