package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/canvass/pkg/adapters/redis"
	"github.com/aretw0/canvass/pkg/domain"
	"github.com/aretw0/canvass/pkg/ports"
)

func newTestStore(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := redis.NewFromClient(client, opts...)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestStoreContract(t *testing.T) {
	store, _ := newTestStore(t)
	ports.RunSessionStoreContract(t, store)
}

func TestStoreKeyPrefix(t *testing.T) {
	store, mr := newTestStore(t, redis.WithPrefix("acme:wf:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", &domain.Snapshot{WorkflowVersionHash: "h"}))

	assert.True(t, mr.Exists("acme:wf:s1"), "session key should carry the prefix")
	assert.True(t, mr.Exists("acme:wf:index"), "index key should carry the prefix")
}

func TestStoreTTLExpiry(t *testing.T) {
	store, mr := newTestStore(t, redis.WithTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "ephemeral", &domain.Snapshot{WorkflowVersionHash: "h"}))

	_, err := store.Load(ctx, "ephemeral")
	require.NoError(t, err)

	// miniredis advances time manually.
	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "ephemeral")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, sessions, "ephemeral", "expired sessions should be pruned from the index")
}

func TestStoreDeleteRemovesIndexEntry(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", &domain.Snapshot{WorkflowVersionHash: "h"}))
	require.NoError(t, store.Delete(ctx, "s1"))

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, sessions, "s1")
}
