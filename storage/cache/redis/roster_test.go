package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classbook/tests"
)

type providerMock struct {
	rosters map[string][]string
	calls   int
	err     error
}

func (m *providerMock) GroupRoster(_ context.Context, groupID string) ([]string, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.rosters[groupID], nil
}

func setup(t *testing.T) (*miniredis.Miniredis, *providerMock, *testutil.LoggerMock, *RosterCache) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	next := &providerMock{rosters: map[string][]string{"g1": {"s1", "s2"}}}
	logger := new(testutil.LoggerMock)
	return srv, next, logger, NewRosterCache(next, client, time.Minute, logger)
}

func TestRosterCache_GroupRoster(t *testing.T) {
	ctx := context.Background()
	srv, next, logger, cache := setup(t)

	// miss
	members, err := cache.GroupRoster(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, members)
	assert.Equal(t, 1, next.calls)

	cached, err := srv.Get(rosterKey("g1"))
	require.NoError(t, err)
	assert.JSONEq(t, `["s1", "s2"]`, cached)
	assert.Equal(t, time.Minute, srv.TTL(rosterKey("g1")))

	// hit
	members, err = cache.GroupRoster(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, members)
	assert.Equal(t, 1, next.calls)

	// expired
	srv.FastForward(2 * time.Minute)
	_, err = cache.GroupRoster(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)

	assert.Empty(t, logger.Entries)
}

func TestRosterCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	srv, next, _, cache := setup(t)

	_, err := cache.GroupRoster(ctx, "g1")
	require.NoError(t, err)
	next.rosters["g1"] = []string{"s1", "s2", "s3"}

	require.NoError(t, cache.Invalidate(ctx, "g1", "g2"))
	assert.False(t, srv.Exists(rosterKey("g1")))
	assert.NoError(t, cache.Invalidate(ctx))

	members, err := cache.GroupRoster(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2", "s3"}, members)
	assert.Equal(t, 2, next.calls)
}

func TestRosterCache_fallsThrough(t *testing.T) {
	ctx := context.Background()

	t.Run("corrupt entry", func(t *testing.T) {
		srv, next, logger, cache := setup(t)
		require.NoError(t, srv.Set(rosterKey("g1"), "{not json"))

		members, err := cache.GroupRoster(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, []string{"s1", "s2"}, members)
		assert.Equal(t, 1, next.calls)
		assert.Equal(t, []string{"warn"}, logger.Levels())
	})

	t.Run("redis down", func(t *testing.T) {
		srv, next, logger, cache := setup(t)
		srv.Close()

		members, err := cache.GroupRoster(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, []string{"s1", "s2"}, members)
		assert.Equal(t, 1, next.calls)
		assert.Equal(t, []string{"warn", "warn"}, logger.Levels()) // read, then write
	})

	t.Run("provider error", func(t *testing.T) {
		_, next, _, cache := setup(t)
		next.err = errors.New("boom")

		_, err := cache.GroupRoster(ctx, "g1")
		assert.Equal(t, next.err, err)
	})
}
