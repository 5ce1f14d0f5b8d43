// Package rediscache fronts slow collaborators with a Redis cache.
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/roster"
)

const rosterKeyPrefix = "classbook:roster:"

// NewClient connects to Redis and checks the connection.
func NewClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Cache.Addr,
		Password: conf.Cache.Password,
		DB:       conf.Cache.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

type RosterCache struct {
	next   roster.Provider
	client *redis.Client
	ttl    time.Duration
	logger core.Logger
}

var _ roster.Provider = (*RosterCache)(nil) // interface compliance check

// NewRosterCache caches the rosters read from next for ttl.
// Redis failures are logged and fall through to next.
func NewRosterCache(next roster.Provider, client *redis.Client, ttl time.Duration, logger core.Logger) *RosterCache {
	return &RosterCache{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func rosterKey(groupID string) string {
	return rosterKeyPrefix + groupID
}

func (c *RosterCache) GroupRoster(ctx context.Context, groupID string) ([]string, error) {
	key := rosterKey(groupID)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var members []string
		if err = json.Unmarshal(data, &members); err == nil {
			return members, nil
		}
		c.logger.Warn("decoding cached roster", errors.Wrap(err, key))
	case errors.Is(err, redis.Nil): // miss
	default:
		c.logger.Warn("reading cached roster", errors.Wrap(err, key))
	}

	members, err := c.next.GroupRoster(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if data, err = json.Marshal(members); err == nil {
		err = c.client.Set(ctx, key, data, c.ttl).Err()
	}
	if err != nil {
		c.logger.Warn("caching roster", errors.Wrap(err, key))
	}
	return members, nil
}

// Invalidate drops the cached rosters of the given groups.
func (c *RosterCache) Invalidate(ctx context.Context, groupIDs ...string) error {
	if len(groupIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(groupIDs))
	for _, id := range groupIDs {
		keys = append(keys, rosterKey(id))
	}
	return errors.Wrap(c.client.Del(ctx, keys...).Err(), "invalidating cached rosters")
}
