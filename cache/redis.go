package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/config"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/globals"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/types"
)

// MessageCache is the optional, rebuildable read accelerator in front of
// the durable message log. A miss (or any failure) must always fall
// through to the store, so none of these methods are allowed to matter for
// correctness.
type MessageCache interface {
	Put(ctx context.Context, roomID uint, msg *types.Message) error
	PutAll(ctx context.Context, roomID uint, msgs []*types.Message) error
	// Fetch returns hit=false when the per-room structure is absent
	// (never written or TTL-expired). A hit may still be shorter than
	// limit; the caller decides whether that needs store verification.
	Fetch(ctx context.Context, roomID uint, before time.Time, limit int) (msgs []*types.Message, hit bool, err error)
	EvictAll(ctx context.Context, roomID uint) error
}

// RedisMessageCache keeps one sorted set per room, scored by SentAt
// (UnixNano). Every write refreshes the TTL of the whole per-room set.
type RedisMessageCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func NewRedisMessageCache(cfg *config.Config) (*RedisMessageCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.CacheConfig.Addr,
		Password: cfg.CacheConfig.Password,
		DB:       cfg.CacheConfig.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.CacheConfig.Addr, err)
	}
	return &RedisMessageCache{
		client:    client,
		keyPrefix: cfg.CacheConfig.KeyPrefix,
		ttl:       cfg.CacheConfig.TTL,
	}, nil
}

func (c *RedisMessageCache) roomMessagesKey(roomID uint) string {
	return fmt.Sprintf("%sroom:%d:messages", c.keyPrefix, roomID)
}

func (c *RedisMessageCache) Put(ctx context.Context, roomID uint, msg *types.Message) error {
	return c.PutAll(ctx, roomID, []*types.Message{msg})
}

func (c *RedisMessageCache) PutAll(ctx context.Context, roomID uint, msgs []*types.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	key := c.roomMessagesKey(roomID)
	members := make([]*redis.Z, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("redis: marshal message %s: %w", msg.ID, err)
		}
		members = append(members, &redis.Z{
			Score:  float64(msg.SentAt.UnixNano()),
			Member: string(data),
		})
	}
	pipe := c.client.Pipeline()
	pipe.ZAdd(ctx, key, members...)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: cache messages for room %d on key %s: %w", roomID, key, err)
	}
	return nil
}

func (c *RedisMessageCache) Fetch(ctx context.Context, roomID uint, before time.Time, limit int) ([]*types.Message, bool, error) {
	key := c.roomMessagesKey(roomID)
	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis: exists %s: %w", key, err)
	}
	if exists == 0 {
		return nil, false, nil
	}
	var raw []string
	if before.IsZero() {
		raw, err = c.client.ZRevRange(ctx, key, 0, int64(limit-1)).Result()
	} else {
		// (-inf, cursor], then skip the cursor entry itself
		raw, err = c.client.ZRevRangeByScore(ctx, key, &redis.ZRangeBy{
			Min:    "-inf",
			Max:    strconv.FormatInt(before.UnixNano(), 10),
			Offset: 1,
			Count:  int64(limit),
		}).Result()
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: fetch messages for room %d from %s: %w", roomID, key, err)
	}
	messages := make([]*types.Message, 0, len(raw))
	for _, data := range raw {
		msg := types.Message{}
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			globals.AppLogger.Warn("skipping unreadable cached message", "room_id", roomID, "error", err)
			continue
		}
		messages = append(messages, &msg)
	}
	return messages, true, nil
}

func (c *RedisMessageCache) EvictAll(ctx context.Context, roomID uint) error {
	key := c.roomMessagesKey(roomID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: evict room %d key %s: %w", roomID, key, err)
	}
	return nil
}

func (c *RedisMessageCache) Close() error {
	return c.client.Close()
}
