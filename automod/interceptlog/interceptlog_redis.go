package interceptlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	redisEntriesKey = "groupguard/interceptions"
	redisSeqKey     = "groupguard/interceptions/seq"
	redisTotalKey   = "groupguard/interceptions/total"
)

type RedisInterceptionLog struct {
	Client   *redis.Client
	capacity int
}

func NewRedisInterceptionLog(redisURL string, capacity int) (*RedisInterceptionLog, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	if _, err := rdb.Ping(context.TODO()).Result(); err != nil {
		return nil, err
	}
	return &RedisInterceptionLog{Client: rdb, capacity: capacity}, nil
}

func (l *RedisInterceptionLog) Append(ctx context.Context, entry Entry) (int64, error) {
	id, err := l.Client.Incr(ctx, redisSeqKey).Result()
	if err != nil {
		return 0, err
	}
	entry.ID = id

	raw, err := json.Marshal(&entry)
	if err != nil {
		return 0, fmt.Errorf("encoding interception entry: %w", err)
	}

	// push, trim, and count in a single redis round-trip
	multi := l.Client.Pipeline()
	multi.LPush(ctx, redisEntriesKey, raw)
	multi.LTrim(ctx, redisEntriesKey, 0, int64(l.capacity-1))
	multi.Incr(ctx, redisTotalKey)
	if _, err := multi.Exec(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

func (l *RedisInterceptionLog) List(ctx context.Context, limit int) ([]Entry, error) {
	stop := int64(l.capacity - 1)
	if limit > 0 && int64(limit-1) < stop {
		stop = int64(limit - 1)
	}
	raws, err := l.Client.LRange(ctx, redisEntriesKey, 0, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(raws))
	for _, raw := range raws {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decoding interception entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (l *RedisInterceptionLog) Remove(ctx context.Context, id int64) error {
	raws, err := l.Client.LRange(ctx, redisEntriesKey, 0, int64(l.capacity-1)).Result()
	if err != nil {
		return err
	}
	for _, raw := range raws {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		if e.ID == id {
			return l.Client.LRem(ctx, redisEntriesKey, 1, raw).Err()
		}
	}
	return ErrNotFound
}

func (l *RedisInterceptionLog) Count(ctx context.Context) (int64, error) {
	c, err := l.Client.Get(ctx, redisTotalKey).Int64()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return c, nil
}
