package storage

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis"
)

const redisKeyPrefix = "jokes:seen:"

// redisStore keeps one expiring key per delivered joke; Redis handles expiry.
type redisStore struct {
	client  *redis.Client
	jokeTTL time.Duration
}

func openRedis(addr string, opts Options) (*redisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    opts.RedisPassword,
		DB:          0,
		DialTimeout: 2 * time.Second,
	})
	if err := client.Ping().Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &redisStore{client: client, jokeTTL: opts.JokeTTL}, nil
}

func redisKey(id int64) string {
	return redisKeyPrefix + strconv.FormatInt(id, 10)
}

func (r *redisStore) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

func (r *redisStore) SeenJoke(id int64) (bool, error) {
	n, err := r.client.Exists(redisKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (r *redisStore) MarkJoke(id int64) error {
	if err := r.client.Set(redisKey(id), time.Now().UTC().Unix(), r.jokeTTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
