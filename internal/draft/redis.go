package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "mailform:draft:"

// RedisStore keeps drafts as JSON values with a TTL that is refreshed on
// every save, so several server instances can share drafts.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore. A zero ttl stores drafts without
// expiry.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// NewRedisClient connects to addr and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return client, nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Draft, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading draft %s: %w", id, err)
	}

	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding draft %s: %w", id, err)
	}
	return &d, nil
}

func (s *RedisStore) Save(ctx context.Context, d *Draft) error {
	d.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding draft %s: %w", d.ID, err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+d.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving draft %s: %w", d.ID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("deleting draft %s: %w", id, err)
	}
	return nil
}
