package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"draftqa/internal/agent/core"
)

// RedisStore keeps object sets as one JSON blob per user with a TTL, so
// sessions expire on their own and survive process restarts.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(addr, password string, db int, ttl time.Duration) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{client: rdb, ttl: ttl}
}

func objectsKey(user string) string {
	return fmt.Sprintf("objects:%s", user)
}

// GetObjects loads the user's set. A missing key is an empty set, never an
// error.
func (s *RedisStore) GetObjects(ctx context.Context, user string) (core.SessionObjectSet, error) {
	val, err := s.client.Get(ctx, objectsKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return core.SessionObjectSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session objects: %w", err)
	}
	var set core.SessionObjectSet
	if err := json.Unmarshal([]byte(val), &set); err != nil {
		return nil, fmt.Errorf("decoding session objects: %w", err)
	}
	if set == nil {
		set = core.SessionObjectSet{}
	}
	return set, nil
}

// PutObjects replaces the user's whole set and refreshes the TTL.
func (s *RedisStore) PutObjects(ctx context.Context, user string, objects []core.ObjectRecord) (int, error) {
	set := buildSet(objects)
	data, err := json.Marshal(set)
	if err != nil {
		return 0, err
	}
	if err := s.client.Set(ctx, objectsKey(user), data, s.ttl).Err(); err != nil {
		return 0, fmt.Errorf("storing session objects: %w", err)
	}
	return len(set), nil
}

// ClearObjects drops the user's set.
func (s *RedisStore) ClearObjects(ctx context.Context, user string) error {
	if err := s.client.Del(ctx, objectsKey(user)).Err(); err != nil {
		return fmt.Errorf("clearing session objects: %w", err)
	}
	return nil
}
