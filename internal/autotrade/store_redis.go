package autotrade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"ForecastSentinel/internal/model"
)

// DefaultRedisKey is where the state is kept when no key is configured.
const DefaultRedisKey = "forecastsentinel:autotrade"

// RedisStore keeps the state as a JSON string under one key.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

func NewRedisStore(client redis.UniversalClient, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (model.AutotradeState, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.AutotradeState{}, nil
	}
	if err != nil {
		return model.AutotradeState{}, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	var state model.AutotradeState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.AutotradeState{}, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return state, nil
}

func (s *RedisStore) Save(ctx context.Context, state model.AutotradeState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}
