package redis

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/langowen/azn-rates/internal/entities"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Storage keeps the rate table under a single key and announces every save on a channel.
type Storage struct {
	rdb     redis.UniversalClient
	key     string
	channel string
}

func NewStorage(client redis.UniversalClient, key, channel string) *Storage {
	return &Storage{
		rdb:     client,
		key:     key,
		channel: channel,
	}
}

func InitStorage(ctx context.Context, options *redis.Options, key, channel string) (*Storage, error) {
	const op = "storage.redis.InitStorage"

	redisClient := redis.NewClient(options)

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		_ = redisClient.Close()
		return nil, errors.Wrap(err, op)
	}

	return NewStorage(redisClient, key, channel), nil
}

func (s *Storage) Load(ctx context.Context) (entities.RateTable, error) {
	const op = "storage.redis.Load"

	val, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errors.Wrap(entities.ErrNotFound, op)
	}
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	var rates entities.RateTable
	if err := json.Unmarshal(val, &rates); err != nil {
		return nil, errors.Wrap(err, op)
	}

	return rates, nil
}

func (s *Storage) Save(ctx context.Context, rates entities.RateTable) error {
	const op = "storage.redis.Save"

	data, err := json.Marshal(rates)
	if err != nil {
		return errors.Wrap(err, op)
	}

	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return errors.Wrap(err, op)
	}

	if s.channel != "" {
		if err := s.rdb.Publish(ctx, s.channel, s.key).Err(); err != nil {
			slog.Warn("failed to publish rates update", "op", op, "channel", s.channel, "error", err)
		}
	}

	slog.Debug("rates saved", "op", op, "key", s.key, "currencies", len(rates))

	return nil
}

func (s *Storage) Close() error {
	return s.rdb.Close()
}
