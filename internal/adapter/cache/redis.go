package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/douoai/jijin/internal/domain/model"
)

const latestKey = "latest:gold"

type RedisAdapter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAdapter(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisAdapter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisAdapter{
		client: client,
		ttl:    ttl,
	}, nil
}

func (a *RedisAdapter) Ping(ctx context.Context) error {
	return a.client.Ping(ctx).Err()
}

func (a *RedisAdapter) SetLatest(ctx context.Context, rec model.PriceRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal price: %w", err)
	}

	if err := a.client.Set(ctx, latestKey, data, a.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set latest price in redis: %w", err)
	}
	return nil
}

// SetLatestIfNewer сравнивает и пишет под WATCH. Если ключ поменяли между
// чтением и EXEC, транзакция повторяется.
func (a *RedisAdapter) SetLatestIfNewer(ctx context.Context, rec model.PriceRecord) (bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("failed to marshal price: %w", err)
	}

	var stored bool
	txf := func(tx *redis.Tx) error {
		stored = false

		cur, err := tx.Get(ctx, latestKey).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var cached model.PriceRecord
			// битое значение перезаписываем
			if json.Unmarshal(cur, &cached) == nil && cached.Timestamp > rec.Timestamp {
				return nil
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, latestKey, data, a.ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}

	for {
		err := a.client.Watch(ctx, txf, latestKey)
		if err == nil {
			return stored, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return false, fmt.Errorf("failed to set latest price in redis: %w", err)
		}
		// кто-то успел записать раньше, повторяем
		if ctx.Err() != nil {
			return false, fmt.Errorf("failed to set latest price in redis: %w", ctx.Err())
		}
	}
}

func (a *RedisAdapter) GetLatest(ctx context.Context) (*model.PriceRecord, error) {
	data, err := a.client.Get(ctx, latestKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest price from redis: %w", err)
	}

	var rec model.PriceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal price: %w", err)
	}
	return &rec, nil
}

// Invalidate сбрасывает кеш, например после чистки ретеншном.
func (a *RedisAdapter) Invalidate(ctx context.Context) error {
	if err := a.client.Del(ctx, latestKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate latest price: %w", err)
	}
	return nil
}

func (a *RedisAdapter) Close() error {
	return a.client.Close()
}
