package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lrt-predictor/internal/domain/entity"
)

type RedisRepo struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisRepo(client *redis.Client, ttl time.Duration) *RedisRepo {
	return &RedisRepo{Client: client, TTL: ttl}
}

func historyKey(sessionID string) string {
	return "history:" + sessionID
}

func (r *RedisRepo) Append(ctx context.Context, sessionID string, entry entity.HistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}

	key := historyKey(sessionID)
	pipe := r.Client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if r.TTL > 0 {
		pipe.Expire(ctx, key, r.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append history: %w", err)
	}
	return nil
}

func (r *RedisRepo) List(ctx context.Context, sessionID string) ([]entity.HistoryEntry, error) {
	key := historyKey(sessionID)
	raw, err := r.Client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list history: %w", err)
	}
	if len(raw) > 0 && r.TTL > 0 {
		if err := r.Client.Expire(ctx, key, r.TTL).Err(); err != nil {
			return nil, fmt.Errorf("redis refresh history ttl: %w", err)
		}
	}

	entries := make([]entity.HistoryEntry, 0, len(raw))
	for _, s := range raw {
		var e entity.HistoryEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			return nil, fmt.Errorf("unmarshal history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *RedisRepo) Clear(ctx context.Context, sessionID string) error {
	return r.Client.Del(ctx, historyKey(sessionID)).Err()
}
