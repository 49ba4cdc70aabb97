package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const chunkLockTTL = 5 * time.Minute

// ChunkLocker serialises chunk processing per import with a redis
// advisory lock. Concurrent callers for the same import see Acquire
// return false and skip the chunk instead of double-processing it.
type ChunkLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewChunkLocker(client *redis.Client) *ChunkLocker {
	return &ChunkLocker{client: client, ttl: chunkLockTTL}
}

func lockKey(importID uuid.UUID) string {
	return fmt.Sprintf("import:lock:%s", importID)
}

// Acquire takes the per-import lock. The returned token must be passed
// back to Release; a lock that expired and was re-taken by another
// worker is never released by the stale holder.
func (l *ChunkLocker) Acquire(ctx context.Context, importID uuid.UUID) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKey(importID), token, l.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire chunk lock: %w", err)
	}
	return token, ok, nil
}

func (l *ChunkLocker) Release(ctx context.Context, importID uuid.UUID, token string) {
	key := lockKey(importID)
	current, err := l.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			zap.L().Warn("chunk lock release failed", zap.String("import_id", importID.String()), zap.Error(err))
		}
		return
	}
	if current != token {
		return
	}
	if err := l.client.Del(ctx, key).Err(); err != nil {
		zap.L().Warn("chunk lock release failed", zap.String("import_id", importID.String()), zap.Error(err))
	}
}
