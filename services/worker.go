package services

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"feed-import-service/models"
)

const importQueueKey = "import:queue"

// requeue reports whether a chunk result should put the import back on
// the queue. A skipped chunk means another worker held the advisory
// lock; the import is still live and must not fall off the queue.
func requeue(result *models.ChunkResult) bool {
	return result.Skipped || result.Status == models.ImportStatusProcessing
}

// EnqueueImport pushes an import id onto the background queue. The
// worker drives the job chunk by chunk until it reaches a terminal or
// suspended state.
func EnqueueImport(ctx context.Context, rdb *redis.Client, importID uuid.UUID) error {
	return rdb.RPush(ctx, importQueueKey, importID.String()).Err()
}

// StartImportWorker starts a background worker that consumes import IDs
// from the Redis queue and runs one chunk per dequeue, re-enqueueing the
// job until it stops progressing.
func StartImportWorker(ctx context.Context, rdb *redis.Client, svc *ImportService) {
	if rdb == nil || svc == nil {
		zap.L().Warn("import worker not started: missing dependencies")
		return
	}

	go func() {
		zap.L().Info("import worker started", zap.String("queue", importQueueKey))
		for {
			select {
			case <-ctx.Done():
				zap.L().Info("import worker stopping")
				return
			default:
			}

			// BLPop with no timeout will block until an item is available
			res, err := rdb.BLPop(ctx, 0*time.Second, importQueueKey).Result()
			if err != nil {
				if err == context.Canceled || err == context.DeadlineExceeded || ctx.Err() != nil {
					return
				}
				zap.L().Error("redis BLPop failed", zap.Error(err))
				time.Sleep(500 * time.Millisecond)
				continue
			}
			if len(res) < 2 {
				continue
			}

			importID, err := uuid.Parse(res[1])
			if err != nil {
				zap.L().Error("invalid import id on queue", zap.String("value", res[1]), zap.Error(err))
				continue
			}

			result, err := svc.ProcessChunk(ctx, importID)
			if err != nil {
				zap.L().Error("chunk processing failed", zap.String("import_id", importID.String()), zap.Error(err))
				continue
			}

			// Paused, failed and completed imports leave the queue; an
			// explicit resume or retry re-enqueues them.
			if !requeue(result) {
				zap.L().Info("import left worker queue",
					zap.String("import_id", importID.String()),
					zap.String("status", string(result.Status)))
				continue
			}

			if result.Skipped {
				// Another worker holds the chunk lock; give it a moment
				// before the import circles back.
				time.Sleep(500 * time.Millisecond)
			}
			if err := EnqueueImport(ctx, rdb, importID); err != nil {
				zap.L().Error("re-enqueue failed", zap.String("import_id", importID.String()), zap.Error(err))
			}
		}
	}()
}
