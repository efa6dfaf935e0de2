package redis

import (
	// Go Internal Packages
	"context"
	"fmt"
	"time"

	// Local Packages
	models "masspay/models"

	// External Packages
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// skippedRowTTL keeps dead-lettered rows around long enough for the
// uploader to fix and re-upload, without growing the keyspace forever.
const skippedRowTTL = 7 * 24 * time.Hour

// SkippedRowQueue dead-letters malformed CSV rows under
// "csvrow:{fileName}:{line}" for operator inspection.
type SkippedRowQueue struct {
	client *redis.Client
	logger *zap.Logger
}

func NewSkippedRowQueue(client *redis.Client, logger *zap.Logger) *SkippedRowQueue {
	return &SkippedRowQueue{client: client, logger: logger}
}

func (q *SkippedRowQueue) Send(ctx context.Context, fileName string, rows []models.RowError) error {
	if len(rows) == 0 {
		return nil
	}

	successCount := 0
	for _, row := range rows {
		jsonData, err := json.Marshal(row)
		if err != nil {
			q.logger.Error("failed to marshal skipped row", zap.Error(err))
			continue
		}

		key := fmt.Sprintf("csvrow:%s:%d", fileName, row.Line)
		err = q.client.Set(ctx, key, jsonData, skippedRowTTL).Err()
		if err != nil {
			q.logger.Error("failed to store skipped row", zap.String("key", key), zap.Error(err))
			continue
		}
		successCount++
	}

	if successCount > 0 {
		q.logger.Info("dead-lettered skipped rows", zap.String("file", fileName), zap.Int("count", successCount))
	}
	return nil
}
