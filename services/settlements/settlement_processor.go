// Package settlements turns settlement events from the execution service
// into batch lifecycle transitions.
package settlements

import (
	// Go Internal Packages
	"context"
	"fmt"

	// Local Packages
	errors "masspay/errors"
	models "masspay/models"

	// External Packages
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

type BatchFinisher interface {
	Finish(ctx context.Context, batchID string, outcome models.BatchStatus, txHashes []string) error
}

type SettlementProcessor struct {
	Logger  *zap.Logger
	Batches BatchFinisher
}

func NewSettlementProcessor(logger *zap.Logger, batches BatchFinisher) *SettlementProcessor {
	return &SettlementProcessor{Logger: logger, Batches: batches}
}

// ProcessRecords applies each settlement event. Malformed events and
// lifecycle conflicts are logged and dropped: redelivery cannot fix them.
// Repository failures are returned so the poll is not committed and the
// records are retried.
func (p *SettlementProcessor) ProcessRecords(ctx context.Context, records []models.Record) error {
	for _, record := range records {
		var ev models.SettlementEvent
		if err := json.Unmarshal(record.Value, &ev); err != nil {
			p.Logger.Error("failed to unmarshal settlement event", zap.Error(err))
			continue
		}

		outcome := models.BatchStatus(ev.Outcome)
		if !outcome.Terminal() {
			p.Logger.Error("settlement event with non-terminal outcome",
				zap.String("batch_id", ev.BatchID), zap.String("outcome", ev.Outcome))
			continue
		}

		err := p.Batches.Finish(ctx, ev.BatchID, outcome, ev.TransactionHashes)
		switch errors.KindOf(err) {
		case errors.Other:
			if err != nil {
				return fmt.Errorf("failed to finish batch %s: %w", ev.BatchID, err)
			}
		case errors.Conflict, errors.NotFound, errors.Invalid:
			p.Logger.Warn("settlement event dropped",
				zap.String("batch_id", ev.BatchID), zap.Error(err))
		default:
			return fmt.Errorf("failed to finish batch %s: %w", ev.BatchID, err)
		}
	}
	return nil
}
