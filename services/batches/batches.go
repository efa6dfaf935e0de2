// Package batches owns the mass-payment batch lifecycle: aggregation of
// parsed recipients into a pending batch, the pending → processing →
// {complete, failed} transitions, and hand-off of processing batches to the
// payment execution topic. Transition races are settled by the repository's
// conditional updates, so two concurrent Execute calls on one batch cannot
// both win.
package batches

import (
	// Go Internal Packages
	"context"
	"fmt"
	"strings"
	"time"

	// Local Packages
	csvparse "masspay/csvparse"
	errors "masspay/errors"
	models "masspay/models"

	// External Packages
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type BatchRepository interface {
	InsertBatch(ctx context.Context, batch models.MongoBatch) error
	GetBatch(ctx context.Context, batchID string) (models.MongoBatch, error)
	ListBatches(ctx context.Context, requesterID string) ([]models.MongoBatch, error)
	// TransitionStatus conditionally moves a batch from one status to
	// another, returning errors.ErrStaleStatus when the batch is no longer
	// in the expected state.
	TransitionStatus(ctx context.Context, batchID string, from, to models.BatchStatus) error
	// FinishBatch conditionally moves a processing batch to its terminal
	// state, storing transaction hashes and the completion time.
	FinishBatch(ctx context.Context, batchID string, outcome models.BatchStatus, txHashes []string, completedAt *time.Time) error
}

type RecipientPublisher interface {
	PublishRecipients(ctx context.Context, batch *models.BatchPayment) error
}

type SkippedRowQueue interface {
	Send(ctx context.Context, fileName string, rows []models.RowError) error
}

type BatchService struct {
	Logger    *zap.Logger
	Repo      BatchRepository
	Publisher RecipientPublisher
	Skipped   SkippedRowQueue
	now       func() time.Time
}

func NewBatchService(logger *zap.Logger, repo BatchRepository, publisher RecipientPublisher, skipped SkippedRowQueue) *BatchService {
	return &BatchService{Logger: logger, Repo: repo, Publisher: publisher, Skipped: skipped, now: time.Now}
}

// CreateFromCSV parses an uploaded CSV, dead-letters any skipped rows, and
// persists the aggregated batch in pending state. The skipped rows are
// returned alongside the batch so the caller can surface a partial accept.
func (s *BatchService) CreateFromCSV(ctx context.Context, requesterID, fileName string, raw []byte) (*models.BatchPayment, []models.RowError, error) {
	recipients, skipped, err := csvparse.Parse(string(raw))
	if err != nil {
		return nil, nil, err
	}

	if len(skipped) > 0 && s.Skipped != nil {
		if err := s.Skipped.Send(ctx, fileName, skipped); err != nil {
			s.Logger.Error("failed to dead-letter skipped rows", zap.String("file", fileName), zap.Error(err))
		}
	}

	batch, err := s.Aggregate(recipients, fileName, requesterID)
	if err != nil {
		return nil, skipped, err
	}

	if err := s.Repo.InsertBatch(ctx, batch.Transform()); err != nil {
		return nil, skipped, fmt.Errorf("failed to insert batch: %w", err)
	}

	s.Logger.Info("batch created",
		zap.String("batch_id", batch.BatchID),
		zap.Int("recipients", batch.TotalRecipients),
		zap.Int("skipped", len(skipped)),
		zap.String("total_amount", batch.TotalAmount.String()))
	return batch, skipped, nil
}

// Aggregate builds a pending BatchPayment from parsed recipients. The total
// is an exact decimal sum; float drift is not acceptable for money.
func (s *BatchService) Aggregate(recipients []models.RecipientRecord, fileName, requesterID string) (*models.BatchPayment, error) {
	if len(recipients) == 0 {
		return nil, errors.EmptyBatchErr()
	}

	total := decimal.Zero
	for _, r := range recipients {
		total = total.Add(r.Amount)
	}

	now := s.now()
	return &models.BatchPayment{
		BatchID:         NewBatchID(now),
		RequesterID:     requesterID,
		FileName:        fileName,
		Recipients:      recipients,
		TotalRecipients: len(recipients),
		TotalAmount:     total,
		Status:          models.StatusPending,
		CreatedAt:       now,
	}, nil
}

// Execute moves a pending batch to processing and publishes its recipients
// for execution. The pending → processing step is a conditional update, so
// exactly one of any number of concurrent callers succeeds.
func (s *BatchService) Execute(ctx context.Context, batchID string) error {
	err := s.Repo.TransitionStatus(ctx, batchID, models.StatusPending, models.StatusProcessing)
	if err != nil {
		if errors.IsStale(err) {
			return s.transitionConflict(ctx, batchID, models.StatusProcessing)
		}
		return err
	}

	stored, err := s.Repo.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	batch, err := stored.ToBatchPayment()
	if err != nil {
		return errors.E(errors.Internal, "corrupt batch record", err)
	}

	if s.Publisher != nil {
		if err := s.Publisher.PublishRecipients(ctx, &batch); err != nil {
			// The batch cannot be retried from processing; fail it so the
			// caller sees a terminal state instead of a stuck one.
			s.Logger.Error("failed to publish recipients", zap.String("batch_id", batchID), zap.Error(err))
			_ = s.Repo.FinishBatch(ctx, batchID, models.StatusFailed, nil, nil)
			return errors.E(errors.Internal, "failed to queue batch for execution", err)
		}
	}

	s.Logger.Info("batch executing", zap.String("batch_id", batchID), zap.Int("recipients", batch.TotalRecipients))
	return nil
}

// Finish applies a completion notification from the execution service.
// Idempotent: a replay carrying the outcome already applied is a no-op, so
// transaction hashes are never appended twice.
func (s *BatchService) Finish(ctx context.Context, batchID string, outcome models.BatchStatus, txHashes []string) error {
	if !outcome.Terminal() {
		return errors.E(errors.Invalid, fmt.Sprintf("outcome must be terminal, got %q", outcome), nil)
	}

	var completedAt *time.Time
	if outcome == models.StatusComplete {
		t := s.now()
		completedAt = &t
	}

	err := s.Repo.FinishBatch(ctx, batchID, outcome, txHashes, completedAt)
	if err != nil {
		if errors.IsStale(err) {
			current, gerr := s.currentStatus(ctx, batchID)
			if gerr != nil {
				return gerr
			}
			if current == outcome {
				return nil // duplicate notification
			}
			return errors.InvalidTransitionErr(batchID, string(current), string(outcome))
		}
		return err
	}

	s.Logger.Info("batch finished",
		zap.String("batch_id", batchID),
		zap.String("outcome", string(outcome)),
		zap.Int("tx_hashes", len(txHashes)))
	return nil
}

func (s *BatchService) Get(ctx context.Context, batchID string) (*models.BatchPayment, error) {
	stored, err := s.Repo.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	batch, err := stored.ToBatchPayment()
	if err != nil {
		return nil, errors.E(errors.Internal, "corrupt batch record", err)
	}
	return &batch, nil
}

func (s *BatchService) List(ctx context.Context, requesterID string) ([]models.BatchPayment, error) {
	stored, err := s.Repo.ListBatches(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	batches := make([]models.BatchPayment, 0, len(stored))
	for _, m := range stored {
		b, err := m.ToBatchPayment()
		if err != nil {
			return nil, errors.E(errors.Internal, "corrupt batch record", err)
		}
		batches = append(batches, b)
	}
	return batches, nil
}

func (s *BatchService) transitionConflict(ctx context.Context, batchID string, to models.BatchStatus) error {
	current, err := s.currentStatus(ctx, batchID)
	if err != nil {
		return err
	}
	return errors.InvalidTransitionErr(batchID, string(current), string(to))
}

func (s *BatchService) currentStatus(ctx context.Context, batchID string) (models.BatchStatus, error) {
	stored, err := s.Repo.GetBatch(ctx, batchID)
	if err != nil {
		return "", err
	}
	return stored.Status, nil
}

// NewBatchID builds a collision-resistant opaque batch id. Uniqueness is
// additionally enforced by the store's primary key.
func NewBatchID(now time.Time) string {
	return fmt.Sprintf("mp_%d_%s", now.UnixMilli(), uuid.NewString()[:8])
}

// NewInvoiceNumber follows the dashboard's invoice numbering convention.
func NewInvoiceNumber(now time.Time) string {
	return fmt.Sprintf("INV-%d-%s", now.UnixMilli(), strings.ToUpper(uuid.NewString()[:6]))
}
