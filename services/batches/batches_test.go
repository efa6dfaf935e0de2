package batches

import (
	// Go Internal Packages
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	// Local Packages
	errors "masspay/errors"
	models "masspay/models"

	// External Packages
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRepo implements BatchRepository in memory. The mutex makes the
// conditional updates atomic, mirroring the store's compare-and-swap.
type fakeRepo struct {
	mu      sync.Mutex
	batches map[string]models.MongoBatch
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{batches: make(map[string]models.MongoBatch)}
}

func (r *fakeRepo) InsertBatch(_ context.Context, batch models.MongoBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.batches[batch.BatchID]; ok {
		return errors.E(errors.Conflict, "batch id already exists", nil)
	}
	r.batches[batch.BatchID] = batch
	return nil
}

func (r *fakeRepo) GetBatch(_ context.Context, batchID string) (models.MongoBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch, ok := r.batches[batchID]
	if !ok {
		return models.MongoBatch{}, errors.BatchNotFoundErr(batchID)
	}
	return batch, nil
}

func (r *fakeRepo) ListBatches(_ context.Context, requesterID string) ([]models.MongoBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.MongoBatch
	for _, b := range r.batches {
		if b.RequesterID == requesterID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeRepo) TransitionStatus(_ context.Context, batchID string, from, to models.BatchStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch, ok := r.batches[batchID]
	if !ok || batch.Status != from {
		return errors.ErrStaleStatus
	}
	batch.Status = to
	r.batches[batchID] = batch
	return nil
}

func (r *fakeRepo) FinishBatch(_ context.Context, batchID string, outcome models.BatchStatus, txHashes []string, completedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch, ok := r.batches[batchID]
	if !ok || batch.Status != models.StatusProcessing {
		return errors.ErrStaleStatus
	}
	batch.Status = outcome
	if len(txHashes) > 0 {
		batch.TransactionHashes = txHashes
	}
	batch.CompletedAt = completedAt
	r.batches[batchID] = batch
	return nil
}

type fakePublisher struct {
	mu      sync.Mutex
	batches []string
	err     error
}

func (p *fakePublisher) PublishRecipients(_ context.Context, batch *models.BatchPayment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, batch.BatchID)
	return nil
}

type fakeSkippedQueue struct {
	rows []models.RowError
}

func (q *fakeSkippedQueue) Send(_ context.Context, _ string, rows []models.RowError) error {
	q.rows = append(q.rows, rows...)
	return nil
}

func newTestService(repo BatchRepository, pub RecipientPublisher, skipped SkippedRowQueue) *BatchService {
	s := NewBatchService(zap.NewNop(), repo, pub, skipped)
	s.now = func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }
	return s
}

func recipients(amounts ...string) []models.RecipientRecord {
	out := make([]models.RecipientRecord, len(amounts))
	for i, a := range amounts {
		out[i] = models.RecipientRecord{
			Address: "0xADDR",
			Amount:  decimal.RequireFromString(a),
			Asset:   "USDC",
		}
	}
	return out
}

func TestAggregate(t *testing.T) {
	s := newTestService(newFakeRepo(), &fakePublisher{}, nil)

	batch, err := s.Aggregate(recipients("1000", "2500"), "payroll.csv", "user-1")
	require.NoError(t, err)

	require.Equal(t, 2, batch.TotalRecipients)
	require.True(t, batch.TotalAmount.Equal(decimal.RequireFromString("3500")), "got %s", batch.TotalAmount)
	require.Equal(t, models.StatusPending, batch.Status)
	require.Equal(t, "payroll.csv", batch.FileName)
	require.Equal(t, "user-1", batch.RequesterID)
	require.True(t, strings.HasPrefix(batch.BatchID, "mp_"))
	require.Equal(t, s.now(), batch.CreatedAt)
	require.Nil(t, batch.CompletedAt)
}

func TestAggregateExactDecimalSum(t *testing.T) {
	s := newTestService(newFakeRepo(), &fakePublisher{}, nil)

	batch, err := s.Aggregate(recipients("0.1", "0.2"), "f.csv", "u")
	require.NoError(t, err)
	require.Equal(t, "0.3", batch.TotalAmount.String())
}

func TestAggregateEmptyBatch(t *testing.T) {
	s := newTestService(newFakeRepo(), &fakePublisher{}, nil)

	_, err := s.Aggregate(nil, "f.csv", "u")
	require.Error(t, err)
	require.Equal(t, errors.Invalid, errors.KindOf(err))
}

func TestBatchIDsAreUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewBatchID(now)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestCreateFromCSV(t *testing.T) {
	repo := newFakeRepo()
	skippedQueue := &fakeSkippedQueue{}
	s := newTestService(repo, &fakePublisher{}, skippedQueue)

	csv := "address,amount,asset,note\n" +
		"0xAAA,1000,USDC,Team payment\n" +
		"bad,row\n" +
		"0xBBB,2500,USDC,Contractor fee\n"

	batch, skipped, err := s.CreateFromCSV(context.Background(), "user-1", "payroll.csv", []byte(csv))
	require.NoError(t, err)
	require.Equal(t, 2, batch.TotalRecipients)
	require.Len(t, skipped, 1)
	require.Len(t, skippedQueue.rows, 1)

	stored, err := s.Get(context.Background(), batch.BatchID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, stored.Status)
	require.True(t, stored.TotalAmount.Equal(decimal.RequireFromString("3500")))
}

func TestCreateFromCSVAllRowsSkipped(t *testing.T) {
	s := newTestService(newFakeRepo(), &fakePublisher{}, &fakeSkippedQueue{})

	csv := "address,amount\nbad,row,extra\n"
	_, skipped, err := s.CreateFromCSV(context.Background(), "u", "f.csv", []byte(csv))
	require.Error(t, err)
	require.Equal(t, errors.Invalid, errors.KindOf(err))
	require.Len(t, skipped, 1)
}

func seedBatch(t *testing.T, s *BatchService, repo *fakeRepo) *models.BatchPayment {
	t.Helper()
	batch, err := s.Aggregate(recipients("100", "200"), "f.csv", "user-1")
	require.NoError(t, err)
	require.NoError(t, repo.InsertBatch(context.Background(), batch.Transform()))
	return batch
}

func TestExecuteHappyPath(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	s := newTestService(repo, pub, nil)
	batch := seedBatch(t, s, repo)

	require.NoError(t, s.Execute(context.Background(), batch.BatchID))

	stored, err := s.Get(context.Background(), batch.BatchID)
	require.NoError(t, err)
	require.Equal(t, models.StatusProcessing, stored.Status)
	require.Equal(t, []string{batch.BatchID}, pub.batches)
}

func TestExecuteTwiceIsRejected(t *testing.T) {
	repo := newFakeRepo()
	s := newTestService(repo, &fakePublisher{}, nil)
	batch := seedBatch(t, s, repo)

	require.NoError(t, s.Execute(context.Background(), batch.BatchID))

	err := s.Execute(context.Background(), batch.BatchID)
	require.Error(t, err)
	require.Equal(t, errors.Conflict, errors.KindOf(err))
}

func TestExecuteUnknownBatch(t *testing.T) {
	s := newTestService(newFakeRepo(), &fakePublisher{}, nil)

	err := s.Execute(context.Background(), "mp_missing")
	require.Error(t, err)
	require.Equal(t, errors.NotFound, errors.KindOf(err))
}

func TestConcurrentExecuteSingleWinner(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	s := newTestService(repo, pub, nil)
	batch := seedBatch(t, s, repo)

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Execute(context.Background(), batch.BatchID)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			require.Equal(t, errors.Conflict, errors.KindOf(err))
		}
	}
	require.Equal(t, 1, wins)
	require.Len(t, pub.batches, 1)
}

func TestExecutePublishFailureFailsBatch(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{err: context.DeadlineExceeded}
	s := newTestService(repo, pub, nil)
	batch := seedBatch(t, s, repo)

	err := s.Execute(context.Background(), batch.BatchID)
	require.Error(t, err)
	require.Equal(t, errors.Internal, errors.KindOf(err))

	stored, gerr := s.Get(context.Background(), batch.BatchID)
	require.NoError(t, gerr)
	require.Equal(t, models.StatusFailed, stored.Status)
}

func TestFinishBeforeExecuteIsRejected(t *testing.T) {
	repo := newFakeRepo()
	s := newTestService(repo, &fakePublisher{}, nil)
	batch := seedBatch(t, s, repo)

	err := s.Finish(context.Background(), batch.BatchID, models.StatusComplete, nil)
	require.Error(t, err)
	require.Equal(t, errors.Conflict, errors.KindOf(err))
}

func TestFinishComplete(t *testing.T) {
	repo := newFakeRepo()
	s := newTestService(repo, &fakePublisher{}, nil)
	batch := seedBatch(t, s, repo)
	require.NoError(t, s.Execute(context.Background(), batch.BatchID))

	hashes := []string{"0xhash1", "0xhash2"}
	require.NoError(t, s.Finish(context.Background(), batch.BatchID, models.StatusComplete, hashes))

	stored, err := s.Get(context.Background(), batch.BatchID)
	require.NoError(t, err)
	require.Equal(t, models.StatusComplete, stored.Status)
	require.Equal(t, hashes, stored.TransactionHashes)
	require.NotNil(t, stored.CompletedAt)
	require.Equal(t, s.now(), *stored.CompletedAt)
}

func TestFinishFailedLeavesNoCompletedAt(t *testing.T) {
	repo := newFakeRepo()
	s := newTestService(repo, &fakePublisher{}, nil)
	batch := seedBatch(t, s, repo)
	require.NoError(t, s.Execute(context.Background(), batch.BatchID))

	require.NoError(t, s.Finish(context.Background(), batch.BatchID, models.StatusFailed, nil))

	stored, err := s.Get(context.Background(), batch.BatchID)
	require.NoError(t, err)
	require.Equal(t, models.StatusFailed, stored.Status)
	require.Nil(t, stored.CompletedAt)
}

func TestFinishTwiceConflictingOutcome(t *testing.T) {
	repo := newFakeRepo()
	s := newTestService(repo, &fakePublisher{}, nil)
	batch := seedBatch(t, s, repo)
	require.NoError(t, s.Execute(context.Background(), batch.BatchID))
	require.NoError(t, s.Finish(context.Background(), batch.BatchID, models.StatusComplete, nil))

	err := s.Finish(context.Background(), batch.BatchID, models.StatusFailed, nil)
	require.Error(t, err)
	require.Equal(t, errors.Conflict, errors.KindOf(err))
}

func TestFinishReplayIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	s := newTestService(repo, &fakePublisher{}, nil)
	batch := seedBatch(t, s, repo)
	require.NoError(t, s.Execute(context.Background(), batch.BatchID))

	hashes := []string{"0xhash1"}
	require.NoError(t, s.Finish(context.Background(), batch.BatchID, models.StatusComplete, hashes))
	// Same notification delivered again.
	require.NoError(t, s.Finish(context.Background(), batch.BatchID, models.StatusComplete, hashes))

	stored, err := s.Get(context.Background(), batch.BatchID)
	require.NoError(t, err)
	require.Equal(t, hashes, stored.TransactionHashes)
}

func TestFinishRejectsNonTerminalOutcome(t *testing.T) {
	s := newTestService(newFakeRepo(), &fakePublisher{}, nil)

	err := s.Finish(context.Background(), "mp_x", models.StatusPending, nil)
	require.Error(t, err)
	require.Equal(t, errors.Invalid, errors.KindOf(err))
}

func TestListReturnsOnlyRequestersBatches(t *testing.T) {
	repo := newFakeRepo()
	s := newTestService(repo, &fakePublisher{}, nil)

	mine, err := s.Aggregate(recipients("10"), "a.csv", "user-1")
	require.NoError(t, err)
	require.NoError(t, repo.InsertBatch(context.Background(), mine.Transform()))

	theirs, err := s.Aggregate(recipients("20"), "b.csv", "user-2")
	require.NoError(t, err)
	require.NoError(t, repo.InsertBatch(context.Background(), theirs.Transform()))

	list, err := s.List(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, mine.BatchID, list[0].BatchID)
}
