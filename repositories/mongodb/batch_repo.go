package mongodb

import (
	// Go Internal Packages
	"context"
	stderrors "errors"
	"time"

	// Local Packages
	errors "masspay/errors"
	models "masspay/models"

	// External Packages
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BatchRepository persists mass-payment batches. The batch id is the
// document _id, so duplicate ids are rejected by the primary key instead of
// being trusted to the generator.
type BatchRepository struct {
	client     *mongo.Client
	database   string
	collection string
}

func NewBatchRepository(client *mongo.Client, database string) *BatchRepository {
	return &BatchRepository{client: client, database: database, collection: "mass_payments"}
}

func (r *BatchRepository) coll() *mongo.Collection {
	return r.client.Database(r.database).Collection(r.collection)
}

// EnsureIndexes creates the listing index. Call once at startup.
func (r *BatchRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "requester_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}

func (r *BatchRepository) InsertBatch(ctx context.Context, batch models.MongoBatch) error {
	_, err := r.coll().InsertOne(ctx, batch)
	if mongo.IsDuplicateKeyError(err) {
		return errors.E(errors.Conflict, "batch id already exists", err)
	}
	return err
}

func (r *BatchRepository) GetBatch(ctx context.Context, batchID string) (models.MongoBatch, error) {
	var batch models.MongoBatch
	err := r.coll().FindOne(ctx, bson.M{"_id": batchID}).Decode(&batch)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return models.MongoBatch{}, errors.BatchNotFoundErr(batchID)
	}
	if err != nil {
		return models.MongoBatch{}, err
	}
	return batch, nil
}

// ListBatches returns a requester's batches, newest first.
func (r *BatchRepository) ListBatches(ctx context.Context, requesterID string) ([]models.MongoBatch, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll().Find(ctx, bson.M{"requester_id": requesterID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var batches []models.MongoBatch
	if err := cursor.All(ctx, &batches); err != nil {
		return nil, err
	}
	return batches, nil
}

// TransitionStatus is a compare-and-swap on the status field: the update
// only matches while the batch is still in the expected state, which
// serializes concurrent execute calls without a separate lock.
func (r *BatchRepository) TransitionStatus(ctx context.Context, batchID string, from, to models.BatchStatus) error {
	res, err := r.coll().UpdateOne(ctx,
		bson.M{"_id": batchID, "status": from},
		bson.M{"$set": bson.M{"status": to}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.ErrStaleStatus
	}
	return nil
}

// FinishBatch conditionally moves a processing batch to its terminal state.
// A replayed completion matches nothing and surfaces ErrStaleStatus, which
// the service resolves against the batch's current state.
func (r *BatchRepository) FinishBatch(ctx context.Context, batchID string, outcome models.BatchStatus, txHashes []string, completedAt *time.Time) error {
	set := bson.M{"status": outcome}
	if len(txHashes) > 0 {
		set["transaction_hashes"] = txHashes
	}
	if completedAt != nil {
		set["completed_at"] = *completedAt
	}

	res, err := r.coll().UpdateOne(ctx,
		bson.M{"_id": batchID, "status": models.StatusProcessing},
		bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.ErrStaleStatus
	}
	return nil
}
