package kafka

import (
	// Go Internal Packages
	"context"

	// Local Packages
	models "masspay/models"

	// External Packages
	"github.com/goccy/go-json"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

type PublisherConfig struct {
	Brokers []string
	Topic   string
}

// RecipientPublisher produces one RecipientJob per batch recipient to the
// recipients topic. Keying every record by batch id keeps a batch's jobs on
// one partition, in CSV row order.
type RecipientPublisher struct {
	Client *kgo.Client
	Config *PublisherConfig
	Logger *zap.Logger
}

func NewRecipientPublisher(conf *PublisherConfig, logger *zap.Logger) (*RecipientPublisher, error) {
	client, err := kgo.NewClient(kgo.SeedBrokers(conf.Brokers...))
	if err != nil || client == nil {
		return nil, err
	}
	return &RecipientPublisher{Client: client, Config: conf, Logger: logger}, nil
}

func (p *RecipientPublisher) PublishRecipients(ctx context.Context, batch *models.BatchPayment) error {
	records := make([]*kgo.Record, 0, len(batch.Recipients))
	for i, rec := range batch.Recipients {
		job := models.RecipientJob{
			BatchID: batch.BatchID,
			Index:   i,
			Address: rec.Address,
			Amount:  rec.Amount.String(),
			Asset:   rec.Asset,
			Note:    rec.Note,
		}
		value, err := json.Marshal(job)
		if err != nil {
			return err
		}
		records = append(records, &kgo.Record{
			Topic: p.Config.Topic,
			Key:   []byte(batch.BatchID),
			Value: value,
		})
	}

	results := p.Client.ProduceSync(ctx, records...)
	if err := results.FirstErr(); err != nil {
		return err
	}

	p.Logger.Info("published recipient jobs",
		zap.String("batch_id", batch.BatchID),
		zap.Int("count", len(records)))
	return nil
}

func (p *RecipientPublisher) Close() {
	p.Client.Close()
}
