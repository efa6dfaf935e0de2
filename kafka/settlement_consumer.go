package kafka

import (
	// Go Internal Packages
	"context"
	"errors"
	"fmt"

	// Local Packages
	models "masspay/models"

	// External Packages
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
)

type ConsumerConfig struct {
	Brokers        []string
	Name           string
	Topic          string
	RecordsPerPoll int
}

// SettlementProcessor handles a poll's worth of settlement records. An error
// return leaves the records uncommitted so they are polled again.
type SettlementProcessor interface {
	ProcessRecords(ctx context.Context, records []models.Record) error
}

// Consumer polls the settlements topic for completion notifications coming
// back from the payment execution service.
type Consumer struct {
	Client    *kgo.Client
	Config    *ConsumerConfig
	Processor SettlementProcessor
	Logger    *zap.Logger
}

// NewSettlementConsumer creates the consumer; call Poll to start consuming.
func NewSettlementConsumer(conf *ConsumerConfig, logger *zap.Logger, processor SettlementProcessor, metrics *kprom.Metrics) (*Consumer, error) {
	c := &Consumer{Config: conf, Processor: processor, Logger: logger}

	opts := []kgo.Opt{
		kgo.SeedBrokers(conf.Brokers...),
		kgo.ConsumerGroup(conf.Name),
		kgo.ConsumeTopics(conf.Topic),
		kgo.WithHooks(metrics),
		kgo.DisableAutoCommit(),
		kgo.BlockRebalanceOnPoll(),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil || client == nil {
		return nil, err
	}

	c.Client = client
	return c, nil
}

// Poll polls for records from the kafka broker until ctx is canceled.
// Records are committed only after the processor accepts them.
func (c *Consumer) Poll(ctx context.Context) error {
	defer c.Client.Close()

	consumerName := c.Config.Name
	recordsPerPoll := c.Config.RecordsPerPoll

	for {
		if ctx.Err() != nil {
			c.Logger.Warn("polling stopped: context canceled")
			return ctx.Err()
		}

		c.Logger.Info(fmt.Sprintf("%s: polling for records", consumerName))
		fetches := c.Client.PollRecords(ctx, recordsPerPoll)

		if fetches.IsClientClosed() {
			return errors.New("kafka client closed")
		}
		if errors.Is(fetches.Err0(), context.Canceled) {
			return errors.New("context got canceled")
		}

		records := make([]models.Record, len(fetches.Records()))
		for idx, record := range fetches.Records() {
			records[idx] = models.Record{
				Key:   record.Key,
				Value: record.Value,
				Topic: record.Topic,
			}
		}

		if err := c.Processor.ProcessRecords(ctx, records); err != nil {
			c.Logger.Error("failed to process settlement records", zap.Error(err))
			continue // re-polled next iteration, not committed
		}

		_ = c.Client.CommitRecords(ctx, fetches.Records()...)
	}
}
