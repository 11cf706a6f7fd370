package events

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaPublisher publishes domain events to a Kafka cluster.
type KafkaPublisher struct {
	client *kgo.Client
}

// NewKafkaPublisher connects a producer to the given seed brokers.
func NewKafkaPublisher(brokers []string) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create kafka client")
	}
	return &KafkaPublisher{client: client}, nil
}

// PublishOrderPlaced emits the event keyed by order id so retries for the
// same order land on one partition.
func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, ev OrderPlaced) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}

	record := &kgo.Record{
		Topic: TopicOrderPlaced,
		Key:   []byte(ev.OrderID),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return errors.Wrap(err, "produce order-placed")
	}
	return nil
}

// Close flushes and shuts down the producer.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}
