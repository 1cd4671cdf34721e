package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/api-sage/stable-wallet/src/internal/logger"
	"github.com/api-sage/stable-wallet/src/internal/metrics"
)

type Publisher interface {
	PublishJSON(ctx context.Context, topic, key string, value any) (int32, int64, error)
	Close() error
}

// NopPublisher drops every event. It is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishJSON(context.Context, string, string, any) (int32, int64, error) {
	return 0, 0, nil
}

func (NopPublisher) Close() error { return nil }

type SyncProducer struct {
	producer sarama.SyncProducer
	metrics  *metrics.Metrics
}

var _ Publisher = (*SyncProducer)(nil)
var _ Publisher = NopPublisher{}

func NewSyncProducer(brokers []string, m *metrics.Metrics) (*SyncProducer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers required")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_7_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 250 * time.Millisecond

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return NewSyncProducerFrom(producer, m), nil
}

// NewSyncProducerFrom wraps an existing sarama producer.
func NewSyncProducerFrom(producer sarama.SyncProducer, m *metrics.Metrics) *SyncProducer {
	return &SyncProducer{producer: producer, metrics: m}
}

func (p *SyncProducer) PublishJSON(ctx context.Context, topic, key string, value any) (int32, int64, error) {
	select {
	case <-ctx.Done():
		return 0, 0, ctx.Err()
	default:
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return 0, 0, fmt.Errorf("marshal kafka payload: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	p.metrics.Publish(topic, err)
	if err != nil {
		return 0, 0, fmt.Errorf("kafka publish failed: %w", err)
	}

	return partition, offset, nil
}

func (p *SyncProducer) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

// Emitter publishes ledger events after a mutation has committed. A failed publish is
// logged and never surfaces to the caller.
type Emitter struct {
	publisher Publisher
	topic     string
	now       func() time.Time
}

func NewEmitter(publisher Publisher, topic string) *Emitter {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Emitter{publisher: publisher, topic: topic, now: time.Now}
}

func (e *Emitter) Emit(ctx context.Context, eventType, accountKey string, data any) {
	if e == nil {
		return
	}

	envelope := NewEnvelope(eventType, accountKey, data, e.now())
	if _, _, err := e.publisher.PublishJSON(ctx, e.topic, accountKey, envelope); err != nil {
		logger.Warn("ledger event publish failed", logger.Fields{
			"eventType":  eventType,
			"eventId":    envelope.EventID,
			"accountKey": accountKey,
			"topic":      e.topic,
			"error":      err.Error(),
		})
	}
}
