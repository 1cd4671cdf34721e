package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/api-sage/stable-wallet/src/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type stubPublisher struct {
	mu    sync.Mutex
	calls []publishCall
	err   error
}

type publishCall struct {
	topic string
	key   string
	value any
}

func (s *stubPublisher) PublishJSON(_ context.Context, topic, key string, value any) (int32, int64, error) {
	s.mu.Lock()
	s.calls = append(s.calls, publishCall{topic: topic, key: key, value: value})
	s.mu.Unlock()
	if s.err != nil {
		return 0, 0, s.err
	}
	return 0, 0, nil
}

func (s *stubPublisher) Close() error { return nil }

func TestSyncProducerPublishesEnvelope(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var envelope Envelope
		if err := json.Unmarshal(val, &envelope); err != nil {
			return err
		}
		if envelope.EventType != FundsDeposited || envelope.AccountKey != "alice" {
			return fmt.Errorf("unexpected envelope %+v", envelope)
		}
		if envelope.EventID == "" || envelope.EventVersion != EventVersion {
			return fmt.Errorf("envelope missing id or version")
		}
		return nil
	})

	m := metrics.New()
	producer := NewSyncProducerFrom(mock, m)
	defer producer.Close()

	envelope := NewEnvelope(FundsDeposited, "alice", BalanceChanged{Amount: "40"}, time.Now())
	if _, _, err := producer.PublishJSON(context.Background(), "wallet.ledger.events", "alice", envelope); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := testutil.ToFloat64(m.PublishTotal.WithLabelValues("wallet.ledger.events", "success")); got != 1 {
		t.Fatalf("expected one successful publish, got %v", got)
	}
}

func TestSyncProducerReportsFailure(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := NewSyncProducerFrom(mock, nil)
	defer producer.Close()

	_, _, err := producer.PublishJSON(context.Background(), "wallet.ledger.events", "alice", map[string]string{"k": "v"})
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected out of brokers error, got %v", err)
	}
}

func TestSyncProducerHonoursCancelledContext(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	producer := NewSyncProducerFrom(mock, nil)
	defer producer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := producer.PublishJSON(ctx, "wallet.ledger.events", "alice", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestNewSyncProducerRequiresBrokers(t *testing.T) {
	if _, err := NewSyncProducer(nil, nil); err == nil {
		t.Fatal("expected error without brokers")
	}
}

func TestEmitterSwallowsPublishErrors(t *testing.T) {
	stub := &stubPublisher{err: errors.New("broker down")}
	emitter := NewEmitter(stub, "wallet.ledger.events")

	emitter.Emit(context.Background(), TransferCompleted, "alice", TransferRecorded{Index: 0, Sender: "alice", Receiver: "bob", Amount: "0.05"})

	if len(stub.calls) != 1 {
		t.Fatalf("expected one publish attempt, got %d", len(stub.calls))
	}
	call := stub.calls[0]
	if call.topic != "wallet.ledger.events" || call.key != "alice" {
		t.Fatalf("unexpected publish call %+v", call)
	}
	envelope, ok := call.value.(Envelope)
	if !ok {
		t.Fatalf("expected Envelope, got %T", call.value)
	}
	if envelope.EventType != TransferCompleted {
		t.Fatalf("unexpected event type %s", envelope.EventType)
	}
}

func TestNilEmitterIsNoop(t *testing.T) {
	var emitter *Emitter
	emitter.Emit(context.Background(), AccountRegistered, "alice", nil)

	NewEmitter(nil, "topic").Emit(context.Background(), AccountRegistered, "alice", nil)
}
