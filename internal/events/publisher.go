package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher writes platform events to Kafka. A nil Publisher is valid
// and drops everything, so event publishing stays optional.
type Publisher struct {
	slips    *kafka.Writer
	deposits *kafka.Writer
}

// NewPublisher builds writers for both topics against one broker address.
// Returns nil when brokers is empty (publishing disabled).
func NewPublisher(brokers string) *Publisher {
	if brokers == "" {
		return nil
	}
	return &Publisher{
		slips:    newWriter(brokers, TopicSlipPlaced),
		deposits: newWriter(brokers, TopicDepositSettled),
	}
}

func newWriter(brokers, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

// Close flushes and closes both writers.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if err := p.slips.Close(); err != nil {
		return err
	}
	return p.deposits.Close()
}

// PublishSlipPlaced emits a slip acceptance. Best effort: failures are
// logged, never propagated to the user-facing flow.
func (p *Publisher) PublishSlipPlaced(ctx context.Context, e SlipPlaced) {
	if p == nil {
		return
	}
	e.TsUnixMs = time.Now().UnixMilli()
	p.write(ctx, p.slips, e.SlipID, e)
}

// PublishDepositSettled emits a terminal deposit transition.
func (p *Publisher) PublishDepositSettled(ctx context.Context, e DepositSettled) {
	if p == nil {
		return
	}
	e.TsUnixMs = time.Now().UnixMilli()
	p.write(ctx, p.deposits, e.DepositID, e)
}

func (p *Publisher) write(ctx context.Context, w *kafka.Writer, key string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		zap.L().Warn("encode event", zap.Error(err))
		return
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: b,
		Time:  time.Now(),
	}
	if err := w.WriteMessages(ctx, msg); err != nil {
		zap.L().Warn("publish event failed",
			zap.String("topic", w.Topic), zap.Error(fmt.Errorf("write kafka message: %w", err)))
	}
}
