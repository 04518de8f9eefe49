// Package events publishes best-effort order notifications to Kafka. A
// failed or missing broker never affects the outcome of the operation that
// emitted the event.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/xenking/checkout-core/internal/domain/order"
)

// Config holds the Kafka connection settings. Empty Brokers disables
// publishing entirely.
type Config struct {
	Brokers []string
	Topic   string
}

// message is the JSON payload written per event.
type message struct {
	Type    string       `json:"type"`
	Order   *order.Order `json:"order"`
	EmitAt  time.Time    `json:"emitAt"`
	Version int          `json:"version"`
}

// Publisher writes order events through an async kafka writer. Publish
// returns as soon as the message is enqueued; delivery errors are logged by
// the writer completion callback.
type Publisher struct {
	writer *kafka.Writer
}

var _ order.EventPublisher = (*Publisher)(nil)

// New creates a Publisher, or nil when no brokers are configured. A nil
// *Publisher is a valid no-op publisher.
func New(lg *zap.Logger, cfg Config) *Publisher {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				lg.Warn("order event delivery failed",
					zap.Int("messages", len(messages)), zap.Error(err))
			}
		},
	}
	return &Publisher{writer: w}
}

// Publish enqueues the event keyed by order id so per-order ordering is
// preserved within a partition. Errors are logged and swallowed.
func (p *Publisher) Publish(ctx context.Context, evt order.Event) {
	if p == nil {
		return
	}

	payload, err := json.Marshal(message{
		Type:    evt.Type,
		Order:   evt.Order,
		EmitAt:  time.Now().UTC(),
		Version: 1,
	})
	if err != nil {
		zctx.From(ctx).Warn("encode order event", zap.Error(err))
		return
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.Order.ID),
		Value: payload,
	})
	if err != nil {
		zctx.From(ctx).Warn("enqueue order event",
			zap.String("type", evt.Type), zap.Error(err))
	}
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
