// Package notify streams outbound messages of the exchange to kafka.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	xchg "github.com/0x5487/pricexchg"
)

// Writer is the subset of *kafka.Writer used by Publisher.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes every outbound message as one kafka record keyed by its
// destination address, so messages to one address keep their order.
type Publisher struct {
	writer  Writer
	timeout time.Duration
	logger  *zap.Logger
	kinds   map[xchg.MessageKind]bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithKinds restricts publishing to the given message kinds.
func WithKinds(kinds ...xchg.MessageKind) Option {
	return func(p *Publisher) {
		p.kinds = make(map[xchg.MessageKind]bool, len(kinds))
		for _, k := range kinds {
			p.kinds[k] = true
		}
	}
}

// WithLogger sets the logger used to report write failures.
func WithLogger(l *zap.Logger) Option {
	return func(p *Publisher) {
		p.logger = l
	}
}

// WithTimeout bounds each batch write.
func WithTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		p.timeout = d
	}
}

// NewPublisher creates a publisher writing to topic on brokers.
func NewPublisher(brokers []string, topic string, opts ...Option) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return NewPublisherWithWriter(w, opts...)
}

// NewPublisherWithWriter creates a publisher on top of an existing writer.
func NewPublisherWithWriter(w Writer, opts ...Option) *Publisher {
	p := &Publisher{
		writer:  w,
		timeout: 5 * time.Second,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish implements xchg.Publisher. The batch is encoded before Publish
// returns and written synchronously.
func (p *Publisher) Publish(msgs ...xchg.Message) {
	records := make([]kafka.Message, 0, len(msgs))
	for i := range msgs {
		msg := &msgs[i]
		if p.kinds != nil && !p.kinds[msg.Kind] {
			continue
		}
		val, err := json.Marshal(msg)
		if err != nil {
			p.logger.Error("failed to encode message", zap.String("kind", string(msg.Kind)), zap.Error(err))
			continue
		}
		records = append(records, kafka.Message{
			Key:   []byte(msg.Dest),
			Value: val,
			Headers: []kafka.Header{
				{Key: "kind", Value: []byte(msg.Kind)},
				{Key: "src", Value: []byte(msg.Src)},
			},
		})
	}
	if len(records) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, records...); err != nil {
		p.logger.Error("kafka publish error", zap.Int("count", len(records)), zap.Error(err))
	}
}

// Close shuts down the kafka writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}
