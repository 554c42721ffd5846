package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/emwin-ingest/internal/config"
	"github.com/couchcryptid/emwin-ingest/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher announces committed bulletins on a Kafka topic, keyed by filename.
// It implements pipeline.Publisher.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured bulletin topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish sends one message per bulletin in a single WriteMessages call.
func (p *Publisher) Publish(ctx context.Context, bulletins []domain.BulletinFile) error {
	if len(bulletins) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(bulletins))
	for i := range bulletins {
		msg, err := serializeToMessage(bulletins[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d bulletins: %w", len(msgs), err)
	}
	p.logger.Debug("bulletins published", "count", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func serializeToMessage(b domain.BulletinFile) (kafkago.Message, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize bulletin %s: %w", b.Filename, err)
	}
	return kafkago.Message{
		Key:   []byte(b.Filename),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "station", Value: []byte(b.Originator)},
			{Key: "product", Value: []byte(b.ProductCode)},
			{Key: "bulletin_timestamp", Value: []byte(b.BulletinTimestamp.Format(time.RFC3339))},
		},
	}, nil
}
