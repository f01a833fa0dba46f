package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/radar-refl-stats/internal/config"
	"github.com/couchcryptid/radar-refl-stats/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces run summaries to a Kafka topic.
// It implements pipeline.Notifier.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured notification topic.
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

// PublishSummary serializes and publishes one run summary, keyed by run id.
func (p *Publisher) PublishSummary(ctx context.Context, summary domain.RunSummary) error {
	msg, err := serializeToMessage(summary)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish run summary: %w", err)
	}
	p.logger.Debug("run summary published", "run_id", summary.RunID, "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a RunSummary into a Kafka message.
func serializeToMessage(summary domain.RunSummary) (kafkago.Message, error) {
	data, err := json.Marshal(summary)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize run summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(summary.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "year", Value: []byte(strconv.Itoa(summary.Year))},
			{Key: "state", Value: []byte(summary.State)},
			{Key: "finished_at", Value: []byte(summary.FinishedAt.Format(time.RFC3339))},
		},
	}, nil
}
