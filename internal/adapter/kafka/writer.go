package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/hiv-forecast-service/internal/config"
	"github.com/couchcryptid/hiv-forecast-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes projection rows to a Kafka topic.
// It implements pipeline.Loader.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured projection topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// Load publishes every projection of the run in a single WriteMessages call.
// Messages are keyed by projection ID so consumers can compact by key.
func (w *Writer) Load(ctx context.Context, run domain.Run) error {
	projections := run.Result.Projections
	if len(projections) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(projections))
	for i := range projections {
		msg, err := serializeToMessage(run, projections[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish projections: %w", err)
	}
	w.logger.Info("projections published", "messages", len(msgs), "run_id", run.ID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a projection into a Kafka message.
func serializeToMessage(run domain.Run, p domain.Projection) (kafkago.Message, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize projection: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(p.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "model", Value: []byte(p.Model)},
			{Key: "run_id", Value: []byte(run.ID)},
			{Key: "generated_at", Value: []byte(run.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
