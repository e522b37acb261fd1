package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/terroir-match-service/internal/config"
	"github.com/couchcryptid/terroir-match-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces match results to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes match results in a single
// WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, results []domain.MatchResult) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(results))
	for i := range results {
		msg, err := serializeToMessage(results[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a MatchResult into a Kafka message keyed by the
// originating request id, falling back to the result id.
func serializeToMessage(result domain.MatchResult) (kafkago.Message, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize match result: %w", err)
	}
	key := result.RequestID
	if key == "" {
		key = result.ID
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "best_region", Value: []byte(result.BestRegion)},
			{Key: "matched_at", Value: []byte(result.MatchedAt.Format(time.RFC3339))},
		},
	}, nil
}
