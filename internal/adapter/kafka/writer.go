package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/hydro-index-service/internal/config"
	"github.com/couchcryptid/hydro-index-service/internal/domain"
)

// Writer produces index tables to the sink topic.
// It implements pipeline.TablePublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishTables serializes and publishes the recomputed index tables to the
// sink Kafka topic in a single WriteMessages call for efficiency.
func (w *Writer) PublishTables(ctx context.Context, tables []domain.Table) error {
	if len(tables) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(tables))
	for i := range tables {
		msg, err := serializeTableMessage(tables[i])
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

// serializeTableMessage marshals an index table into a Kafka message. The
// key is group plus block kind, so a compacted sink topic retains exactly
// the latest table per group and kind.
func serializeTableMessage(table domain.Table) (kafkago.Message, error) {
	data, err := json.Marshal(table)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize index table: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(table.Group + "|" + string(table.Kind)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "group", Value: []byte(table.Group)},
			{Key: "block_kind", Value: []byte(string(table.Kind))},
			{Key: "fingerprint", Value: []byte(table.Fingerprint)},
			{Key: "computed_at", Value: []byte(table.ComputedAt.Format(time.RFC3339))},
		},
	}, nil
}
