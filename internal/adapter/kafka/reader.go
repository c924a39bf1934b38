package kafka

import (
	"context"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/hydro-index-service/internal/config"
	"github.com/couchcryptid/hydro-index-service/internal/domain"
)

// Reader consumes raw observation messages from the source topic as part of
// a consumer group. It implements pipeline.BatchExtractor.
type Reader struct {
	reader    *kafkago.Reader
	logger    *slog.Logger
	flushWait time.Duration
}

// NewReader creates a Kafka consumer for the configured source topic.
// Offsets are committed explicitly through RawObservation.Commit, never
// automatically.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaSourceTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return &Reader{reader: r, logger: logger, flushWait: cfg.BatchFlushInterval}
}

// ExtractBatch reads up to batchSize messages. The first message blocks on
// ctx; once one has arrived the batch closes after the flush interval, so a
// slow trickle of observations still flows through.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawObservation, error) {
	first, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	batch := []domain.RawObservation{r.withCommit(first)}

	deadline, cancel := context.WithTimeout(ctx, r.flushWait)
	defer cancel()

	for len(batch) < batchSize {
		msg, err := r.reader.FetchMessage(deadline)
		if err != nil {
			break // flush interval elapsed or ctx cancelled
		}
		batch = append(batch, r.withCommit(msg))
	}
	return batch, nil
}

func (r *Reader) withCommit(msg kafkago.Message) domain.RawObservation {
	raw := mapMessageToRawObservation(msg)
	raw.Commit = func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msg)
	}
	return raw
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessageToRawObservation copies the Kafka message fields the pipeline
// cares about into the transport-neutral raw form.
func mapMessageToRawObservation(msg kafkago.Message) domain.RawObservation {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawObservation{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
