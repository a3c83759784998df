package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/localized-events-etl/internal/config"
	"github.com/couchcryptid/localized-events-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Reader consumes localization documents from a Kafka topic.
// It implements pipeline.BatchExtractor.
type Reader struct {
	reader        *kafkago.Reader
	logger        *slog.Logger
	flushInterval time.Duration
}

// NewReader creates a consumer-group reader for the configured source topic.
// Offsets are committed explicitly through SourceMessage.Commit.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaSourceTopic,
		GroupID:     cfg.KafkaGroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	return &Reader{reader: r, logger: logger, flushInterval: cfg.BatchFlushInterval}
}

// ExtractBatch fetches up to batchSize messages. It returns early with a
// partial (possibly empty) batch once the flush interval elapses.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.SourceMessage, error) {
	fetchCtx := ctx
	if r.flushInterval > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, r.flushInterval)
		defer cancel()
	}

	msgs := make([]domain.SourceMessage, 0, batchSize)
	for len(msgs) < batchSize {
		m, err := r.reader.FetchMessage(fetchCtx)
		if err != nil {
			if ctx.Err() != nil {
				return msgs, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return msgs, fmt.Errorf("fetch message: %w", err)
		}
		msgs = append(msgs, r.mapMessageToSourceMessage(m))
	}

	if len(msgs) > 0 {
		r.logger.Debug("extracted batch", "messages", len(msgs))
	}
	return msgs, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

func (r *Reader) mapMessageToSourceMessage(m kafkago.Message) domain.SourceMessage {
	msg := mapMessageToSourceMessage(m)
	msg.Commit = func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, m)
	}
	return msg
}

// mapMessageToSourceMessage copies a Kafka message into the domain type.
func mapMessageToSourceMessage(m kafkago.Message) domain.SourceMessage {
	headers := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.SourceMessage{
		Key:       m.Key,
		Value:     m.Value,
		Headers:   headers,
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Timestamp: m.Time,
	}
}
