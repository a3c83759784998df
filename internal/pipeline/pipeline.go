package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/localized-events-etl/internal/domain"
	"github.com/couchcryptid/localized-events-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

// PrefixHeader on a source message overrides the default id prefix for
// that batch.
const PrefixHeader = "event_id_prefix"

// BatchExtractor reads up to batchSize source messages.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.SourceMessage, error)
}

// BatchNormalizer turns one localization document into output rows.
type BatchNormalizer interface {
	Normalize(data []byte, prefix string) (Result, error)
}

// BatchLoader writes normalized events to a destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.NormalizedEvent) error
}

// FanOut loads the same events into several destinations in order,
// stopping at the first failure.
type FanOut []BatchLoader

func (f FanOut) LoadBatch(ctx context.Context, events []domain.NormalizedEvent) error {
	for _, l := range f {
		if err := l.LoadBatch(ctx, events); err != nil {
			return err
		}
	}
	return nil
}

// Pipeline orchestrates the extract-normalize-load loop over a stream of
// localization documents. Each message is one complete batch.
type Pipeline struct {
	extractor  BatchExtractor
	normalizer BatchNormalizer
	loader     BatchLoader
	logger     *slog.Logger
	metrics    *observability.Metrics
	clock      clockwork.Clock
	ready      atomic.Bool
	batchSize  int
	prefix     string
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, n BatchNormalizer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int, prefix string) *Pipeline {
	return &Pipeline{
		extractor:  e,
		normalizer: n,
		loader:     l,
		logger:     logger,
		metrics:    metrics,
		clock:      clockwork.NewRealClock(),
		batchSize:  batchSize,
		prefix:     prefix,
	}
}

// SetClock replaces the time source used for retry backoff.
func (p *Pipeline) SetClock(c clockwork.Clock) {
	p.clock = c
}

// CheckReadiness returns nil if the pipeline has processed at least one batch,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any batches yet")
	}
	return nil
}

// Run executes the ETL loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize, "prefix", p.prefix)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one extract-normalize-load cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	msgs, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(msgs) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.MessagesConsumed.Add(float64(len(msgs)))
	*backoff = 200 * time.Millisecond

	return p.normalizeAndLoad(ctx, msgs, backoff, maxBackoff)
}

// normalizeAndLoad normalizes each message, loads the events of every
// successful message in one call, and commits offsets. A message that fails
// normalization is logged, committed, and skipped as a whole.
func (p *Pipeline) normalizeAndLoad(ctx context.Context, msgs []domain.SourceMessage, backoff *time.Duration, maxBackoff time.Duration) bool {
	var events []domain.NormalizedEvent
	ok := make([]domain.SourceMessage, 0, len(msgs))

	for _, msg := range msgs {
		res, err := p.normalizer.Normalize(msg.Value, p.prefixFor(msg))
		if err != nil {
			p.logger.Warn("normalize failed, skipping batch",
				"error", err,
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			p.commitOffset(ctx, msg)
			continue
		}
		events = append(events, res.Events...)
		ok = append(ok, msg)
	}

	if len(ok) == 0 {
		return true
	}

	if len(events) > 0 {
		// Offsets are committed only once the batch is loaded, so a failed
		// load is retried in place rather than skipped.
		for {
			err := p.loader.LoadBatch(ctx, events)
			if err == nil {
				break
			}
			p.logger.Error("load batch failed", "error", err, "events", len(events))
			p.metrics.BatchFailures.WithLabelValues("load").Inc()
			if !p.backoffOrStop(ctx, backoff, maxBackoff) {
				return false
			}
		}
		p.metrics.MessagesProduced.Add(float64(len(events)))
	}

	for _, msg := range ok {
		p.commitOffset(ctx, msg)
	}
	p.ready.Store(true)
	return true
}

func (p *Pipeline) prefixFor(msg domain.SourceMessage) string {
	if v, ok := msg.Headers[PrefixHeader]; ok {
		return v
	}
	return p.prefix
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, p.clock, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, msg domain.SourceMessage) {
	if msg.Commit == nil {
		return
	}
	if err := msg.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
