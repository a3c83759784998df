package pipeline

import (
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/localized-events-etl/internal/domain"
	"github.com/couchcryptid/localized-events-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Result is the outcome of normalizing one localization document.
type Result struct {
	Events     []domain.NormalizedEvent
	Filtered   int // events removed by the residual filter
	Degenerate int // events whose id has an empty timestamp segment
}

// Normalizer runs the parse, load, and project stages over one complete
// document. It holds no per-batch state and is safe for concurrent use.
type Normalizer struct {
	opts    domain.LoadOptions
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
}

// NewNormalizer creates a Normalizer. Pass a nil clock to use real time.
func NewNormalizer(opts domain.LoadOptions, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Normalizer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Normalizer{opts: opts, logger: logger, metrics: metrics, clock: clock}
}

// Normalize converts a raw document into output rows. Any parse or schema
// error rejects the whole batch.
func (n *Normalizer) Normalize(data []byte, prefix string) (Result, error) {
	start := n.clock.Now()

	raw, err := domain.ParseDocument(data)
	if err != nil {
		n.fail(err)
		return Result{}, err
	}

	batch, err := domain.LoadBatch(raw, n.opts)
	if err != nil {
		n.fail(err)
		return Result{}, err
	}

	events := domain.Project(prefix, batch)
	res := Result{Events: events, Filtered: len(raw) - batch.Len()}
	for _, ie := range batch.Indexed() {
		if domain.IsDegenerateTimestamp(ie.Event.StartTimestamp) {
			res.Degenerate++
			n.logger.Warn("timestamp too short for id derivation",
				"index", ie.Index,
				"start_timestamp", ie.Event.StartTimestamp.String(),
				"event_id", events[ie.Index].EventID,
			)
		}
	}

	n.metrics.BatchesProcessed.Inc()
	n.metrics.EventsNormalized.Add(float64(len(events)))
	n.metrics.EventsFiltered.Add(float64(res.Filtered))
	n.metrics.DegenerateIDs.Add(float64(res.Degenerate))
	n.metrics.BatchSize.Observe(float64(len(events)))
	n.metrics.BatchProcessingDuration.Observe(n.clock.Since(start).Seconds())

	n.logger.Debug("batch normalized",
		"batch_size", len(events),
		"filtered", res.Filtered,
		"prefix", prefix,
		"duration", n.clock.Since(start).Round(time.Microsecond),
	)
	return res, nil
}

func (n *Normalizer) fail(err error) {
	reason := "parse"
	if errors.Is(err, domain.ErrInputSchema) {
		reason = "schema"
	}
	n.metrics.BatchFailures.WithLabelValues(reason).Inc()
}
