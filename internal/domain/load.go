package domain

import (
	"math"
	"slices"
	"strconv"
)

const (
	// TDOAPlaces is the decimal precision kept for time differences of arrival.
	TDOAPlaces = 7
	// ResidualPlaces is the decimal precision kept for distance residuals.
	ResidualPlaces = 3
)

// LoadOptions tunes LoadBatch.
type LoadOptions struct {
	// MaxResidualRMS drops events whose residual_rms is at or above the
	// threshold before ordinals are assigned. Zero disables filtering.
	MaxResidualRMS float64
}

// EventBatch is the ordered, normalized set of events from one run. The
// order is fixed at load time; there is deliberately no way to reorder it.
type EventBatch struct {
	events []RawEvent
}

// Len returns the number of events in the batch.
func (b EventBatch) Len() int { return len(b.events) }

// Events returns a copy of the batch's events in load order.
func (b EventBatch) Events() []RawEvent { return slices.Clone(b.events) }

// IndexedEvent pairs an event with its zero-based position in the batch.
type IndexedEvent struct {
	Index int
	Event RawEvent
}

// Indexed returns every event bundled with its load-order ordinal.
func (b EventBatch) Indexed() []IndexedEvent {
	out := make([]IndexedEvent, len(b.events))
	for i, e := range b.events {
		out[i] = IndexedEvent{Index: i, Event: e}
	}
	return out
}

// LoadBatch validates and canonicalizes events into a batch, preserving
// input order. The input slice and its events are not modified.
func LoadBatch(events []RawEvent, opts LoadOptions) (EventBatch, error) {
	loaded := make([]RawEvent, 0, len(events))
	for i, e := range events {
		if err := e.validate(); err != nil {
			return EventBatch{}, withIndex(err, i)
		}
		if opts.MaxResidualRMS > 0 {
			if e.ResidualRMS == nil {
				return EventBatch{}, &SchemaError{Index: i, Field: fieldResidualRMS}
			}
			if *e.ResidualRMS >= opts.MaxResidualRMS {
				continue
			}
		}
		loaded = append(loaded, normalizeEvent(e))
	}
	return EventBatch{events: loaded}, nil
}

func normalizeEvent(e RawEvent) RawEvent {
	e.TDOAs = RoundAll(e.TDOAs, TDOAPlaces)
	e.DistanceResiduals = RoundAll(e.DistanceResiduals, ResidualPlaces)
	return e
}

// RoundAll rounds each value independently into a new slice.
func RoundAll(values []float64, places int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = RoundTo(v, places)
	}
	return out
}

// RoundTo rounds v to the given number of decimal places using the correctly
// rounded decimal rendering of v, which makes it idempotent. NaN and
// infinities pass through.
func RoundTo(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}
