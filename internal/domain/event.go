package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
)

const (
	fieldStartTimestamp           = "start_timestamp"
	fieldDuration                 = "duration"
	fieldClassName                = "class_name"
	fieldLocationEstimate         = "location_estimate"
	fieldReceiverFiles            = "receiver_files"
	fieldReceiverStartTimeOffsets = "receiver_start_time_offsets"
	fieldTDOAs                    = "tdoas"
	fieldDistanceResiduals        = "distance_residuals"
	fieldResidualRMS              = "residual_rms"
)

// requiredFields must be present and non-null on every input event.
var requiredFields = []string{
	fieldStartTimestamp,
	fieldDuration,
	fieldClassName,
	fieldLocationEstimate,
	fieldReceiverFiles,
	fieldReceiverStartTimeOffsets,
	fieldTDOAs,
	fieldDistanceResiduals,
}

// sequenceFields are the array fields whose elements must all be non-null.
var sequenceFields = []string{
	fieldLocationEstimate,
	fieldReceiverFiles,
	fieldReceiverStartTimeOffsets,
	fieldTDOAs,
	fieldDistanceResiduals,
}

// columns is the output allow-list, in table order.
var columns = [...]string{
	"event_id",
	"label",
	"start_timestamp",
	"duration",
	"position",
	"file_ids",
	"file_start_time_offsets",
	"tdoas",
	"distance_residuals",
}

// Columns returns the output column names in table order.
func Columns() []string {
	return slices.Clone(columns[:])
}

// Timestamp keeps the upstream textual form of start_timestamp. The text is
// load-bearing for ID derivation, so it is never reparsed or reformatted.
type Timestamp struct {
	text string
	set  bool
}

// NewTimestamp wraps an already-rendered timestamp string.
func NewTimestamp(text string) Timestamp {
	return Timestamp{text: text, set: true}
}

func (t Timestamp) String() string { return t.text }

// IsZero reports whether no timestamp was supplied at all. An empty string
// is a supplied (degenerate) timestamp.
func (t Timestamp) IsZero() bool { return !t.set }

// UnmarshalJSON accepts a JSON string or a JSON number (epoch-style values)
// and keeps its literal text.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return &SchemaError{Index: -1, Field: fieldStartTimestamp, Err: err}
	}
	switch val := v.(type) {
	case string:
		*t = NewTimestamp(val)
	case json.Number:
		*t = NewTimestamp(val.String())
	case nil:
		return &SchemaError{Index: -1, Field: fieldStartTimestamp}
	default:
		return &SchemaError{Index: -1, Field: fieldStartTimestamp, Err: fmt.Errorf("unsupported value %s", data)}
	}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.text)
}

// RawEvent is one localized event as written by the localization pipeline.
// Passthrough numbers keep their JSON literal so integer and float inputs
// render the way the producer wrote them.
type RawEvent struct {
	StartTimestamp           Timestamp     `json:"start_timestamp"`
	Duration                 json.Number   `json:"duration"`
	ClassName                string        `json:"class_name"`
	LocationEstimate         []json.Number `json:"location_estimate"`
	ReceiverFiles            []string      `json:"receiver_files"`
	ReceiverStartTimeOffsets []json.Number `json:"receiver_start_time_offsets"` // parallel to ReceiverFiles
	TDOAs                    []float64     `json:"tdoas"`
	DistanceResiduals        []float64     `json:"distance_residuals"`
	ResidualRMS              *float64      `json:"residual_rms,omitempty"` // upstream filtering only
}

// UnmarshalJSON rejects events with absent or null required fields instead
// of letting them decode to zero values.
func (e *RawEvent) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return &SchemaError{Index: -1, Err: err}
	}
	for _, name := range requiredFields {
		raw, ok := fields[name]
		if !ok || isJSONNull(raw) {
			return &SchemaError{Index: -1, Field: name}
		}
	}
	for _, name := range sequenceFields {
		if err := checkElements(name, fields[name]); err != nil {
			return err
		}
	}

	type plain RawEvent
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		var schemaErr *SchemaError
		if errors.As(err, &schemaErr) {
			return schemaErr
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &SchemaError{Index: -1, Field: typeErr.Field, Err: err}
		}
		return &SchemaError{Index: -1, Err: err}
	}
	*e = RawEvent(p)
	return nil
}

// validate checks required fields on events built in code rather than
// decoded from JSON.
func (e RawEvent) validate() error {
	switch {
	case e.StartTimestamp.IsZero():
		return &SchemaError{Index: -1, Field: fieldStartTimestamp}
	case e.Duration == "":
		return &SchemaError{Index: -1, Field: fieldDuration}
	case e.LocationEstimate == nil:
		return &SchemaError{Index: -1, Field: fieldLocationEstimate}
	case e.ReceiverFiles == nil:
		return &SchemaError{Index: -1, Field: fieldReceiverFiles}
	case e.ReceiverStartTimeOffsets == nil:
		return &SchemaError{Index: -1, Field: fieldReceiverStartTimeOffsets}
	case e.TDOAs == nil:
		return &SchemaError{Index: -1, Field: fieldTDOAs}
	case e.DistanceResiduals == nil:
		return &SchemaError{Index: -1, Field: fieldDistanceResiduals}
	}
	return nil
}

// checkElements rejects null elements in a JSON array. Values that are not
// arrays are left to the typed decode to report.
func checkElements(field string, raw json.RawMessage) error {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil //nolint:nilerr // reported as a type error by the typed decode
	}
	for i, elem := range elems {
		if isJSONNull(elem) {
			return &SchemaError{Index: -1, Field: field, Err: fmt.Errorf("element %d is null", i)}
		}
	}
	return nil
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// NormalizedEvent is one output row. Field order matches Columns.
type NormalizedEvent struct {
	EventID              string        `json:"event_id"`
	Label                string        `json:"label"`
	StartTimestamp       Timestamp     `json:"start_timestamp"`
	Duration             json.Number   `json:"duration"`
	Position             []json.Number `json:"position"`
	FileIDs              []string      `json:"file_ids"`
	FileStartTimeOffsets []json.Number `json:"file_start_time_offsets"`
	TDOAs                []float64     `json:"tdoas"`
	DistanceResiduals    []float64     `json:"distance_residuals"`
}

// SourceMessage is one message from the streaming source. Its Value holds a
// complete localization document, i.e. one batch.
type SourceMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}
