package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// document is the top-level shape of a localization export.
type document struct {
	LocalizedEvents *[]json.RawMessage `json:"localized_events"`
}

// ParseDocument decodes a localization export into its events, in document
// order. Malformed JSON or a missing "localized_events" key yields
// ErrInputParse; a malformed event yields a *SchemaError naming its index.
func ParseDocument(data []byte) ([]RawEvent, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputParse, err)
	}
	if doc.LocalizedEvents == nil {
		return nil, fmt.Errorf("%w: missing %q key", ErrInputParse, "localized_events")
	}

	items := *doc.LocalizedEvents
	events := make([]RawEvent, len(items))
	for i, item := range items {
		if err := json.Unmarshal(item, &events[i]); err != nil {
			return nil, withIndex(err, i)
		}
	}
	return events, nil
}

// withIndex stamps the batch position onto a schema error.
func withIndex(err error, index int) error {
	var schemaErr *SchemaError
	if errors.As(err, &schemaErr) {
		stamped := *schemaErr
		stamped.Index = index
		return &stamped
	}
	return &SchemaError{Index: index, Err: err}
}
