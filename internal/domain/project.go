package domain

import "slices"

// ProjectEvent assigns the event ID and copies the allow-listed fields,
// renaming them to the output vocabulary.
func ProjectEvent(prefix string, ie IndexedEvent) NormalizedEvent {
	e := ie.Event
	return NormalizedEvent{
		EventID:              EventID(prefix, e.StartTimestamp, ie.Index),
		Label:                e.ClassName,
		StartTimestamp:       e.StartTimestamp,
		Duration:             e.Duration,
		Position:             slices.Clone(e.LocationEstimate),
		FileIDs:              slices.Clone(e.ReceiverFiles),
		FileStartTimeOffsets: slices.Clone(e.ReceiverStartTimeOffsets),
		TDOAs:                slices.Clone(e.TDOAs),
		DistanceResiduals:    slices.Clone(e.DistanceResiduals),
	}
}

// Project maps a batch to output rows, one per event, in batch order.
func Project(prefix string, batch EventBatch) []NormalizedEvent {
	indexed := batch.Indexed()
	out := make([]NormalizedEvent, len(indexed))
	for i, ie := range indexed {
		out[i] = ProjectEvent(prefix, ie)
	}
	return out
}
