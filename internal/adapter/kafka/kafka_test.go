package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/localized-events-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMessageToSourceMessage(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("key-1"),
		Value:     []byte(`{"localized_events":[]}`),
		Topic:     "localization-results",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "event_id_prefix", Value: []byte("cmarsh")},
		},
	}

	src := mapMessageToSourceMessage(msg)

	assert.Equal(t, []byte("key-1"), src.Key)
	assert.JSONEq(t, `{"localized_events":[]}`, string(src.Value))
	assert.Equal(t, "localization-results", src.Topic)
	assert.Equal(t, 2, src.Partition)
	assert.Equal(t, int64(42), src.Offset)
	assert.Equal(t, now, src.Timestamp)
	assert.Equal(t, "cmarsh", src.Headers["event_id_prefix"])
	assert.Nil(t, src.Commit)
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2022, 2, 8, 1, 0, 0, 0, time.UTC)
	event := domain.NormalizedEvent{
		EventID:              "cmarsh_2022020720000350_000",
		Label:                "zeep",
		StartTimestamp:       domain.NewTimestamp("2022-02-07T20:00:03.500000-05:00"),
		Duration:             json.Number("0.25"),
		Position:             []json.Number{"1.5", "-2"},
		FileIDs:              []string{"a.wav", "b.wav"},
		FileStartTimeOffsets: []json.Number{"0", "0.5"},
		TDOAs:                []float64{0, 0.0123457},
		DistanceResiduals:    []float64{1.235},
	}

	msg, err := serializeToMessage(event, now)
	require.NoError(t, err)

	assert.Equal(t, []byte("cmarsh_2022020720000350_000"), msg.Key)
	assert.Contains(t, string(msg.Value), `"label":"zeep"`)
	assert.Contains(t, string(msg.Value), `"start_timestamp":"2022-02-07T20:00:03.500000-05:00"`)
	assert.Contains(t, string(msg.Value), `"position":[1.5,-2]`)
	assert.NotContains(t, string(msg.Value), "residual_rms")
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "label", msg.Headers[0].Key)
	assert.Equal(t, []byte("zeep"), msg.Headers[0].Value)
	assert.Equal(t, "processed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)

	var decoded domain.NormalizedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, event.StartTimestamp.String(), decoded.StartTimestamp.String())
	assert.Equal(t, event.TDOAs, decoded.TDOAs)
}
