package tabular

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/couchcryptid/localized-events-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "event_id,label,start_timestamp,duration,position,file_ids,file_start_time_offsets,tdoas,distance_residuals\n"

func testEvent() domain.NormalizedEvent {
	return domain.NormalizedEvent{
		EventID:              "cmarsh_2022020720000350_000",
		Label:                "zeep",
		StartTimestamp:       domain.NewTimestamp("2022-02-07T20:00:03.500000-05:00"),
		Duration:             json.Number("2.0"),
		Position:             []json.Number{"12.345678", "48.9012", "0"},
		FileIDs:              []string{"LOCA_01.wav", "LOCA_02.wav"},
		FileStartTimeOffsets: []json.Number{"3.5", "3.5"},
		TDOAs:                []float64{0, 0.0123457},
		DistanceResiduals:    []float64{3.142, 2.718},
	}
}

func TestWriteAll_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAll(&buf, nil))
	assert.Equal(t, header, buf.String())
}

func TestWriteAll_Rows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAll(&buf, []domain.NormalizedEvent{testEvent()}))

	expected := header +
		`cmarsh_2022020720000350_000,zeep,2022-02-07T20:00:03.500000-05:00,2.0,` +
		`"[12.345678, 48.9012, 0]","['LOCA_01.wav', 'LOCA_02.wav']","[3.5, 3.5]",` +
		`"[0.0, 0.0123457]","[3.142, 2.718]"` + "\n"
	assert.Equal(t, expected, buf.String())
}

func TestRow_ColumnCount(t *testing.T) {
	row, err := Row(testEvent())
	require.NoError(t, err)
	assert.Len(t, row, len(domain.Columns()))
	for _, col := range domain.Columns() {
		assert.Contains(t, cellRenderers, col)
	}
}

func TestRead_RoundTrip(t *testing.T) {
	events := []domain.NormalizedEvent{testEvent(), testEvent()}
	events[1].EventID = "cmarsh_2022020720000350_001"

	data, err := Encode(events)
	require.NoError(t, err)

	hdr, rows, err := Read(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, domain.Columns(), hdr)
	require.Len(t, rows, 2)
	assert.Equal(t, "cmarsh_2022020720000350_001", rows[1][0])

	files, err := ParseList(rows[0][5])
	require.NoError(t, err)
	assert.Equal(t, []string{"LOCA_01.wav", "LOCA_02.wav"}, files)

	residuals, err := ParseFloatList(rows[0][8])
	require.NoError(t, err)
	assert.Equal(t, []float64{3.142, 2.718}, residuals)
}

func TestRead_Empty(t *testing.T) {
	_, _, err := Read(strings.NewReader(""))
	assert.Error(t, err)
}
