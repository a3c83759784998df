package sqlite

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/localized-events-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "events.db"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleEvent(id string) domain.NormalizedEvent {
	return domain.NormalizedEvent{
		EventID:              id,
		Label:                "zeep",
		StartTimestamp:       domain.NewTimestamp("2022-02-07T20:00:03.500000-05:00"),
		Duration:             json.Number("0.25"),
		Position:             []json.Number{"1.5", "-2.0", "0"},
		FileIDs:              []string{"a.wav", "it's.wav"},
		FileStartTimeOffsets: []json.Number{"6", "6.5"},
		TDOAs:                []float64{0, 0.0123457, -1e-07},
		DistanceResiduals:    []float64{1.235, 0},
	}
}

func TestStore_LoadAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	batch := []domain.NormalizedEvent{sampleEvent("p_2022020720000350_000"), sampleEvent("p_2022020720000350_001")}
	require.NoError(t, s.LoadBatch(ctx, batch))

	got, err := s.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, batch[0].EventID, got[0].EventID)
	assert.Equal(t, batch[1].EventID, got[1].EventID)
	assert.Equal(t, batch[0], got[0])
}

func TestStore_SameIDAcrossBatchesIsKept(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.LoadBatch(ctx, []domain.NormalizedEvent{sampleEvent("2022020720000350_000")}))
	require.NoError(t, s.LoadBatch(ctx, []domain.NormalizedEvent{sampleEvent("2022020720000350_000")}))

	got, err := s.ListEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStore_EmptyBatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.LoadBatch(ctx, nil))

	got, err := s.ListEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_ReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	ctx := context.Background()

	s, err := Open(path, slog.Default())
	require.NoError(t, err)
	require.NoError(t, s.LoadBatch(ctx, []domain.NormalizedEvent{sampleEvent("a_000")}))
	require.NoError(t, s.Close())

	s, err = Open(path, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	got, err := s.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a_000", got[0].EventID)
}

func TestOpen_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not a sqlite database, just text padded out to a page header"), 0o600))

	s, err := Open(path, slog.Default())
	require.Error(t, err)
	assert.Nil(t, s)
	assert.Contains(t, err.Error(), path)
}
