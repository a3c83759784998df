package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/localized-events-etl/internal/domain"
	"github.com/couchcryptid/localized-events-etl/internal/observability"
	"github.com/couchcryptid/localized-events-etl/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUploader struct {
	key  string
	data []byte
	err  error
}

func (m *mockUploader) Upload(_ context.Context, key string, data []byte) error {
	m.key, m.data = key, data
	return m.err
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "localized_events.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newConverter(opts ...pipeline.ConverterOption) *pipeline.Converter {
	n := newNormalizer(observability.NewMetricsForTesting())
	return pipeline.NewConverter(n, slog.Default(), opts...)
}

func TestConverter_Convert(t *testing.T) {
	input := writeInput(t, twoEventDoc)
	outDir := t.TempDir()
	store := &mockLoader{}
	uploader := &mockUploader{}

	res, err := newConverter(pipeline.WithStore(store), pipeline.WithUploader(uploader)).Convert(context.Background(), pipeline.ConvertOptions{
		InputPath:  input,
		OutputPath: outDir,
		Prefix:     "cmarsh",
	})
	require.NoError(t, err)

	expectedPath := filepath.Join(outDir, "cmarsh_metadata.csv")
	assert.Equal(t, expectedPath, res.OutputPath)
	assert.Equal(t, 2, res.Rows)
	assert.True(t, res.Written)

	data, err := os.ReadFile(expectedPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(domain.Columns(), ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "cmarsh_2022020720000350_000,zeep,"))
	assert.Contains(t, lines[1], `"[3.142, 2.718]"`)

	assert.Len(t, store.snapshot(), 2)
	assert.Equal(t, "cmarsh_metadata.csv", uploader.key)
	assert.Equal(t, data, uploader.data)
}

func TestConverter_Convert_EmptyBatch(t *testing.T) {
	input := writeInput(t, `{"localized_events": []}`)
	out := filepath.Join(t.TempDir(), "empty.csv")

	res, err := newConverter().Convert(context.Background(), pipeline.ConvertOptions{InputPath: input, OutputPath: out})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Rows)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(domain.Columns(), ",")+"\n", string(data))
}

func TestConverter_Convert_DryRun(t *testing.T) {
	input := writeInput(t, twoEventDoc)
	outDir := t.TempDir()
	store := &mockLoader{}
	uploader := &mockUploader{}

	res, err := newConverter(pipeline.WithStore(store), pipeline.WithUploader(uploader)).Convert(context.Background(), pipeline.ConvertOptions{
		InputPath:  input,
		OutputPath: outDir,
		DryRun:     true,
	})
	require.NoError(t, err)
	assert.False(t, res.Written)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, filepath.Join(outDir, "metadata.csv"), res.OutputPath)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 0, store.calls)
	assert.Empty(t, uploader.key)
}

func TestConverter_Convert_Errors(t *testing.T) {
	t.Run("missing input", func(t *testing.T) {
		_, err := newConverter().Convert(context.Background(), pipeline.ConvertOptions{InputPath: "/nonexistent/input.json"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read input")
	})

	t.Run("schema error writes nothing", func(t *testing.T) {
		input := writeInput(t, `{"localized_events": [{"start_timestamp": "2022-02-07T20:00:03Z"}]}`)
		out := filepath.Join(t.TempDir(), "out.csv")

		_, err := newConverter().Convert(context.Background(), pipeline.ConvertOptions{InputPath: input, OutputPath: out})
		assert.ErrorIs(t, err, domain.ErrInputSchema)
		_, statErr := os.Stat(out)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("upload failure", func(t *testing.T) {
		input := writeInput(t, twoEventDoc)
		uploader := &mockUploader{err: errors.New("bucket missing")}

		res, err := newConverter(pipeline.WithUploader(uploader)).Convert(context.Background(), pipeline.ConvertOptions{
			InputPath:  input,
			OutputPath: filepath.Join(t.TempDir(), "out.csv"),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upload table")
		assert.True(t, res.Written, "local table is still written")
	})
}
