package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/localized-events-etl/internal/output"
	"github.com/couchcryptid/localized-events-etl/internal/tabular"
)

// Uploader pushes a rendered table to remote storage.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte) error
}

// ConvertOptions describes one batch conversion.
type ConvertOptions struct {
	InputPath  string
	OutputPath string // directory or file; empty means the default file name
	Prefix     string
	DryRun     bool
}

// ConvertResult reports what a conversion produced.
type ConvertResult struct {
	OutputPath string
	Rows       int
	Filtered   int
	Degenerate int
	Written    bool
}

// Converter runs the file-to-table conversion: read the JSON export,
// normalize it, then write the CSV and any configured extra sinks.
type Converter struct {
	normalizer *Normalizer
	store      BatchLoader
	uploader   Uploader
	logger     *slog.Logger
}

// ConverterOption configures optional sinks.
type ConverterOption func(*Converter)

// WithStore also saves the normalized events to a store.
func WithStore(store BatchLoader) ConverterOption {
	return func(c *Converter) { c.store = store }
}

// WithUploader also uploads the rendered table.
func WithUploader(u Uploader) ConverterOption {
	return func(c *Converter) { c.uploader = u }
}

// NewConverter creates a Converter around a Normalizer.
func NewConverter(n *Normalizer, logger *slog.Logger, opts ...ConverterOption) *Converter {
	c := &Converter{normalizer: n, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert runs one conversion. The whole batch is normalized and rendered
// before anything is written; in dry-run mode nothing is written at all.
func (c *Converter) Convert(ctx context.Context, opts ConvertOptions) (ConvertResult, error) {
	data, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return ConvertResult{}, fmt.Errorf("read input: %w", err)
	}

	res, err := c.normalizer.Normalize(data, opts.Prefix)
	if err != nil {
		return ConvertResult{}, fmt.Errorf("normalize %s: %w", opts.InputPath, err)
	}

	path, err := output.ResolvePath(opts.Prefix, opts.OutputPath)
	if err != nil {
		return ConvertResult{}, err
	}

	table, err := tabular.Encode(res.Events)
	if err != nil {
		return ConvertResult{}, err
	}

	result := ConvertResult{
		OutputPath: path,
		Rows:       len(res.Events),
		Filtered:   res.Filtered,
		Degenerate: res.Degenerate,
	}

	if opts.DryRun {
		c.logger.Info("dry run, output not written", "output", path, "rows", result.Rows)
		return result, nil
	}

	if err := output.WriteFile(path, table); err != nil {
		return result, err
	}
	result.Written = true
	c.logger.Info("table written", "output", path, "rows", result.Rows, "filtered", result.Filtered)

	if c.store != nil {
		if err := c.store.LoadBatch(ctx, res.Events); err != nil {
			return result, fmt.Errorf("store events: %w", err)
		}
	}
	if c.uploader != nil {
		key := filepath.Base(path)
		if err := c.uploader.Upload(ctx, key, table); err != nil {
			return result, fmt.Errorf("upload table: %w", err)
		}
		c.logger.Info("table uploaded", "key", key)
	}

	return result, nil
}
