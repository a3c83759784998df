// Package output decides where a converted table is written.
package output

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const defaultFileName = "metadata.csv"

// DefaultFileName is "<prefix>_metadata.csv", or "metadata.csv" without a prefix.
func DefaultFileName(prefix string) string {
	if prefix == "" {
		return defaultFileName
	}
	return prefix + "_" + defaultFileName
}

// ResolvePath returns the table's destination. An empty outputPath means the
// default file name in the working directory; an existing directory, or a
// path ending in a separator, receives the default file name; anything else
// is used as the file path.
func ResolvePath(prefix, outputPath string) (string, error) {
	name := DefaultFileName(prefix)
	if outputPath == "" {
		return name, nil
	}
	if strings.HasSuffix(outputPath, string(filepath.Separator)) || strings.HasSuffix(outputPath, "/") {
		return filepath.Join(outputPath, name), nil
	}

	info, err := os.Stat(outputPath)
	switch {
	case err == nil && info.IsDir():
		return filepath.Join(outputPath, name), nil
	case err == nil, errors.Is(err, fs.ErrNotExist):
		return outputPath, nil
	default:
		return "", fmt.Errorf("resolve output path %s: %w", outputPath, err)
	}
}

// WriteFile writes data to path, creating parent directories as needed.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // output tables are not secret
		return fmt.Errorf("write output %s: %w", path, err)
	}
	return nil
}
