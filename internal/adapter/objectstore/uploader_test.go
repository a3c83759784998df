package objectstore

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/couchcryptid/localized-events-etl/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 records PUT requests and answers them like a bucket that accepts
// every object.
type fakeS3 struct {
	mu          sync.Mutex
	paths       []string
	contentType string
}

const locationResponse = `<?xml version="1.0" encoding="UTF-8"?>
<LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">us-east-1</LocationConstraint>`

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	if r.Method == http.MethodGet && r.URL.Query().Has("location") {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, locationResponse)
		return
	}
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusOK)
		return
	}

	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	f.contentType = r.Header.Get("Content-Type")
	f.mu.Unlock()

	w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
	w.WriteHeader(http.StatusOK)
}

func newTestUploader(t *testing.T, keyPrefix string) (*Uploader, *fakeS3) {
	t.Helper()
	fake := &fakeS3{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		S3Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		S3Bucket:    "metadata",
		S3AccessKey: "minio",
		S3SecretKey: "minio123",
	}
	u, err := New(cfg, keyPrefix, slog.Default())
	require.NoError(t, err)
	return u, fake
}

func TestUploader_Upload(t *testing.T) {
	u, fake := newTestUploader(t, "")

	require.NoError(t, u.Upload(context.Background(), "cmarsh_metadata.csv", []byte("event_id\n")))

	require.Len(t, fake.paths, 1)
	assert.Equal(t, "/metadata/cmarsh_metadata.csv", fake.paths[0])
	assert.Equal(t, "text/csv", fake.contentType)
}

func TestUploader_KeyPrefix(t *testing.T) {
	u, fake := newTestUploader(t, "exports/2022")

	require.NoError(t, u.Upload(context.Background(), "metadata.csv", []byte("x")))

	require.Len(t, fake.paths, 1)
	assert.Equal(t, "/metadata/exports/2022/metadata.csv", fake.paths[0])
}

func TestNew_InvalidEndpoint(t *testing.T) {
	_, err := New(&config.Config{S3Endpoint: "http://bad endpoint", S3Bucket: "b"}, "", slog.Default())
	assert.Error(t, err)
}
