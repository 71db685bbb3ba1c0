package gcs

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	bytes.Buffer
	writeErr error
	closeErr error
	closed   bool
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	if w.writeErr != nil {
		return 0, w.writeErr
	}
	return w.Buffer.Write(p)
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return w.closeErr
}

type upload struct {
	object string
	attrs  storage.ObjectAttrs
	writer *recordingWriter
}

func recordingStore(cfg Config, w *recordingWriter) (*BlobStore, *[]upload) {
	var uploads []upload
	s := newBlobStore(cfg, func(_ context.Context, object string, attrs storage.ObjectAttrs) objectWriter {
		uploads = append(uploads, upload{object: object, attrs: attrs, writer: w})
		return w
	})
	return s, &uploads
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	require.Error(t, err)

	_, err = New(&storage.Client{}, Config{})
	require.Error(t, err)
}

func TestObjectName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"snapshots/run.xlsx":         "snapshots/run.xlsx",
		"/snapshots/run.xlsx":        "snapshots/run.xlsx",
		"  snapshots//run.csv ":      "snapshots/run.csv",
		"../../etc/passwd":           "etc/passwd",
		`snapshots\Madrid\final.csv`: "snapshots/Madrid/final.csv",
	}
	for in, want := range cases {
		got, err := objectName(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "  ", "/", ".."} {
		_, err := objectName(in)
		assert.Error(t, err, in)
	}
}

func TestURI(t *testing.T) {
	t.Parallel()

	s := newBlobStore(Config{Bucket: "dir-snapshots"}, nil)
	assert.Equal(t, "gs://dir-snapshots/snapshots/a.xlsx", s.URI("/snapshots/a.xlsx"))
	assert.Equal(t, "gs://dir-snapshots/snapshots/a.xlsx", s.URI("snapshots/./tmp/../a.xlsx"))
}

func TestPutObjectStampsAttributes(t *testing.T) {
	t.Parallel()

	w := &recordingWriter{}
	s, uploads := recordingStore(Config{Bucket: "dir-snapshots", CacheControl: "no-cache", RunID: "run-42"}, w)

	uri, err := s.PutObject(context.Background(), "/snapshots/Madrid_final.csv", "", strings.NewReader("name,phone\n"))
	require.NoError(t, err)
	assert.Equal(t, "gs://dir-snapshots/snapshots/Madrid_final.csv", uri)

	require.Len(t, *uploads, 1)
	got := (*uploads)[0]
	assert.Equal(t, "snapshots/Madrid_final.csv", got.object)
	assert.Equal(t, "text/csv; charset=utf-8", got.attrs.ContentType)
	assert.Equal(t, "no-cache", got.attrs.CacheControl)
	assert.Equal(t, map[string]string{"snapshot-file": "Madrid_final.csv", "run-id": "run-42"}, got.attrs.Metadata)
	assert.Equal(t, "name,phone\n", w.String())
	assert.True(t, w.closed)
}

func TestPutObjectContentTypeFallbacks(t *testing.T) {
	t.Parallel()

	w := &recordingWriter{}
	s, uploads := recordingStore(Config{Bucket: "b"}, w)

	_, err := s.PutObject(context.Background(), "snapshots/blob", "", bytes.NewReader(nil))
	require.NoError(t, err)
	_, err = s.PutObject(context.Background(), "snapshots/run.xlsx", "application/vnd.ms-excel", bytes.NewReader(nil))
	require.NoError(t, err)
	_, err = s.PutObject(context.Background(), "snapshots/RUN.XLSX", "", bytes.NewReader(nil))
	require.NoError(t, err)

	require.Len(t, *uploads, 3)
	assert.Equal(t, defaultContentType, (*uploads)[0].attrs.ContentType)
	assert.Equal(t, "application/vnd.ms-excel", (*uploads)[1].attrs.ContentType)
	assert.Equal(t, snapshotTypes[".xlsx"], (*uploads)[2].attrs.ContentType)
	assert.NotContains(t, (*uploads)[0].attrs.Metadata, "run-id")
}

func TestPutObjectRequiresPath(t *testing.T) {
	t.Parallel()

	s, uploads := recordingStore(Config{Bucket: "dir-snapshots"}, &recordingWriter{})
	_, err := s.PutObject(context.Background(), "  ", "text/csv", bytes.NewReader(nil))
	require.Error(t, err)
	assert.Empty(t, *uploads)
}

func TestPutObjectClosesWriterOnCopyFailure(t *testing.T) {
	t.Parallel()

	w := &recordingWriter{writeErr: errors.New("connection reset"), closeErr: errors.New("aborted")}
	s, _ := recordingStore(Config{Bucket: "b"}, w)

	_, err := s.PutObject(context.Background(), "snapshots/a.csv", "", strings.NewReader("x"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection reset")
	assert.ErrorContains(t, err, "aborted")
	assert.True(t, w.closed)
}

func TestPutObjectReportsFinalizeFailure(t *testing.T) {
	t.Parallel()

	w := &recordingWriter{closeErr: errors.New("precondition failed")}
	s, _ := recordingStore(Config{Bucket: "b"}, w)

	_, err := s.PutObject(context.Background(), "snapshots/a.csv", "", strings.NewReader("x"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "finalize snapshots/a.csv")
}
