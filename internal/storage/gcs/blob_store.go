// Package gcs mirrors snapshot files into a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"cloud.google.com/go/storage"
)

const defaultContentType = "application/octet-stream"

var snapshotTypes = map[string]string{
	".csv":  "text/csv; charset=utf-8",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// Config names the bucket and the attributes stamped on every object.
type Config struct {
	Bucket       string
	CacheControl string
	RunID        string
}

// objectWriter is the part of *storage.Writer the store uses.
type objectWriter interface {
	io.Writer
	Close() error
}

type openFunc func(ctx context.Context, object string, attrs storage.ObjectAttrs) objectWriter

// BlobStore uploads snapshot artifacts as objects in one bucket.
type BlobStore struct {
	cfg  Config
	open openFunc
}

// New builds a BlobStore writing through client.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, errors.New("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	bucket := client.Bucket(cfg.Bucket)
	return newBlobStore(cfg, func(ctx context.Context, object string, attrs storage.ObjectAttrs) objectWriter {
		w := bucket.Object(object).NewWriter(ctx)
		w.ContentType = attrs.ContentType
		w.CacheControl = attrs.CacheControl
		w.Metadata = attrs.Metadata
		return w
	}), nil
}

func newBlobStore(cfg Config, open openFunc) *BlobStore {
	return &BlobStore{cfg: cfg, open: open}
}

// URI returns the gs:// location of the object stored under p.
func (s *BlobStore) URI(p string) string {
	name, err := objectName(p)
	if err != nil {
		return fmt.Sprintf("gs://%s/", s.cfg.Bucket)
	}
	return fmt.Sprintf("gs://%s/%s", s.cfg.Bucket, name)
}

// PutObject uploads data under p and returns its gs:// URI. An empty
// contentType is derived from the object's extension.
func (s *BlobStore) PutObject(ctx context.Context, p string, contentType string, data io.Reader) (string, error) {
	name, err := objectName(p)
	if err != nil {
		return "", err
	}
	w := s.open(ctx, name, s.attrs(name, contentType))
	if _, err := io.Copy(w, data); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			return "", fmt.Errorf("upload %s: %w (close writer: %v)", name, err, closeErr)
		}
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize %s: %w", name, err)
	}
	return s.URI(name), nil
}

func (s *BlobStore) attrs(name, contentType string) storage.ObjectAttrs {
	if contentType == "" {
		contentType = snapshotTypes[strings.ToLower(path.Ext(name))]
	}
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(name))
	}
	if contentType == "" {
		contentType = defaultContentType
	}
	meta := map[string]string{"snapshot-file": path.Base(name)}
	if s.cfg.RunID != "" {
		meta["run-id"] = s.cfg.RunID
	}
	return storage.ObjectAttrs{
		Name:         name,
		ContentType:  contentType,
		CacheControl: s.cfg.CacheControl,
		Metadata:     meta,
	}
}

// objectName normalizes p into a bucket-relative object name. Dot segments
// cannot climb above the bucket root.
func objectName(p string) (string, error) {
	p = strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")
	name := strings.TrimPrefix(path.Clean("/"+p), "/")
	if name == "" {
		return "", errors.New("object path is required")
	}
	return name, nil
}
