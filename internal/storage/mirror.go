// Package storage holds helpers shared by the concrete storage backends.
package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/JakeFAU/directory-crawler/internal/crawler"
)

// Mirror copies each written snapshot file into a blob store under prefix.
type Mirror struct {
	store  crawler.BlobStore
	prefix string
}

// NewMirror builds a Mirror.
func NewMirror(store crawler.BlobStore, prefix string) *Mirror {
	return &Mirror{store: store, prefix: prefix}
}

// ObjectPath returns the object path a snapshot file is mirrored to.
func (m *Mirror) ObjectPath(file string) string {
	return path.Join(m.prefix, filepath.Base(file))
}

// OnSnapshot implements crawler.SnapshotObserver.
func (m *Mirror) OnSnapshot(ctx context.Context, snap crawler.Snapshot, _ []crawler.Listing) error {
	// #nosec G304 -- the path was produced by the checkpoint scheduler.
	f, err := os.Open(snap.Path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer func() { _ = f.Close() }()

	contentType := mime.TypeByExtension(filepath.Ext(snap.Path))
	if _, err := m.store.PutObject(ctx, m.ObjectPath(snap.Path), contentType, f); err != nil {
		return fmt.Errorf("mirror snapshot: %w", err)
	}
	return nil
}
