// Package images downloads a listing's main image into a per-area folder.
package images

import (
	"bytes"
	"context"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/directory-crawler/internal/crawler"
	"github.com/JakeFAU/directory-crawler/internal/fetcher/retry"
)

var unsafeChars = regexp.MustCompile(`[|/\\:<>*?"']`)

// SanitizeName replaces filename-unsafe characters and spaces with "_".
// Non-ASCII letters are kept.
func SanitizeName(name string) string {
	return strings.ReplaceAll(unsafeChars.ReplaceAllString(name, "_"), " ", "_")
}

// ObjectPath returns "<prefix><area>/<category>_<sanitized name>.jpg".
func ObjectPath(folderPrefix, area, category, name string) string {
	category = strings.NewReplacer("/", "_", `\`, "_").Replace(category)
	return path.Join(folderPrefix+area, category+"_"+SanitizeName(name)+".jpg")
}

// Config controls the downloader.
type Config struct {
	FolderPrefix string
	Timeout      time.Duration
}

// Downloader fetches images through a retrying fetcher and stores them.
type Downloader struct {
	fetcher crawler.RetryFetcher
	store   crawler.BlobStore
	cfg     Config
	logger  *zap.Logger
}

// New builds a Downloader.
func New(fetcher crawler.RetryFetcher, store crawler.BlobStore, cfg Config, logger *zap.Logger) *Downloader {
	if cfg.FolderPrefix == "" {
		cfg.FolderPrefix = "images_"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		fetcher: fetcher,
		store:   store,
		cfg:     cfg,
		logger:  logger.Named("images"),
	}
}

// Download fetches rawURL and writes it to the area folder. It returns the
// stored path, or ok=false when the URL is invalid, every attempt failed, or
// the write failed. Failures are logged, never returned.
func (d *Downloader) Download(ctx context.Context, rawURL, name, category, area string) (string, bool) {
	logger := d.logger.With(zap.String("business", name), zap.String("url", rawURL))
	if !validURL(rawURL) {
		logger.Debug("skipping image with invalid url")
		return "", false
	}

	resp, ok := d.fetcher.Fetch(ctx, crawler.FetchRequest{URL: rawURL, Timeout: d.cfg.Timeout}, retry.ImageContent)
	if !ok {
		logger.Warn("image download failed")
		return "", false
	}

	stored, err := d.store.PutObject(ctx, ObjectPath(d.cfg.FolderPrefix, area, category, name), resp.ContentType(), bytes.NewReader(resp.Body))
	if err != nil {
		logger.Error("failed to store image", zap.Error(err))
		return "", false
	}
	logger.Debug("image stored", zap.String("path", stored), zap.Int("bytes", len(resp.Body)))
	return stored, true
}

func validURL(rawURL string) bool {
	if !strings.HasPrefix(rawURL, "http") {
		return false
	}
	u, err := url.Parse(rawURL)
	return err == nil && u.Host != ""
}
