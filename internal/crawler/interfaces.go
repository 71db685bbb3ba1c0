package crawler

import (
	"context"
	"io"
	"time"
)

// Fetcher performs one HTTP GET and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// ContentPredicate decides whether a response Content-Type is acceptable.
type ContentPredicate func(contentType string) bool

// RetryFetcher fetches with bounded retries. The boolean is false when every
// attempt failed; exhaustion is an expected outcome, not an error.
type RetryFetcher interface {
	Fetch(ctx context.Context, request FetchRequest, accept ContentPredicate) (FetchResponse, bool)
}

// Locator names an XPath used to find page elements. XPaths starting with
// "." are resolved relative to the element they are searched from.
type Locator struct {
	Name  string
	XPath string
}

// Element is a handle to a node on the navigator's current page.
type Element interface {
	Text(ctx context.Context) (string, error)
	Attr(ctx context.Context, name string) (string, bool, error)
	Click(ctx context.Context) error
	Find(ctx context.Context, loc Locator) (Element, bool, error)
	FindAll(ctx context.Context, loc Locator) ([]Element, error)
}

// Navigator drives the single interactive page session used for searches.
// Locate waits up to wait for the locator to resolve; a non-positive wait
// checks once. Absence is reported with ok=false and a nil error.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
	Submit(ctx context.Context, input Locator, text string, wait time.Duration) error
	Locate(ctx context.Context, loc Locator, wait time.Duration) (Element, bool, error)
	LocateAll(ctx context.Context, loc Locator) ([]Element, error)
	Scroll(ctx context.Context, el Element) error
	CurrentURL(ctx context.Context) (string, error)
	Close(ctx context.Context) error
}

// Sink writes a full tabular snapshot to path.
type Sink interface {
	Write(ctx context.Context, path string, columns []string, rows [][]string) error
}

// SnapshotObserver reacts to a snapshot after it has been written.
type SnapshotObserver interface {
	OnSnapshot(ctx context.Context, snap Snapshot, listings []Listing) error
}

// BlobStore writes raw artifacts and returns their location.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// UnitLedger remembers completed search units across runs.
type UnitLedger interface {
	Done(ctx context.Context, unit SearchUnit) (bool, error)
	MarkDone(ctx context.Context, unit SearchUnit) error
}

// Hasher computes digests for deduplication.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
