package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/JakeFAU/directory-crawler/internal/crawler"
)

// Notification is published after each snapshot.
type Notification struct {
	RunID     string    `json:"run_id"`
	Kind      string    `json:"kind"`
	Path      string    `json:"path"`
	Rows      int       `json:"rows"`
	URI       string    `json:"uri,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier publishes a Notification for every snapshot it observes.
type Notifier struct {
	publisher crawler.Publisher
	topic     string
	runID     string
	clock     crawler.Clock
	uri       func(path string) string
}

// NewNotifier builds a Notifier. uri maps a snapshot path to its mirrored
// location and may be nil.
func NewNotifier(publisher crawler.Publisher, topic, runID string, clock crawler.Clock, uri func(path string) string) *Notifier {
	return &Notifier{publisher: publisher, topic: topic, runID: runID, clock: clock, uri: uri}
}

// OnSnapshot implements crawler.SnapshotObserver.
func (n *Notifier) OnSnapshot(ctx context.Context, snap crawler.Snapshot, _ []crawler.Listing) error {
	msg := Notification{
		RunID:     n.runID,
		Kind:      snap.Kind.String(),
		Path:      snap.Path,
		Rows:      snap.Rows,
		Timestamp: n.clock.Now(),
	}
	if n.uri != nil {
		msg.URI = n.uri(snap.Path)
	}
	if _, err := n.publisher.Publish(ctx, n.topic, msg); err != nil {
		return fmt.Errorf("publish snapshot notification: %w", err)
	}
	return nil
}
