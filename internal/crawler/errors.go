package crawler

import "errors"

var (
	// ErrNotFound reports that a fetch exhausted its attempts without an acceptable response.
	ErrNotFound = errors.New("not found")
	// ErrNoResults reports that a search produced no locatable results pane or listings.
	ErrNoResults = errors.New("no results")
)
