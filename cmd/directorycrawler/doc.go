// Command directorycrawler walks every (area, category) search unit through
// a headless browser session, extracts business listings, and writes
// periodic and terminal spreadsheet snapshots of everything collected.
//
// Usage:
//
//	directorycrawler -config config.yaml
//
// SIGINT or SIGTERM stops the traversal after the current step and writes
// an "interrupted" snapshot before the browser is closed.
package main
