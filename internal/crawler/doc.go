// Package crawler defines the core types and collaborator interfaces shared
// by the directory crawler: search units, listings, fetch requests, the page
// navigator abstraction, snapshot sinks, and the small adapters (clock, IDs,
// hashing) injected across subsystems.
package crawler
