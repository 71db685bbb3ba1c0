// Package api hosts the operator HTTP server for a running crawl. Routes:
//   - GET /healthz and /readyz for liveness and readiness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/progress for the live run status as JSON.
package api
