// Package api hosts the optional status server for a running harvest.
// Routes:
//   - GET /healthz for liveness checks.
//   - GET /metrics for Prometheus scraping.
//   - GET /progress and /progress/{pass} for the latest batch snapshot.
package api
