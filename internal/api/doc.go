// Package api implements the HTTP REST API for Gray Logic Capture.
//
// This package provides:
//   - Archive upload endpoints (multipart and raw body)
//   - Capture and project listings with persisted ingestion warnings
//   - Diff-annotated device views against each device's previous snapshot
//   - Per-project capture statistics
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between engineering tools (upload scripts, fleet
// dashboards) and the ingestion engine + capture store. Uploads flow
// through the ingestion pipeline synchronously: the response carries the
// committed capture's ID, status, and warnings. Reads are served straight
// from the store; device views are derived per request and never cached.
//
// # Error Mapping
//
// The ingestion error taxonomy maps onto HTTP statuses: malformed
// filenames, oversized or corrupt archives, and traversal attempts are
// 400s; an over-limit request body is 413; unknown projects and captures
// are 404s; querying a capture still pending is a 409.
//
// # Graceful Degradation
//
// The server operates without a database health checker — the health
// endpoint simply omits the database field. Upload and query endpoints
// always require the store.
package api
