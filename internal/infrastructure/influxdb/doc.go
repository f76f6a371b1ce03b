// Package influxdb provides InfluxDB connectivity for Gray Logic Capture.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, fleet metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series storage for fleet analytics:
//   - Per-capture summaries (device and crash counts)
//   - Per-device health rate series across captures
//   - Per-device WiFi signal strength series
//
// Points are timestamped with the capture timestamp, not ingestion time,
// so backfilled archives land on the correct point in fleet history.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "graycapture",
//	    Bucket: "fleet",
//	}
//
//	client, err := influxdb.Connect(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteCaptureSummary(projectID, captureID, 42, 3, captureTime)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// Ingestion throughput is never gated on the metrics backend.
package influxdb
