package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteCaptureSummary records the headline numbers for one committed
// capture: how many devices reported in and how many crash reports the
// archive carried.
//
// The write is non-blocking; data is batched and sent asynchronously.
// The point is stamped with the capture timestamp so backfilled archives
// land on the right place in fleet history.
//
// Parameters:
//   - projectID: Owning project UUID
//   - captureID: Capture UUID
//   - deviceCount: Devices with at least one artifact in the capture
//   - crashCount: Total crash reports across all devices
//   - timestamp: The capture timestamp
func (c *Client) WriteCaptureSummary(projectID, captureID string, deviceCount, crashCount int, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"capture_summary",
		map[string]string{
			"project_id": projectID,
		},
		map[string]interface{}{
			"capture_id":   captureID,
			"device_count": deviceCount,
			"crash_count":  crashCount,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WriteDeviceHealth records a device's overall health rate from one
// capture. Only numeric rates are written; devices reporting free-text
// rates are skipped by the caller.
//
// Parameters:
//   - projectID: Owning project UUID
//   - deviceID: Fleet device identifier (e.g., "A1B2C3")
//   - healthRate: Overall health rate as reported (typically 0-100)
//   - timestamp: The capture timestamp
func (c *Client) WriteDeviceHealth(projectID, deviceID string, healthRate float64, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_health",
		map[string]string{
			"project_id": projectID,
			"device_id":  deviceID,
		},
		map[string]interface{}{
			"health_rate": healthRate,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WriteDeviceSignal records a device's WiFi signal strength from one
// capture.
//
// Parameters:
//   - projectID: Owning project UUID
//   - deviceID: Fleet device identifier
//   - rssi: Signal strength in dBm (negative; closer to zero is stronger)
//   - timestamp: The capture timestamp
func (c *Client) WriteDeviceSignal(projectID, deviceID string, rssi float64, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_signal",
		map[string]string{
			"project_id": projectID,
			"device_id":  deviceID,
		},
		map[string]interface{}{
			"rssi_dbm": rssi,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("ingest_stats",
//	    map[string]string{"host": "capture-01"},
//	    map[string]interface{}{"archive_bytes": 1048576, "entries": 42})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., backfilled captures).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
