package mqtt

import "fmt"

// Topic prefixes for Gray Logic Capture events.
//
// All capture topics use the scheme: graycapture/capture/{project_id}/{event}
// Project IDs are UUIDs, so they never contain topic separators.
const (
	// TopicPrefix is the base for all capture service topics.
	TopicPrefix = "graycapture"

	// TopicPrefixCapture is the base for capture lifecycle events.
	TopicPrefixCapture = "graycapture/capture"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "graycapture/system"
)

// Topics provides builders for Gray Logic Capture MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	eventTopic := topics.CaptureIngested("550e8400-e29b-41d4-a716-446655440000")
//	// Returns: "graycapture/capture/550e8400-e29b-41d4-a716-446655440000/ingested"
type Topics struct{}

// =============================================================================
// Capture Topics
// =============================================================================

// CaptureIngested returns the topic announcing a committed capture for a
// project. The payload is the JSON ingestion result.
//
// Example: graycapture/capture/550e8400-e29b-41d4-a716-446655440000/ingested
func (Topics) CaptureIngested(projectID string) string {
	return fmt.Sprintf("%s/%s/ingested", TopicPrefixCapture, projectID)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the service status topic. Online, graceful-offline
// and LWT crash messages are all retained here.
//
// Example: graycapture/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscribers
// =============================================================================

// AllCaptureIngested returns a pattern matching ingestion events across
// every project. Intended for external subscribers; the capture service
// itself never subscribes.
//
// Pattern: graycapture/capture/+/ingested
func (Topics) AllCaptureIngested() string {
	return fmt.Sprintf("%s/+/ingested", TopicPrefixCapture)
}

// AllTopics returns a pattern matching all capture service topics.
//
// Pattern: graycapture/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
