// Package mqtt publishes capture lifecycle events for Gray Logic Capture.
//
// This package manages:
//   - Connection to an MQTT broker with auto-reconnect
//   - Capture event publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The capture service is a pure event source on the bus: each committed
// capture is announced on graycapture/capture/{project_id}/ingested so
// dashboards and alerting pipelines can react without polling the REST
// API. The client never subscribes to anything — consumers live in
// other processes.
//
//	Gray Logic Capture → MQTT Broker → dashboards / alerting
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Announce a committed capture
//	topic := mqtt.Topics{}.CaptureIngested(result.ProjectID)
//	client.Publish(topic, payload, 1, false)
package mqtt
