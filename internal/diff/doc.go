// Package diff computes field-level changes between successive device
// snapshots on a project's capture timeline.
//
// Compute is the pure core: it compares one snapshot with its predecessor
// across the tracked fields (state, rssi, overall_health_rate, ip,
// device_name, reason) and classifies each as unchanged, changed,
// appeared, or disappeared. Presence-aware comparison distinguishes an
// absent field from a present-but-empty one.
//
// Service is the query facade built on top of Compute: for a capture it
// resolves every device's nearest strictly-earlier snapshot from the
// store, attaches the diff, and surfaces a short lighting-history tail
// when a device's state has just left "found". Views are recomputed on
// every call and never persisted.
//
// # Thread Safety
//
// Compute is pure. Service is safe for concurrent use once configured:
// SetLogger and SetHistoryTail are startup-time setters and must not be
// called concurrently with DeviceViews.
package diff
