// Package metrics defines all Prometheus metrics for the server, registered
// via promauto at package load.
package metrics
