// Package broker is the distributed deployment profile: generation requests
// are published to a durable RabbitMQ queue instead of the in-process pool.
// The queue is declared with broker-side message deduplication, and the
// consumer acknowledges a delivery only after its generation task finishes,
// so redelivery after a crash is the retry mechanism (at-least-once,
// idempotent because generation writes to a deterministic cache key).
package broker
