// Package hooks reacts to file mutations performed by the file-serving
// layer: after a successful write it eagerly pre-generates the standard
// thumbnail sizes and refreshes the stored content hash so the read-through
// hash cache stays current; before a delete it invalidates every cache entry
// derived from that file's content. Hook failures only log warnings and
// never fail the triggering operation.
package hooks
