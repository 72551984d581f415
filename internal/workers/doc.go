// Package workers derives worker counts from available CPU for the various
// concurrent jobs in the server.
package workers
