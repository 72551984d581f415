// Package queue schedules thumbnail generation off the request-handling
// path. The in-process Manager bounds concurrent generations and coalesces
// duplicate requests by task id; the broker package provides the distributed
// alternative behind the same Scheduler interface.
package queue
