package queue

import (
	"errors"
	"sync"

	"homedrive/internal/logging"
	"homedrive/internal/metrics"
	"homedrive/internal/thumbs"
)

// Task is one unit of generation work, deduplicated by ID.
type Task struct {
	ID      string
	Request thumbs.Request
}

// Outcome reports what Submit did with a task.
type Outcome int

const (
	// Queued means the task was accepted as new work.
	Queued Outcome = iota
	// Coalesced means an identical task was already pending or in flight.
	Coalesced
	// Failed means the task could not be handed off at all (broker publish
	// failure); the work will not run.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Coalesced:
		return "coalesced"
	case Failed:
		return "failed"
	}
	return "queued"
}

// Scheduler is implemented by both deployment profiles: the in-process
// Manager and the broker bridge.
type Scheduler interface {
	Submit(task Task) Outcome
}

// DefaultMaxConcurrent caps simultaneous decode/encode work unless
// configured otherwise.
const DefaultMaxConcurrent = 3

// Manager is the in-process worker pool. Per task id the state machine is
// Pending -> InFlight -> Done; a duplicate Submit while a task is pending or
// in flight is a no-op.
type Manager struct {
	mu            sync.Mutex
	pending       []Task
	inFlight      map[string]struct{}
	maxConcurrent int
	run           func(thumbs.Request) error
	processing    bool
}

// NewManager creates a Manager executing tasks with run, at most
// maxConcurrent at a time.
func NewManager(maxConcurrent int, run func(thumbs.Request) error) *Manager {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Manager{
		inFlight:      make(map[string]struct{}),
		maxConcurrent: maxConcurrent,
		run:           run,
	}
}

// IsTaskQueued reports whether a task with this id is pending or in flight.
func (m *Manager) IsTaskQueued(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isTaskQueuedLocked(id)
}

func (m *Manager) isTaskQueuedLocked(id string) bool {
	if _, ok := m.inFlight[id]; ok {
		return true
	}
	for _, t := range m.pending {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Submit enqueues a task and starts draining if capacity is free. N
// identical submissions while one is outstanding produce exactly one
// generation.
func (m *Manager) Submit(task Task) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isTaskQueuedLocked(task.ID) {
		logging.Debug("Task already queued, coalescing: %s", task.ID)
		return Coalesced
	}

	m.pending = append(m.pending, task)
	metrics.QueuePending.Set(float64(len(m.pending)))
	m.drainLocked()
	return Queued
}

// drainLocked pulls pending work while capacity remains. Caller holds m.mu.
func (m *Manager) drainLocked() {
	for len(m.pending) > 0 && len(m.inFlight) < m.maxConcurrent {
		task := m.pending[0]
		m.pending = m.pending[1:]
		m.inFlight[task.ID] = struct{}{}
		m.processing = true

		metrics.QueuePending.Set(float64(len(m.pending)))
		metrics.QueueInFlight.Set(float64(len(m.inFlight)))

		go m.execute(task)
	}
}

// execute runs one task in its own goroutine so a slow decode never stalls
// request handling.
func (m *Manager) execute(task Task) {
	err := m.run(task.Request)
	if err != nil {
		logging.Warn("Thumb generation task %s failed: %v", task.ID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.inFlight, task.ID)
	metrics.QueueInFlight.Set(float64(len(m.inFlight)))

	if len(m.pending) > 0 && len(m.inFlight) < m.maxConcurrent {
		m.drainLocked()
		return
	}
	if len(m.inFlight) == 0 && len(m.pending) == 0 {
		m.processing = false
		logging.Debug("No more items in the queue.")
	}
}

// QueueLength returns the number of pending (not yet started) tasks.
func (m *Manager) QueueLength() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// ProcessingCount returns the number of in-flight tasks.
func (m *Manager) ProcessingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inFlight)
}

// IsProcessing reports whether any work is pending or in flight.
func (m *Manager) IsProcessing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processing
}

// IsExpectedOutcome reports errors that are normal concurrent coalescing
// results rather than failures.
func IsExpectedOutcome(err error) bool {
	return errors.Is(err, thumbs.ErrLocked)
}
