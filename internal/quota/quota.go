package quota

import (
	"math"
	"sync"

	"homedrive/internal/metrics"
)

// Unlimited is the normalized sentinel for "no limit".
const Unlimited int64 = -1

type record struct {
	reserved int64
	limit    int64
	hasLimit bool
}

// Accountant holds the per-user reserved-bytes counters.
//
// All state lives behind one mutex: reservation must be a single
// check-and-commit, and a global section keeps the interaction between
// Reserve, SetUserLimit and the startup scan trivially correct.
type Accountant struct {
	mu           sync.Mutex
	defaultLimit int64
	records      map[string]*record
}

// NewAccountant creates an Accountant with the given default per-user limit
// in bytes (negative means unlimited).
func NewAccountant(defaultLimit int64) *Accountant {
	if defaultLimit < 0 {
		defaultLimit = Unlimited
	}
	return &Accountant{
		defaultLimit: defaultLimit,
		records:      make(map[string]*record),
	}
}

func (a *Accountant) recordFor(user string) *record {
	rec, ok := a.records[user]
	if !ok {
		rec = &record{}
		a.records[user] = rec
	}
	return rec
}

func (a *Accountant) limitOf(rec *record) int64 {
	if rec.hasLimit {
		return rec.limit
	}
	return a.defaultLimit
}

// Reserve atomically adds delta bytes to the user's reserved total. If the
// user's limit is non-negative and the new total would exceed it, nothing is
// committed and false is returned. The committed total is clamped at zero,
// so releasing more than was reserved cannot go negative.
func (a *Accountant) Reserve(user string, delta int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec := a.recordFor(user)
	next := rec.reserved + delta
	limit := a.limitOf(rec)

	if limit >= 0 && next > limit {
		metrics.QuotaReservations.WithLabelValues("rejected").Inc()
		return false
	}

	if next < 0 {
		next = 0
	}
	rec.reserved = next
	metrics.QuotaReservations.WithLabelValues("accepted").Inc()
	return true
}

// Available returns the remaining bytes before the user hits their limit,
// or a very large sentinel when unlimited.
func (a *Accountant) Available(user string) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec := a.recordFor(user)
	limit := a.limitOf(rec)
	if limit < 0 {
		return math.MaxInt64
	}
	return limit - rec.reserved
}

// SetUserLimit sets the user's limit in bytes. Any negative input is
// normalized to the single Unlimited sentinel.
//
// WARNING: a limit of exactly zero disables all writes for that user.
func (a *Accountant) SetUserLimit(user string, limit int64) {
	if limit < 0 {
		limit = Unlimited
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	rec := a.recordFor(user)
	rec.limit = limit
	rec.hasLimit = true
}

// SetUserReserved initializes the user's reserved counter, typically from a
// directory-size scan at startup. Negative input is clamped to zero.
func (a *Accountant) SetUserReserved(user string, reserved int64) {
	if reserved < 0 {
		reserved = 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.recordFor(user).reserved = reserved
}

// GetUserReserved returns the user's current reserved byte count.
func (a *Accountant) GetUserReserved(user string) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.recordFor(user).reserved
}

// GetUserLimit returns the user's effective limit (their own, or the
// default when none is set).
func (a *Accountant) GetUserLimit(user string) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.limitOf(a.recordFor(user))
}
