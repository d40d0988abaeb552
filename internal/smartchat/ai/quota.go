package ai

import (
	"sync"
	"time"
)

// DefaultDailyQuota caps generative calls per day, kept safely under the
// provider's free-tier ceiling.
const DefaultDailyQuota = 1400

// QuotaCounter tracks generative usage with a daily reset. The counter
// rolls over lazily when the calendar day changes, so no background timer
// is needed. Safe for concurrent use.
type QuotaCounter struct {
	mu       sync.Mutex
	used     int
	limit    int
	resetDay string
	now      func() time.Time
}

// QuotaSnapshot is a point-in-time view of the counter for stats endpoints.
type QuotaSnapshot struct {
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	ResetDay  string `json:"resetDay"`
}

// NewQuotaCounter creates a counter with the given daily limit. A limit of
// zero or less falls back to DefaultDailyQuota.
func NewQuotaCounter(limit int) *QuotaCounter {
	return NewQuotaCounterAt(limit, time.Now)
}

// NewQuotaCounterAt creates a counter with an injected clock for tests.
func NewQuotaCounterAt(limit int, now func() time.Time) *QuotaCounter {
	if limit <= 0 {
		limit = DefaultDailyQuota
	}
	return &QuotaCounter{
		limit:    limit,
		resetDay: now().Format(time.DateOnly),
		now:      now,
	}
}

// rolloverLocked zeroes the counter when the calendar day has changed.
func (q *QuotaCounter) rolloverLocked() {
	day := q.now().Format(time.DateOnly)
	if day != q.resetDay {
		q.used = 0
		q.resetDay = day
	}
}

// Exhausted reports whether today's budget is spent.
func (q *QuotaCounter) Exhausted() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rolloverLocked()
	return q.used >= q.limit
}

// Increment records one successful generative call.
func (q *QuotaCounter) Increment() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rolloverLocked()
	q.used++
}

// Snapshot returns the current usage after applying any pending rollover.
func (q *QuotaCounter) Snapshot() QuotaSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rolloverLocked()
	return QuotaSnapshot{
		Used:      q.used,
		Limit:     q.limit,
		Remaining: q.limit - q.used,
		ResetDay:  q.resetDay,
	}
}
