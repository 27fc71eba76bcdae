package research

import "sync"

// Quota unit costs per external call class. Search calls dominate the
// budget, mirroring the upstream API's own pricing.
const (
	CostSearch      = 5
	CostDetailBatch = 1
	CostTranscript  = 1
	CostPageFetch   = 2
	CostExtraction  = 3
)

// QuotaMeter enforces a per-run external call budget. Spend is
// all-or-nothing: a call that would exceed the budget is refused and the
// phase winds down with what it has.
type QuotaMeter struct {
	mu     sync.Mutex
	budget int
	used   int
}

// NewQuotaMeter creates a meter with the given budget in units.
func NewQuotaMeter(budget int) *QuotaMeter {
	return &QuotaMeter{budget: budget}
}

// Spend reserves units, reporting whether the budget allowed it.
func (q *QuotaMeter) Spend(units int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.used+units > q.budget {
		return false
	}
	q.used += units
	return true
}

// Used returns the units consumed so far.
func (q *QuotaMeter) Used() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.used
}

// Remaining returns the units left in the budget.
func (q *QuotaMeter) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.budget - q.used
}
