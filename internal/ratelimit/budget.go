package ratelimit

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultCeiling leaves headroom below the provider's 2,000 calls per period
// for booking re-validation.
const DefaultCeiling = 1800

// Budget caps upstream calls per billing period. The used counter only grows
// until ResetPeriod starts a new period.
type Budget struct {
	mu          sync.Mutex
	ceiling     int
	used        int
	reserved    int
	periodStart time.Time
	now         func() time.Time
}

type BudgetSnapshot struct {
	Ceiling     int       `json:"ceiling"`
	Used        int       `json:"used"`
	Reserved    int       `json:"reserved"`
	Remaining   int       `json:"remaining"`
	PeriodStart time.Time `json:"period_start"`
}

func NewBudget(ceiling int) *Budget {
	return NewBudgetWithClock(ceiling, time.Now)
}

func NewBudgetWithClock(ceiling int, now func() time.Time) *Budget {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	if now == nil {
		now = time.Now
	}
	return &Budget{
		ceiling:     ceiling,
		periodStart: now(),
		now:         now,
	}
}

// Admit counts cost calls as used if they fit, in one step.
func (b *Budget) Admit(cost int) bool {
	if cost <= 0 {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.used+b.reserved+cost > b.ceiling {
		return false
	}
	b.used += cost
	return true
}

// Reserve sets aside n calls for one strategy run. Either all n are reserved
// or none are.
func (b *Budget) Reserve(n int) (*Reservation, bool) {
	if n < 0 {
		n = 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.used+b.reserved+n > b.ceiling {
		return nil, false
	}
	b.reserved += n
	return &Reservation{budget: b, left: n}, true
}

// Remaining is the number of calls that can still be admitted or reserved.
func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remainingLocked()
}

func (b *Budget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

func (b *Budget) Snapshot() BudgetSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BudgetSnapshot{
		Ceiling:     b.ceiling,
		Used:        b.used,
		Reserved:    b.reserved,
		Remaining:   b.remainingLocked(),
		PeriodStart: b.periodStart,
	}
}

// ResetPeriod starts a new billing period. Outstanding reservations survive
// so in-flight strategies keep their calls.
func (b *Budget) ResetPeriod() {
	b.mu.Lock()
	defer b.mu.Unlock()

	log.Printf("Rate budget reset: %d/%d calls used in period started %s", b.used, b.ceiling, b.periodStart.Format(time.RFC3339))
	b.used = 0
	b.periodStart = b.now()
}

// StartPeriodResetter calls ResetPeriod every period until ctx is done. A
// non-positive period disables the timer.
func (b *Budget) StartPeriodResetter(ctx context.Context, period time.Duration) {
	if period <= 0 {
		return
	}

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				b.ResetPeriod()
			}
		}
	}()
}

func (b *Budget) remainingLocked() int {
	r := b.ceiling - b.used - b.reserved
	if r < 0 {
		return 0
	}
	return r
}

// Reservation is a block of calls held for one strategy. It is safe for use
// by the strategy's concurrent sub-queries.
type Reservation struct {
	budget *Budget
	mu     sync.Mutex
	left   int
	taken  int
	done   bool
}

// Take moves one reserved call to used. It must be called immediately before
// dispatching the upstream request, and reports false once the reservation
// is spent.
func (r *Reservation) Take() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done || r.left == 0 {
		return false
	}
	r.budget.mu.Lock()
	r.budget.reserved--
	r.budget.used++
	r.budget.mu.Unlock()

	r.left--
	r.taken++
	return true
}

// Release hands unused calls back to the budget. It is idempotent.
func (r *Reservation) Release() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done {
		return
	}
	r.done = true
	if r.left > 0 {
		r.budget.mu.Lock()
		r.budget.reserved -= r.left
		r.budget.mu.Unlock()
		r.left = 0
	}
}

func (r *Reservation) Taken() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.taken
}

func (r *Reservation) Left() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.left
}
