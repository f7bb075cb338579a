package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetAdmit(t *testing.T) {
	b := NewBudget(3)

	assert.True(t, b.Admit(2))
	assert.False(t, b.Admit(2))
	assert.True(t, b.Admit(1))
	assert.False(t, b.Admit(1))
	assert.Equal(t, 3, b.Used())
	assert.Equal(t, 0, b.Remaining())
}

func TestBudgetDefaultCeiling(t *testing.T) {
	b := NewBudget(0)
	assert.Equal(t, DefaultCeiling, b.Snapshot().Ceiling)
}

func TestReservationIsAllOrNothing(t *testing.T) {
	b := NewBudget(10)

	r, ok := b.Reserve(6)
	require.True(t, ok)
	assert.Equal(t, 4, b.Remaining())

	_, ok = b.Reserve(5)
	assert.False(t, ok, "a strategy is never started partially")

	snap := b.Snapshot()
	assert.Equal(t, 0, snap.Used)
	assert.Equal(t, 6, snap.Reserved)

	require.True(t, r.Take())
	require.True(t, r.Take())
	r.Release()
	r.Release()

	snap = b.Snapshot()
	assert.Equal(t, 2, snap.Used)
	assert.Equal(t, 0, snap.Reserved)
	assert.Equal(t, 8, snap.Remaining)
	assert.False(t, r.Take(), "released reservations cannot dispatch")
}

func TestReservationTakeStopsAtLimit(t *testing.T) {
	b := NewBudget(10)
	r, ok := b.Reserve(2)
	require.True(t, ok)

	assert.True(t, r.Take())
	assert.True(t, r.Take())
	assert.False(t, r.Take())
	assert.Equal(t, 2, r.Taken())
	assert.Equal(t, 0, r.Left())
}

func TestAdmitRespectsReservations(t *testing.T) {
	b := NewBudget(5)
	_, ok := b.Reserve(4)
	require.True(t, ok)

	assert.True(t, b.Admit(1))
	assert.False(t, b.Admit(1))
}

func TestResetPeriod(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	b := NewBudgetWithClock(2, func() time.Time { return now })
	require.True(t, b.Admit(2))

	now = now.Add(24 * time.Hour)
	b.ResetPeriod()

	snap := b.Snapshot()
	assert.Equal(t, 0, snap.Used)
	assert.Equal(t, 2, snap.Remaining)
	assert.Equal(t, now, snap.PeriodStart)
}

func TestStartPeriodResetter(t *testing.T) {
	b := NewBudget(1)
	require.True(t, b.Admit(1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.StartPeriodResetter(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool { return b.Remaining() == 1 }, time.Second, 5*time.Millisecond)
}

func TestBudgetNeverExceedsCeilingUnderConcurrency(t *testing.T) {
	const ceiling = 50
	b := NewBudget(ceiling)

	var dispatched atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				if b.Admit(1) {
					dispatched.Add(1)
				}
				return
			}
			r, ok := b.Reserve(3)
			if !ok {
				return
			}
			defer r.Release()
			for r.Take() {
				dispatched.Add(1)
			}
		}(i)
	}
	wg.Wait()

	snap := b.Snapshot()
	assert.LessOrEqual(t, snap.Used, ceiling)
	assert.Equal(t, 0, snap.Reserved)
	assert.Equal(t, int64(snap.Used), dispatched.Load())
}
