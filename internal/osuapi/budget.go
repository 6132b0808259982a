package osuapi

import (
	"context"
	"sync"
	"time"
)

const (
	budgetCapacity = 50
	refillInterval = 60 * time.Second
)

// Budget is a refillable counting semaphore gating every outbound call to
// the authoritative API, token exchanges included. Permits are returned when
// a call completes, and a replenisher additionally tops the pool back up to
// capacity on a fixed tick, so a burst can drain the pool and the next burst
// waits for the tick.
type Budget struct {
	permits chan struct{}
}

func NewBudget(capacity int) *Budget {
	b := &Budget{permits: make(chan struct{}, capacity)}
	b.refill()
	return b
}

// Acquire takes one permit, blocking until one is available or ctx is done.
func (b *Budget) Acquire(ctx context.Context) error {
	select {
	case <-b.permits:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns one permit. Returning more permits than the capacity is a
// no-op; the pool never exceeds its cap.
func (b *Budget) Release() {
	select {
	case b.permits <- struct{}{}:
	default:
	}
}

// Available reports the number of free permits.
func (b *Budget) Available() int { return len(b.permits) }

func (b *Budget) refill() {
	for {
		select {
		case b.permits <- struct{}{}:
		default:
			return
		}
	}
}

// Replenish runs the refill loop until ctx is cancelled, topping the pool
// back up to capacity every interval.
func (b *Budget) Replenish(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.refill()
		}
	}
}

var (
	sharedBudget    = NewBudget(budgetCapacity)
	replenisherOnce sync.Once
)

// SharedBudget returns the process-global upstream budget shared by the
// request pipeline and all sync workers.
func SharedBudget() *Budget { return sharedBudget }

// StartReplenisher starts the shared budget's refill loop. Safe to call more
// than once; only the first call starts the loop.
func StartReplenisher(ctx context.Context) {
	replenisherOnce.Do(func() {
		go sharedBudget.Replenish(ctx, refillInterval)
	})
}
