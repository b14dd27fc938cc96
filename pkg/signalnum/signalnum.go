// Package signalnum implements the process-wide 20-bit signal-number
// allocator described in spec §4.3: a mutex-guarded counter, never zero,
// wrapping modulo 2^20 once exhausted.
package signalnum

import "sync"

// Mask is the 20-bit mask applied to every allocated number.
const Mask uint32 = 0x000FFFFF

// Allocator hands out signal numbers unique within the process that owns
// it. The zero value is ready to use.
type Allocator struct {
	mutex   sync.Mutex
	counter uint32
}

// New creates a fresh Allocator, counter initialized to 0.
func New() *Allocator {
	return &Allocator{}
}

// Next returns the next signal number: the counter incremented and masked
// to 20 bits, skipping zero. Per the open question in spec §9, this
// implementation does not panic on exhaustion — after 2^20-1 allocations
// it simply wraps and begins handing out numbers already in use by the
// caller's own bookkeeping; the allocator itself has no notion of which
// numbers are still live.
func (a *Allocator) Next() uint32 {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.counter = (a.counter + 1) & Mask

	if a.counter == 0 {
		a.counter = (a.counter + 1) & Mask
	}

	return a.counter
}
