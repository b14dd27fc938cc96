package signalnum

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextNeverZero(t *testing.T) {
	a := New()

	for i := 0; i < 10_000; i++ {
		n := a.Next()
		require.NotZero(t, n)
		require.LessOrEqual(t, n, Mask)
	}
}

func TestNextIsMonotonicUnderContention(t *testing.T) {
	a := New()
	seen := make(map[uint32]int)
	var mutex sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				n := a.Next()
				mutex.Lock()
				seen[n]++
				mutex.Unlock()
			}
		}()
	}

	wg.Wait()
	// A strictly increasing shared counter never repeats a number, so all
	// 8*1000 allocations must be distinct.
	require.Len(t, seen, 8*1000)
}

func TestNextWrapsSkippingZero(t *testing.T) {
	a := &Allocator{counter: Mask - 1}

	first := a.Next()
	require.Equal(t, Mask, first)

	second := a.Next()
	require.Equal(t, uint32(1), second)
}
