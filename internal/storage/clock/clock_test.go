package clock

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNow_StrictlyIncreasing(t *testing.T) {
	var c Clock
	prev := c.Now()
	for i := 0; i < 10_000; i++ {
		next := c.Now()
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestNow_ConcurrentCallersGetDistinctValues(t *testing.T) {
	var c Clock
	const goroutines = 16
	const perGoroutine = 500

	out := make([][]int64, goroutines)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			vals := make([]int64, 0, perGoroutine)
			for i := 0; i < perGoroutine; i++ {
				vals = append(vals, c.Now())
			}
			out[g] = vals
		}(g)
	}
	wg.Wait()

	var all []int64
	for _, vals := range out {
		all = append(all, vals...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	for i := 1; i < len(all); i++ {
		assert.NotEqual(t, all[i-1], all[i], "duplicate timestamp at %d", i)
	}
}
