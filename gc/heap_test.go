package gc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocHblkSplitsRemainderOntoFreeList(t *testing.T) {
	c := New()
	require.True(t, c.expandHeap(hblkSize*4))

	h := c.allocHblk(1)
	require.NotNil(t, h)
	require.False(t, h.free)

	var total uintptr
	for f := c.freeList; f != nil; f = f.next {
		total += f.bytes()
	}
	require.Equal(t, c.heapSizeBytes-hblkSize, total, "remainder after taking 1 block of the acquired arena should stay free")
}

func TestFreeHblkCoalescesWithNeighbors(t *testing.T) {
	c := New()
	require.True(t, c.expandHeap(hblkSize*4))

	a := c.allocHblk(1)
	b := c.allocHblk(1)
	require.NotNil(t, a)
	require.NotNil(t, b)

	a.size = 1
	b.size = 1
	c.freeHblk(a)
	c.freeHblk(b)

	// With both neighbors free again, the list should have coalesced back
	// down to (close to) the original single run rather than staying
	// fragmented into two 1-block entries plus the original remainder.
	count := 0
	for f := c.freeList; f != nil; f = f.next {
		count++
	}
	require.LessOrEqual(t, count, 2, "adjacent frees should coalesce")
}

func TestDoubleFreeHblkReportsFatal(t *testing.T) {
	c := New()
	require.True(t, c.expandHeap(hblkSize*2))
	h := c.allocHblk(1)
	h.size = 1
	c.freeHblk(h)

	var msg string
	c.diag.OnFatal = func(m string) { msg = m }
	c.freeHblk(h)
	require.Contains(t, msg, "double free")
}

func TestExpandHeapUpdatesPlausibleBounds(t *testing.T) {
	c := New()
	require.Zero(t, c.leastPlausibleHeapAddr)
	require.True(t, c.expandHeap(hblkSize))
	require.NotZero(t, c.leastPlausibleHeapAddr)
	require.Greater(t, c.greatestPlausibleHeapAddr, c.leastPlausibleHeapAddr)
}
