package gc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func rootRangeOf(v *uintptr) (uintptr, uintptr) {
	addr := uintptr(unsafe.Pointer(v))
	return addr, addr + wordSize
}

func TestMallocBaseAndSizeRoundTrip(t *testing.T) {
	c := New()
	addr := c.Malloc(24)
	require.NotZero(t, addr)
	require.Equal(t, addr, c.Base(addr))
	require.GreaterOrEqual(t, c.Size(addr), uintptr(24))
}

func TestMallocZerosMemory(t *testing.T) {
	c := New()
	addr := c.Malloc(64)
	b := unsafe.Slice((*byte)(ptrAt(addr)), 64)
	for i, v := range b {
		require.Zerof(t, v, "byte %d not zeroed", i)
	}
}

func TestRootedObjectSurvivesCollection(t *testing.T) {
	c := New()
	addr := c.Malloc(32)

	var root uintptr = addr
	start, end := rootRangeOf(&root)
	c.RegisterRoots(start, end)

	c.Collect()
	require.True(t, c.objectMarked(addr), "rooted object should be marked live after a cycle")
}

func TestUnrootedObjectIsReclaimed(t *testing.T) {
	c := New()
	addr := c.Malloc(16)
	sizeWords := c.sizeTable.roundedSize(16)
	k := c.kindFor(KindNormal)

	c.Collect() // nothing roots addr

	got := c.continueReclaim(k, sizeWords)
	require.Zero(t, got, "a block with no marked object goes back to the block allocator, not onto the free list")
	require.Zero(t, c.Base(addr), "the unrooted object's block must have been handed back")
}

func TestUncollectableSurvivesWithoutRoots(t *testing.T) {
	c := New()
	addr := c.MallocUncollectable(16)
	c.Collect()
	c.Collect()
	// still resolvable: an uncollectable block is never handed back to the
	// allocator on its own.
	require.Equal(t, addr, c.Base(addr))
}

func TestFinalizerRunsWhenUnreachable(t *testing.T) {
	c := New()
	addr := c.Malloc(16)

	var ran bool
	var gotObj uintptr
	c.RegisterFinalizer(addr, func(obj uintptr, data interface{}) {
		ran = true
		gotObj = obj
	}, nil)

	c.Collect()

	require.True(t, ran)
	require.Equal(t, addr, gotObj)
	require.Equal(t, 0, c.InvokeFinalizers(), "finalizer queue already drained by Collect")
}

func TestFinalizerDoesNotRunWhileRooted(t *testing.T) {
	c := New()
	addr := c.Malloc(16)

	var root uintptr = addr
	start, end := rootRangeOf(&root)
	c.RegisterRoots(start, end)

	var ran bool
	c.RegisterFinalizer(addr, func(uintptr, interface{}) { ran = true }, nil)

	c.Collect()
	require.False(t, ran)
}

func TestChainedFinalizationDefersResurrectedObject(t *testing.T) {
	c := New()
	b := c.Malloc(16)
	a := c.Malloc(wordSize)
	*(*uintptr)(ptrAt(a)) = b

	var aRan, bRan bool
	c.RegisterFinalizer(a, func(uintptr, interface{}) { aRan = true }, nil)
	c.RegisterFinalizer(b, func(uintptr, interface{}) { bRan = true }, nil)

	c.Collect()
	require.True(t, aRan, "a is unreachable except through its own finalizer and must finalize")
	require.False(t, bRan, "b is only reachable through a's body and must survive this cycle")
	require.True(t, c.objectMarked(b), "b must be resurrected by a's body scan")

	c.Collect()
	require.True(t, bRan, "b must finalize once nothing resurrects it anymore")
}

func TestDisappearingLinkClearedOnCollection(t *testing.T) {
	c := New()
	addr := c.Malloc(16)

	var link uintptr = addr
	loc := uintptr(unsafe.Pointer(&link))
	c.RegisterDisappearingLink(loc, addr)

	c.Collect()
	require.Zero(t, link, "disappearing link must be zeroed once its target is unreachable")
}

func TestDisappearingLinkSurvivesWhenTargetRooted(t *testing.T) {
	c := New()
	addr := c.Malloc(16)

	var root uintptr = addr
	rs, re := rootRangeOf(&root)
	c.RegisterRoots(rs, re)

	var link uintptr = addr
	c.RegisterDisappearingLink(uintptr(unsafe.Pointer(&link)), addr)

	c.Collect()
	require.Equal(t, addr, link)
}

func TestFreeDropsFinalizerAndDisappearingLink(t *testing.T) {
	c := New()
	addr := c.Malloc(16)

	var ran bool
	c.RegisterFinalizer(addr, func(uintptr, interface{}) { ran = true }, nil)

	var link uintptr = addr
	c.RegisterDisappearingLink(uintptr(unsafe.Pointer(&link)), addr)

	c.Free(addr)
	c.Collect()

	require.False(t, ran, "explicitly freed object must not be finalized later")
}

func TestReallocGrowsAndPreservesContent(t *testing.T) {
	c := New()
	addr := c.Malloc(8)
	*(*uint64)(ptrAt(addr)) = 0xdeadbeef

	grown := c.Realloc(addr, 256)
	require.NotZero(t, grown)
	require.Equal(t, uint64(0xdeadbeef), *(*uint64)(ptrAt(grown)))
}

func TestReallocShrinkIsInPlace(t *testing.T) {
	c := New()
	addr := c.Malloc(256)
	shrunk := c.Realloc(addr, 8)
	require.Equal(t, addr, shrunk)
}

func TestExpandHeapGrowsPlausibleBounds(t *testing.T) {
	c := New()
	before := c.greatestPlausibleHeapAddr
	require.True(t, c.ExpandHeap(hblkSize*8))
	require.Greater(t, c.greatestPlausibleHeapAddr, before)
}
