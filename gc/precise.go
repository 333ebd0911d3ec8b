package gc

import "github.com/ivmai/go-bdwgc/gc/internal/gclayout"

// precise.go adds a typed
// allocation path alongside the conservative collector, the same way
// runtime/gc_precise.go keeps one beside its conservative scan: a client
// that can describe an object's pointer
// layout up front gets a mark procedure that skips non-pointer words
// instead of probing every word as a candidate address.
//
// Layouts are tracked in a side table keyed by object address rather than
// inside blockHeader, since most objects never get one and the bitset-heavy
// blockHeader already carries the conservative path's state.

// MallocTyped allocates size bytes of collectible storage described by
// layout. Passing gclayout.Unknown degrades to the same conservative scan
// Malloc uses.
func (c *Collector) MallocTyped(size uintptr, layout gclayout.Layout) uintptr {
	obj := c.allocate(size, KindNormal)
	if obj == 0 || layout == gclayout.Unknown {
		return obj
	}
	c.lock.Lock()
	c.objLayouts[obj] = layout
	c.lock.Unlock()
	return obj
}

// markNormalDispatch is KindNormal's actual mark procedure: objects with a
// registered layout get the precise scan, everything else falls back to
// the conservative one.
func markNormalDispatch(c *Collector, obj uintptr, sizeWords uintptr) {
	layout, ok := c.objLayouts[obj]
	if !ok || layout == gclayout.Unknown {
		markConservativeChildren(c, obj, sizeWords)
		return
	}
	if layout.PointerFree() {
		return
	}
	mask, period := layout.Bits()
	if period == 0 {
		markConservativeChildren(c, obj, sizeWords)
		return
	}
	end := obj + sizeWords*wordSize
	for base := obj; base < end; base += period * wordSize {
		for bit := uintptr(0); bit < period && base+bit*wordSize < end; bit++ {
			if mask&(1<<bit) == 0 {
				continue
			}
			word := base + bit*wordSize
			candidate := *(*uintptr)(ptrAt(word))
			c.markRoot(candidate, sourceHeap)
		}
	}
}
