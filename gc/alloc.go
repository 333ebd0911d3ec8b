package gc

import "unsafe"

// Malloc allocates size bytes of zero-initialized, collectible,
// pointer-containing storage (GC_malloc). The returned
// address is only valid as long as something — a root, or another
// reachable object — keeps pointing at it.
func (c *Collector) Malloc(size uintptr) uintptr {
	return c.allocate(size, KindNormal)
}

// MallocAtomic allocates storage the collector will never scan for
// outgoing pointers (GC_malloc_atomic): use it for buffers, strings, or
// anything else known never to hold a reference, for the scan-time
// savings that are pointer-free storage's whole point.
func (c *Collector) MallocAtomic(size uintptr) uintptr {
	return c.allocate(size, KindPointerFree)
}

// MallocUncollectable allocates storage the collector scans like Malloc
// but will never reclaim on its own; the client must call Free
// explicitly (GC_malloc_uncollectable). Useful for long-lived objects
// whose lifetime is managed by hand but that still need to hold
// collector-visible pointers into the collected heap.
func (c *Collector) MallocUncollectable(size uintptr) uintptr {
	return c.allocate(size, KindUncollectable)
}

// allocate is the shared path behind every *Malloc* variant.
func (c *Collector) allocate(byteSize uintptr, kind Kind) uintptr {
	c.lock.Lock()
	defer c.lock.Unlock()

	if byteSize == 0 {
		byteSize = 1
	}
	sizeWords := c.sizeTable.roundedSize(byteSize)
	k := c.kindFor(kind)

	var addr uintptr
	if sizeWords <= maxObjSz {
		addr = c.allocSmallLocked(k, sizeWords)
	} else {
		addr = c.allocLargeLocked(k, sizeWords)
	}
	if addr == 0 {
		return 0
	}

	c.wordsAllocd += sizeWords
	c.sinceLastGC += sizeWords
	zeroMemory(addr, sizeWords*wordSize)
	return addr
}

// allocSmallLocked returns an object of exactly sizeWords words from k's
// free list, sweeping the next pending block or growing the heap as
// needed.
func (c *Collector) allocSmallLocked(k *objKind, sizeWords uintptr) uintptr {
	if addr := c.continueReclaim(k, sizeWords); addr != 0 {
		return addr
	}

	if c.shouldCollect() {
		c.collectLocked()
		if addr := c.continueReclaim(k, sizeWords); addr != 0 {
			return addr
		}
	}

	h := c.allocHblk(1)
	if h == nil {
		c.collectLocked()
		h = c.allocHblk(1)
		if h == nil {
			return 0
		}
	}

	h.kind = k
	h.size = sizeWords
	h.theMap = c.objMaps.get(sizeWords)
	h.marks = newBitset(bodyWordsForSize(sizeWords))

	bodyWords := hblkSize / wordSize
	first := h.addr
	for start := sizeWords; start+sizeWords <= bodyWords; start += sizeWords {
		slot := h.addr + start*wordSize
		*(*uintptr)(ptrAt(slot)) = k.freeList[sizeWords]
		k.freeList[sizeWords] = slot
	}
	return first
}

// allocLargeLocked allocates a whole-block-multiple object directly; the
// original's notion of a free list doesn't apply above MAXOBJSZ, so large
// requests skip it entirely.
func (c *Collector) allocLargeLocked(k *objKind, sizeWords uintptr) uintptr {
	numBlocks := numBlocksForWords(sizeWords)

	h := c.allocHblk(numBlocks)
	if h == nil {
		c.collectLocked()
		h = c.allocHblk(numBlocks)
		if h == nil {
			return 0
		}
	}

	h.kind = k
	h.size = sizeWords
	h.theMap = invalidMap
	h.marks = newBitset(1)
	c.index.installCounts(h.addr, numBlocks*hblkSize, h)
	return h.addr
}

// Free returns obj to its kind's free list (small objects) or straight
// back to the block allocator (large objects), and drops any finalizer or
// disappearing-link registrations for it — the "drop dangling" pass that
// keeps a finalizer from ever firing for memory the client already took
// back by hand.
func (c *Collector) Free(obj uintptr) {
	c.lock.Lock()
	defer c.lock.Unlock()

	h := c.index.header(hblkAligned(obj))
	if h == nil || h.free {
		return
	}

	delete(c.finalizers, obj)
	delete(c.objLayouts, obj)
	for key, target := range c.disappearing {
		if target == obj {
			delete(c.disappearing, key)
		}
	}

	if h.sizeWords() > maxObjSz {
		c.freeHblk(h)
		return
	}

	sizeWords := h.sizeWords()
	bitIndex := (obj - h.addr) / wordSize
	h.marks.clear(bitIndex)

	if k := h.kind; k != nil {
		if c.removeFromReclaimQueue(k, sizeWords, h) {
			c.sweepBlock(h, k, sizeWords)
			return
		}
	}

	*(*uintptr)(ptrAt(obj)) = h.kind.freeList[sizeWords]
	h.kind.freeList[sizeWords] = obj
	c.explicitFreed += sizeWords
}

// removeFromReclaimQueue unlinks h from k's pending-sweep queue for
// sizeWords if it is currently on it, reporting whether it was found.
func (c *Collector) removeFromReclaimQueue(k *objKind, sizeWords uintptr, h *blockHeader) bool {
	if k.reclaimQueue[sizeWords] == h {
		k.reclaimQueue[sizeWords] = h.next
		h.next = nil
		return true
	}
	for cur := k.reclaimQueue[sizeWords]; cur != nil; cur = cur.next {
		if cur.next == h {
			cur.next = h.next
			h.next = nil
			return true
		}
	}
	return false
}

// Base returns the start address of the object p points into, or 0 if p
// is not a pointer the collector recognizes (GC_base).
func (c *Collector) Base(p uintptr) uintptr {
	c.lock.Lock()
	defer c.lock.Unlock()
	base, _, ok := c.resolveBase(p)
	if !ok {
		return 0
	}
	return base
}

// Size returns the usable size in bytes of the object at base, or 0 if
// base is not a recognized object start (GC_size).
func (c *Collector) Size(base uintptr) uintptr {
	c.lock.Lock()
	defer c.lock.Unlock()
	resolved, h, ok := c.resolveBase(base)
	if !ok || resolved != base {
		return 0
	}
	return h.sizeWords() * wordSize
}

// Realloc grows or shrinks obj, copying existing content into a fresh
// allocation when the current block cannot satisfy the new size in place
// (GC_realloc). A newSize of 0 behaves like Free.
func (c *Collector) Realloc(obj uintptr, newSize uintptr) uintptr {
	if obj == 0 {
		return c.Malloc(newSize)
	}
	if newSize == 0 {
		c.Free(obj)
		return 0
	}

	oldSize := c.Size(obj)
	if oldSize == 0 {
		return 0
	}
	if newSize <= oldSize {
		// Shrinking in place is always safe, but the freed tail must be
		// zeroed: a stray word left over from the old content can look like
		// a pointer to the next mark phase and keep memory alive that
		// nothing references anymore.
		zeroMemory(obj+newSize, oldSize-newSize)
		return obj
	}

	fresh := c.Malloc(newSize)
	if fresh == 0 {
		return 0
	}
	copyBytes(fresh, obj, oldSize)
	c.Free(obj)
	return fresh
}

func zeroMemory(addr, n uintptr) {
	b := unsafe.Slice((*byte)(ptrAt(addr)), int(n))
	for i := range b {
		b[i] = 0
	}
}

func copyBytes(dst, src, n uintptr) {
	d := unsafe.Slice((*byte)(ptrAt(dst)), int(n))
	s := unsafe.Slice((*byte)(ptrAt(src)), int(n))
	copy(d, s)
}
