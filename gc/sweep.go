package gc

// sweep.go defers reclaiming swept space until it's actually needed:
// rather than walking the whole heap at the
// end of a cycle, every block is dropped onto its kind's per-size reclaim
// queue, and only gets swept object-by-object the next time an allocation
// of that exact size has nothing left on the free list.

// startReclaim is called once a mark phase finishes. It resets every
// kind's free lists and reclaim queues, then refiles every collectible
// small-object block onto its kind's reclaim queue and disposes of large
// objects immediately: large objects are one-off blocks, so
// there is nothing to amortize by deferring them.
func (c *Collector) startReclaim() {
	for _, k := range c.kinds {
		for i := range k.freeList {
			k.freeList[i] = 0
		}
		for i := range k.reclaimQueue {
			k.reclaimQueue[i] = nil
		}
	}

	var large []*blockHeader
	c.index.applyToAllBlocks(func(h *blockHeader) {
		if !h.kind.collectible {
			h.marks.clearAll()
			return
		}
		if h.sizeWords() > maxObjSz {
			large = append(large, h)
			return
		}
		h.next = h.kind.reclaimQueue[h.sizeWords()]
		h.kind.reclaimQueue[h.sizeWords()] = h
	})

	for _, h := range large {
		if h.marks.get(0) {
			h.marks.clearAll()
			continue
		}
		c.freeHblk(h)
	}
}

// continueReclaim returns the address of a free object of the given size
// and kind, sweeping blocks off the reclaim queue lazily until it finds
// one or runs out (GC_continue_reclaim / GC_reclaim_generic).
// Zero means the caller must grow the heap.
func (c *Collector) continueReclaim(kind *objKind, sizeWords uintptr) uintptr {
	for {
		if addr := kind.freeList[sizeWords]; addr != 0 {
			kind.freeList[sizeWords] = *(*uintptr)(ptrAt(addr))
			return addr
		}
		h := kind.reclaimQueue[sizeWords]
		if h == nil {
			return 0
		}
		kind.reclaimQueue[sizeWords] = h.next
		h.next = nil
		c.sweepBlock(h, kind, sizeWords)
	}
}

// sweepBlock walks every object slot in h, clearing mark bits as it goes
// (so the next cycle starts from zero) and chaining unmarked slots onto
// the kind's free list. If the whole block turns out to be garbage it is
// returned to the block allocator instead of kept as a sparse free list.
func (c *Collector) sweepBlock(h *blockHeader, kind *objKind, sizeWords uintptr) {
	bodyWords := hblkSize / wordSize
	anyLive := false
	var freed []uintptr
	for start := uintptr(0); start+sizeWords <= bodyWords; start += sizeWords {
		if h.marks.get(start) {
			anyLive = true
		} else {
			freed = append(freed, h.addr+start*wordSize)
		}
	}
	h.marks.clearAll()

	if !anyLive {
		c.freeHblk(h)
		return
	}

	for _, addr := range freed {
		delete(c.objLayouts, addr)
		*(*uintptr)(ptrAt(addr)) = kind.freeList[sizeWords]
		kind.freeList[sizeWords] = addr
	}
	h.lastReclaimed = c.generation
	h.kind = kind
}
