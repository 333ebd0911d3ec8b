package gc

// heap.go implements the block allocator: a
// round-robin first-fit search over a sorted, coalescing list of free
// block runs, backed by arenas acquired from a platform.MemorySource.
//
// One simplification from the original: GC_scratch_alloc exists because
// bdwgc's own bookkeeping (headers, the block index) has to live in the
// same raw address space it manages, so it needs a separate bump
// allocator to avoid recursing into the block allocator it's building.
// Here blockHeader and bottomIndex values are ordinary Go heap objects,
// managed by the host Go runtime's own collector, not by this one — so no
// scratch allocator is needed; see DESIGN.md.

// freeRun is stored directly in a blockHeader with free set: addr is the
// run's base, size (via bytes()) is its length in bytes, next chains runs
// in ascending address order.

// allocHblk finds or creates a free run of at least numBlocks blocks,
// splits off any remainder back onto the free list, and returns a fresh
// header for the allocated run (GC_allochblk).
func (c *Collector) allocHblk(numBlocks uintptr) *blockHeader {
	need := numBlocks * hblkSize

	h := c.findFreeRun(need)
	if h == nil {
		if !c.expandHeap(need) {
			return nil
		}
		h = c.findFreeRun(need)
		if h == nil {
			return nil
		}
	}

	c.removeFree(h)
	if h.bytes() > need {
		remainder := &blockHeader{addr: h.addr + need, size: h.bytes() - need, free: true}
		c.insertFree(remainder)
	}
	h.size = numBlocks // words field reinterpreted: in-use size starts as block count, refined by caller
	h.free = false
	h.theMap = invalidMap
	c.index.registerHeader(h)
	return h
}

// findFreeRun applies the round-robin-with-lookahead policy: starting from
// the cursor left by the previous search, it walks the sorted free list
// and, on finding a first fit, peeks at the next run too so a
// slightly-later but tighter fit is preferred when one is available,
// looking ahead one block before committing.
func (c *Collector) findFreeRun(need uintptr) *blockHeader {
	if c.freeList == nil {
		return nil
	}

	// Start from the cursor only while it is still on the free list; a block
	// allocated or merged away since the last search restarts at the head.
	start := c.freeList
	for f := c.freeList; f != nil; f = f.next {
		if f == c.freeCursor {
			start = f
			break
		}
	}

	var best *blockHeader
	cur := start
	visited := 0
	for cur != nil {
		total := c.countFree()
		if total == 0 {
			break
		}
		if visited >= total {
			break
		}
		visited++

		if cur.bytes() >= need {
			if !c.blackList.runIsClean(cur.addr, cur.addr+cur.bytes()) {
				cur = c.nextFree(cur)
				continue
			}
			if best == nil || cur.bytes() < best.bytes() {
				best = cur
				if best.bytes() == need {
					break
				}
				// look ahead exactly one more candidate
				nxt := c.nextFree(cur)
				if nxt != nil && nxt.bytes() >= need && nxt.bytes() < best.bytes() &&
					c.blackList.runIsClean(nxt.addr, nxt.addr+nxt.bytes()) {
					best = nxt
				}
				break
			}
		}
		cur = c.nextFree(cur)
	}

	if best == nil {
		// Blacklist pressure rejected every clean run; accept a dirty one.
		for cur := c.freeList; cur != nil; cur = cur.next {
			if cur.bytes() >= need {
				best = cur
				break
			}
		}
	}

	if best != nil {
		c.freeCursor = c.nextFree(best)
	}
	return best
}

func (c *Collector) nextFree(h *blockHeader) *blockHeader {
	if h.next != nil {
		return h.next
	}
	return c.freeList
}

func (c *Collector) countFree() int {
	n := 0
	for h := c.freeList; h != nil; h = h.next {
		n++
	}
	return n
}

// insertFree adds a free run, merging with an address-adjacent predecessor
// or successor so the list never accumulates adjacent fragments.
func (c *Collector) insertFree(h *blockHeader) {
	var prev *blockHeader
	cur := c.freeList
	for cur != nil && cur.addr < h.addr {
		prev = cur
		cur = cur.next
	}

	if prev != nil && prev.addr+prev.bytes() == h.addr {
		prev.size += h.bytes()
		h = prev
	} else if prev == nil {
		h.next = cur
		c.freeList = h
	} else {
		h.next = cur
		prev.next = h
	}

	if cur != nil && h.addr+h.bytes() == cur.addr {
		h.size += cur.bytes()
		h.next = cur.next
	}
}

// removeFree unlinks h from the free list without merging.
func (c *Collector) removeFree(h *blockHeader) {
	if c.freeList == h {
		c.freeList = h.next
		h.next = nil
		return
	}
	for cur := c.freeList; cur != nil; cur = cur.next {
		if cur.next == h {
			cur.next = h.next
			h.next = nil
			return
		}
	}
}

// freeHblk returns an in-use run to the free list (GC_freehblk).
// Double-freeing a run already marked free is a usage error
// the original treats as fatal; here it is reported through the
// collector's diagnostic stream instead of aborting the process.
func (c *Collector) freeHblk(h *blockHeader) {
	if h.free {
		c.diag.Fatalf("gc: double free of block at %#x", h.addr)
		return
	}
	c.index.removeCounts(h.addr, h.sizeWords()*wordSize)
	h.free = true
	h.kind = nil
	h.theMap = invalidMap
	h.marks = nil
	sizeBytes := numBlocksForWords(h.sizeWords()) * hblkSize
	h.size = sizeBytes
	c.insertFree(h)
}

// numBlocksForWords is the number of HBLKSIZE blocks needed to hold an
// allocation of sizeWords words.
func numBlocksForWords(sizeWords uintptr) uintptr {
	bytes := sizeWords * wordSize
	return (bytes + hblkSize - 1) / hblkSize
}

// expandHeap acquires a new arena from the platform's memory source and
// folds it into the free list, updating the plausible-heap bounds the
// mark engine range-rejects against.
func (c *Collector) expandHeap(minBytes uintptr) bool {
	grow := c.cfg.heapIncrementBytes(minBytes)
	if c.heapSizeBytes == 0 && c.cfg.InitialHeapBytes > grow {
		grow = ((c.cfg.InitialHeapBytes + hblkSize - 1) / hblkSize) * hblkSize
	}
	p := c.mem.Acquire(grow, hblkSize)
	if p == nil {
		// Retry once at exactly what's needed; the increment was only a
		// preference, not a requirement.
		grow = ((minBytes + hblkSize - 1) / hblkSize) * hblkSize
		p = c.mem.Acquire(grow, hblkSize)
		if p == nil {
			return false
		}
	}

	base := uintptr(p)
	if c.leastPlausibleHeapAddr == 0 || base < c.leastPlausibleHeapAddr {
		c.leastPlausibleHeapAddr = base
	}
	if base+grow > c.greatestPlausibleHeapAddr {
		c.greatestPlausibleHeapAddr = base + grow
	}
	c.heapSizeBytes += grow

	run := &blockHeader{addr: base, size: grow, free: true}
	c.insertFree(run)
	return true
}
