package gc

// markStackEntry is a pending scan: an object that was just marked and
// still needs its children (if any) pushed. Unlike the original's raw
// (start, end) word-pointer-pair stack, we carry the object's kind directly
// so draining can dispatch to a custom mark procedure without a second
// header lookup.
type markStackEntry struct {
	obj       uintptr
	sizeWords uintptr
	kind      *objKind
}

// markStackCap bounds the mark stack the way the original's fixed-size
// array does; overflow is handled by a remark pass, not by growing
// unboundedly.
const markStackCap = 4096

type markEngine struct {
	stack    [markStackCap]markStackEntry
	top      int
	overflow bool
}

func (m *markEngine) push(e markStackEntry) {
	if m.top >= markStackCap {
		m.overflow = true
		return
	}
	m.stack[m.top] = e
	m.top++
}

func (m *markEngine) pop() (markStackEntry, bool) {
	if m.top == 0 {
		return markStackEntry{}, false
	}
	m.top--
	return m.stack[m.top], true
}

// markRange treats every aligned word in [start, end) as a potential
// pointer, the conservative scan. It is used both to push
// roots and, via a kind's mark procedure, to scan an object's own body —
// scanning an object's children is nothing more than treating its words as
// roots one level deeper.
func (c *Collector) markRange(start, end uintptr, source scanSource) {
	for a := start; a+wordSize <= end; a += wordSize {
		candidate := *(*uintptr)(ptrAt(a))
		c.markRoot(candidate, source)
	}
}

// scanRange is the per-kind mark procedure's entry point for scanning an
// object's body; kept as a distinct name from markRange so kinds.go reads
// naturally, but it is the same conservative scan.
func (c *Collector) scanRange(start, end uintptr, source scanSource) {
	c.markRange(start, end, source)
}

// markRoot implements the five-step pointer test for a single
// candidate value p seen at a root or inside an object body.
func (c *Collector) markRoot(p uintptr, source scanSource) {
	base, h, ok := c.resolveBase(p)
	if !ok {
		c.addToBlackList(p, source)
		return
	}

	// Step 5: set the mark bit; push children only if this is new.
	bitIndex := (base - h.addr) / wordSize
	if h.marks.get(bitIndex) {
		return
	}
	h.marks.set(bitIndex)
	c.markEngineState.push(markStackEntry{obj: base, sizeWords: h.size, kind: h.kind})
}

// resolveBase is steps 1-4 of the pointer test, shared by markRoot and by
// Base/Size, which need the same resolution but must never black-list or
// mark as a side effect of merely asking "what object is this".
func (c *Collector) resolveBase(p uintptr) (base uintptr, h *blockHeader, ok bool) {
	if p < c.leastPlausibleHeapAddr || p > c.greatestPlausibleHeapAddr {
		return 0, nil, false
	}
	if p%wordSize != 0 {
		return 0, nil, false
	}

	block := hblkAligned(p)
	h = c.index.header(block)
	if h == nil || h.free {
		return 0, nil, false
	}

	if h.sizeWords() > maxObjSz {
		if p < h.addr || p >= h.addr+h.size*wordSize {
			return 0, nil, false
		}
		return h.addr, h, true
	}

	wordOffset := (p - block) / wordSize
	disp := h.theMap.displacementAt(wordOffset)
	if disp == objInvalid {
		return 0, nil, false
	}
	return p - uintptr(disp)*wordSize, h, true
}

// drainMarkStack pops entries until the stack is empty, dispatching each to
// its kind's mark procedure.
func (c *Collector) drainMarkStack() {
	for {
		e, ok := c.markEngineState.pop()
		if !ok {
			return
		}
		e.kind.mark(c, e.obj, e.sizeWords)
	}
}

// finishMark drains the mark stack and, if it ever overflowed, performs
// remark passes: re-walk every marked object and re-push its children,
// until a full drain completes without another overflow: overflow is
// recoverable, not fatal.
func (c *Collector) finishMark() {
	c.drainMarkStack()
	for c.markEngineState.overflow {
		c.markEngineState.overflow = false
		c.index.applyToAllBlocks(func(h *blockHeader) {
			if h.sizeWords() > maxObjSz {
				if h.marks.get(0) {
					c.markEngineState.push(markStackEntry{obj: h.addr, sizeWords: h.size, kind: h.kind})
				}
				return
			}
			bodyWords := hblkSize / wordSize
			for i := uintptr(0); i < bodyWords; i += h.size {
				if h.marks.get(i) {
					c.markEngineState.push(markStackEntry{obj: h.addr + i*wordSize, sizeWords: h.size, kind: h.kind})
				}
			}
		})
		c.drainMarkStack()
	}
}
