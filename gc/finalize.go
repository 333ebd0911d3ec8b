package gc

import "github.com/ivmai/go-bdwgc/gc/internal/queue"

// FinalizerFunc is invoked once an object is unreachable both from the
// roots and from the bodies of other objects with registered finalizers;
// an object reachable only through another finalizable object waits for a
// later cycle. clientData is whatever was registered alongside the object.
type FinalizerFunc func(obj uintptr, clientData interface{})

type finalizerRec struct {
	proc FinalizerFunc
	data interface{}
}

// pendingFinalization is one entry on the finalize-now queue: an object
// that finished this cycle unreachable, its children resurrected and its
// own mark bit set by the two-pass algorithm below so that this cycle's
// sweep leaves it intact for its finalizer.
type pendingFinalization struct {
	obj  uintptr
	proc FinalizerFunc
	data interface{}
	next queue.Node
}

func (p *pendingFinalization) NextNode() queue.Node     { return p.next }
func (p *pendingFinalization) SetNextNode(n queue.Node) { p.next = n }

// RegisterFinalizer attaches proc to obj, returning whatever was
// previously registered so the caller can chain finalizers the way
// GC_register_finalizer does. A nil proc removes any existing
// registration without adding a new one.
func (c *Collector) RegisterFinalizer(obj uintptr, proc FinalizerFunc, data interface{}) (FinalizerFunc, interface{}) {
	c.lock.Lock()
	defer c.lock.Unlock()

	old := c.finalizers[obj]
	var oldProc FinalizerFunc
	var oldData interface{}
	if old != nil {
		oldProc, oldData = old.proc, old.data
	}
	if proc == nil {
		delete(c.finalizers, obj)
	} else {
		c.finalizers[obj] = &finalizerRec{proc: proc, data: data}
	}
	return oldProc, oldData
}

// RegisterDisappearingLink asks that *location be zeroed if obj is ever
// collected without anything else keeping it alive — the location itself
// does not count as a reference to obj: the pointer is stored hidden.
func (c *Collector) RegisterDisappearingLink(location, obj uintptr) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.disappearing[hide(location)] = obj
}

// UnregisterDisappearingLink cancels a previously registered link.
func (c *Collector) UnregisterDisappearingLink(location uintptr) {
	c.lock.Lock()
	defer c.lock.Unlock()
	delete(c.disappearing, hide(location))
}

// runFinalizationPass runs between the initial mark (finishMark) and
// reclaim. Anything with a registered finalizer that the initial pass
// left unmarked is genuinely unreachable from the client's perspective,
// but its fields might still point at other such objects, so each one's
// closure is remarked before the finalizer queue takes ownership of it —
// exactly the resurrection the original's GC_finalize performs before
// GC_invoke_finalizers is allowed to touch anything.
func (c *Collector) runFinalizationPass() {
	if !c.cfg.EnableFinalizers {
		c.clearDanglingLinks()
		return
	}

	var candidates []uintptr
	for obj := range c.finalizers {
		if !c.objectMarked(obj) {
			candidates = append(candidates, obj)
		}
	}

	for _, obj := range candidates {
		c.resurrectChildren(obj)
	}

	// Only candidates still unmarked after every resurrection pass ran are
	// genuinely unreachable this cycle: one candidate's closure can pull in
	// another, in which case that one stays alive and waits for its own
	// finalizer to drop it next time (chained finalization, A -> B).
	var queued []uintptr
	for _, obj := range candidates {
		if c.objectMarked(obj) {
			continue
		}
		rec := c.finalizers[obj]
		delete(c.finalizers, obj)
		c.finalizeQueue.Push(&pendingFinalization{obj: obj, proc: rec.proc, data: rec.data})
		queued = append(queued, obj)
	}

	c.clearDanglingLinks()

	// Links to the queued objects are cleared above; now mark the objects
	// themselves so the sweep keeps them until a later cycle.
	for _, obj := range queued {
		if h := c.index.header(hblkAligned(obj)); h != nil && !h.free {
			h.marks.set((obj - h.addr) / wordSize)
		}
	}
}

// objectMarked reports whether obj's mark bit is currently set.
func (c *Collector) objectMarked(obj uintptr) bool {
	h := c.index.header(hblkAligned(obj))
	if h == nil || h.free {
		return false
	}
	bitIndex := (obj - h.addr) / wordSize
	return h.marks.get(bitIndex)
}

// resurrectChildren scans obj's own body for outgoing pointers and marks
// whatever it finds reachable, without marking obj itself: obj is only a
// finalization candidate, not something a root points at, so its fate still
// depends on whether anything else (another candidate's resurrected
// closure, say) turns out to reference it.
func (c *Collector) resurrectChildren(obj uintptr) {
	h := c.index.header(hblkAligned(obj))
	if h == nil || h.free {
		return
	}
	c.scanRange(obj, obj+h.sizeWords()*wordSize, sourceHeap)
	c.drainMarkStack()
}

// clearDanglingLinks zeroes every disappearing link whose target did not
// survive marking (including the resurrection pass above), and removes
// the link so it isn't checked again next cycle.
func (c *Collector) clearDanglingLinks() {
	for key, target := range c.disappearing {
		if !c.objectMarked(target) {
			loc := reveal(key)
			*(*uintptr)(ptrAt(loc)) = 0
			delete(c.disappearing, key)
		}
	}
}

// InvokeFinalizers runs every finalizer currently queued, outside any
// internal lock: a finalizer is arbitrary client code that may itself
// allocate or register further finalizers (GC_invoke_finalizers). It
// returns how many ran.
func (c *Collector) InvokeFinalizers() int {
	n := 0
	for {
		node := c.finalizeQueue.Pop()
		if node == nil {
			return n
		}
		p := node.(*pendingFinalization)
		p.proc(p.obj, p.data)
		n++
	}
}

// FinalizeAll forces every still-registered finalizer to run immediately,
// reachable or not. A host calls this during shutdown so finalizers get a
// chance to run even on objects the client kept alive until the very end
// (GC_finalize_all's use at process exit).
func (c *Collector) FinalizeAll() {
	c.lock.Lock()
	pending := make([]*pendingFinalization, 0, len(c.finalizers))
	for obj, rec := range c.finalizers {
		pending = append(pending, &pendingFinalization{obj: obj, proc: rec.proc, data: rec.data})
	}
	c.finalizers = map[uintptr]*finalizerRec{}
	c.lock.Unlock()

	for _, p := range pending {
		p.proc(p.obj, p.data)
	}
}
