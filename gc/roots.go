package gc

// scanSource classifies where a candidate pointer word came from, so the
// black list can file stack-origin false positives apart from the others.
// The allocator's check treats both tables alike: a run is avoided if it
// spans any listed page, whichever table listed it.
type scanSource int

const (
	sourceStatic scanSource = iota
	sourceRegister
	sourceStack
	sourceHeap
)

func (s scanSource) isStack() bool { return s == sourceStack }

// rootRange is a registered (start, end) byte interval contributed by
// static data, a registered dynamic segment, or explicit client
// registration.
type rootRange struct {
	start, end uintptr
}

// roots holds every source of conservative roots the collector knows about.
// Stack and register roots are supplied per-cycle by the platform
// collaborators; static ranges are registered ahead of time and persist.
type roots struct {
	static []rootRange
	// excluded is the collector's own state span, excluded so the mark
	// phase doesn't waste time (and risk self-confusion) scanning the
	// collector's bookkeeping as if it were client data. Ranges overlapping
	// this on registration are split.
	excluded rootRange
}

// register adds a static range, splitting around the excluded span if the
// two overlap.
func (r *roots) register(start, end uintptr) {
	if r.excluded.start == r.excluded.end || end <= r.excluded.start || start >= r.excluded.end {
		r.static = append(r.static, rootRange{start, end})
		return
	}
	if start < r.excluded.start {
		r.static = append(r.static, rootRange{start, r.excluded.start})
	}
	if end > r.excluded.end {
		r.static = append(r.static, rootRange{r.excluded.end, end})
	}
}

// unregister removes a previously registered range. Ranges that were split
// on registration must be unregistered with the same bounds they were
// registered with.
func (r *roots) unregister(start, end uintptr) {
	for i, rr := range r.static {
		if rr.start == start && rr.end == end {
			r.static = append(r.static[:i], r.static[i+1:]...)
			return
		}
	}
	// No exact match: the range may have been split around the excluded
	// span, so drop every stored piece lying inside [start, end).
	kept := r.static[:0]
	for _, rr := range r.static {
		if rr.start >= start && rr.end <= end {
			continue
		}
		kept = append(kept, rr)
	}
	r.static = kept
}

func (r *roots) setExcluded(start, end uintptr) {
	r.excluded = rootRange{start, end}
}

// RegisterRoots registers a static byte range as a conservative root
// source, e.g. a data segment or a client-owned global arena.
func (c *Collector) RegisterRoots(start, end uintptr) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.roots.register(start, end)
}

// UnregisterRoots removes a previously registered static range.
func (c *Collector) UnregisterRoots(start, end uintptr) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.roots.unregister(start, end)
}

// ExcludeRoots carves a sub-range out of every static root registered from
// now on, so a host that registers one big static-data range doesn't end
// up scanning its own collector-adjacent bookkeeping as if it were client
// data.
func (c *Collector) ExcludeRoots(start, end uintptr) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.roots.setExcluded(start, end)
}

// pushAllRoots feeds every known root source into the mark engine: static,
// then registers, then stacks (the ordering is a tie-break only; marking
// is idempotent either way).
func (c *Collector) pushAllRoots() {
	for _, rr := range c.roots.static {
		c.markRange(rr.start, rr.end, sourceStatic)
	}

	var regbuf [64]uintptr
	regs := c.stackDisc.RegisterSnapshot(regbuf[:])
	for _, r := range regs {
		c.markRoot(r, sourceRegister)
	}

	bottom := c.stackDisc.StackBottom()
	sp := c.stackDisc.CurrentSP()
	if bottom != 0 && sp != 0 {
		if sp < bottom {
			c.markRange(sp, bottom, sourceStack)
		} else {
			c.markRange(bottom, sp, sourceStack)
		}
	}
}
