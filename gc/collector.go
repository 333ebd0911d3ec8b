package gc

import (
	"sync"

	"github.com/ivmai/go-bdwgc/gc/internal/gclayout"
	"github.com/ivmai/go-bdwgc/gc/internal/queue"
	"github.com/ivmai/go-bdwgc/gc/platform"
)

// Collector is all of the heap's state in one value: the block
// allocator, the header index, the per-kind size maps, the mark engine,
// the black lists and the finalization registry. A client normally uses
// the package-level Default collector; constructing one directly is for
// a host that wants an isolated heap (tests, or multiple independent
// arenas in one process).
type Collector struct {
	lock     platform.CriticalSection
	world    platform.World
	mem      platform.MemorySource
	stackDisc platform.StackDiscovery

	cfg  *Config
	diag *Diagnostics

	index          *headerIndex
	kinds          []*objKind
	sizeTable      *sizeMapTable
	displacements  *displacements
	objMaps        *objMapCache
	roots          roots
	markEngineState markEngine
	blackList      *blackList

	freeList   *blockHeader
	freeCursor *blockHeader

	leastPlausibleHeapAddr    uintptr
	greatestPlausibleHeapAddr uintptr
	heapSizeBytes             uintptr

	generation     uint64
	wordsAllocd    uintptr
	sinceLastGC    uintptr
	explicitFreed  uintptr

	finalizers   map[uintptr]*finalizerRec
	disappearing map[hiddenPtr]uintptr
	finalizeQueue queue.Queue

	objLayouts map[uintptr]gclayout.Layout
}

// Option configures a Collector at construction time.
type Option func(*Collector)

// WithMemorySource overrides the arena allocator; the default is a
// portable, Go-byte-slice-backed arena (platform.NewHeapArena), which
// works everywhere but cannot actually return memory to the OS.
func WithMemorySource(m platform.MemorySource) Option {
	return func(c *Collector) { c.mem = m }
}

// WithStackDiscovery installs a host's conservative-roots implementation.
// Without one, the collector only ever sees static and explicitly
// registered roots — enough for an arena used purely as an explicit-
// lifetime allocator, not enough to reclaim objects only reachable from a
// Go goroutine stack the host never told it about.
func WithStackDiscovery(s platform.StackDiscovery) Option {
	return func(c *Collector) { c.stackDisc = s }
}

// WithWorld installs a stop-the-world implementation for hosts running
// more than one thread against the same collector concurrently.
func WithWorld(w platform.World) Option {
	return func(c *Collector) { c.world = w }
}

// WithConfig overrides the default tunables.
func WithConfig(cfg *Config) Option {
	return func(c *Collector) { c.cfg = cfg }
}

// New builds an independent collector with its own heap.
func New(opts ...Option) *Collector {
	seedHideMask()

	c := &Collector{
		lock:          &platform.Mutex{},
		world:         platform.NopWorld{},
		mem:           platform.NewHeapArena(),
		stackDisc:     platform.NopStackDiscovery{},
		cfg:           defaultConfig(),
		diag:          newDiagnostics(),
		index:         newHeaderIndex(),
		sizeTable:     newSizeMapTable(),
		blackList:     newBlackList(),
		finalizers:    map[uintptr]*finalizerRec{},
		disappearing:  map[hiddenPtr]uintptr{},
		objLayouts:    map[uintptr]gclayout.Layout{},
	}
	c.displacements = newDisplacements()
	c.objMaps = newObjMapCache(c.displacements)

	c.kinds = make([]*objKind, numKinds)
	for k := 0; k < numKinds; k++ {
		c.kinds[k] = newObjKind(Kind(k))
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	defaultOnce sync.Once
	defaultInst *Collector
)

// Default returns the process-wide collector, constructing it on first
// use. Most clients only ever need this one.
func Default() *Collector {
	defaultOnce.Do(func() { defaultInst = New() })
	return defaultInst
}

// kindFor returns the objKind bookkeeping structure for a Kind value.
func (c *Collector) kindFor(k Kind) *objKind { return c.kinds[k] }

// shouldCollect implements the trigger policy: a cycle
// runs once allocation since the last one exceeds heap-size /
// FreeSpaceDivisor words, the GC_should_collect / adj_words_allocd
// comparison, with a floor so a nearly-empty heap doesn't trigger on
// every handful of words.
func (c *Collector) shouldCollect() bool {
	if c.cfg.FreeSpaceDivisor == 0 {
		return false
	}
	heapWords := c.heapSizeBytes / wordSize
	threshold := heapWords / uintptr(c.cfg.FreeSpaceDivisor)
	const minWords = 4096
	if threshold < minWords {
		threshold = minWords
	}
	return c.sinceLastGC > threshold
}

// Collect runs a full stop-the-world mark/finalize/reclaim cycle
// unconditionally, the Go analogue of GC_gcollect. Allocation runs the same
// cycle (collectLocked) when shouldCollect says to or when no block can be
// obtained for a request; a client may also call Collect directly to force
// a cycle (e.g. before measuring memory use).
func (c *Collector) Collect() {
	c.lock.Lock()
	c.collectLocked()
	c.lock.Unlock()

	if c.cfg.EnableFinalizers {
		c.InvokeFinalizers()
	}
}

// collectLocked is the cycle body, callable both from Collect (which
// takes the lock itself) and from allocate (which is already holding it
// when it discovers the trigger policy wants a cycle before growing the
// heap).
func (c *Collector) collectLocked() {
	c.world.Stop()

	c.markEngineState = markEngine{}
	c.index.applyToAllBlocks(func(h *blockHeader) {
		if h.marks == nil {
			h.marks = newBitset(bodyWordsForSize(h.sizeWords()))
		} else {
			h.marks.clearAll()
		}
	})

	c.pushAllRoots()
	c.finishMark()
	c.runFinalizationPass()
	c.startReclaim()
	c.blackList.promote()
	c.generation++
	c.sinceLastGC = 0

	c.world.Start()
}

// RegisterDisplacement narrows which interior offsets the mark engine
// treats as plausible object starts. Calling this
// at least once switches the collector out of all-interior-pointers mode;
// any previously stabilized black-list entries are discarded since a
// previously-rejected offset might now be valid.
func (c *Collector) RegisterDisplacement(offsetWords uintptr) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.displacements.registerDisplacement(offsetWords)
	c.blackList.clearStable()

	// Offset maps built so far reflect the old set of valid offsets: rebuild
	// them and repoint every small-object block at its class's new map.
	c.objMaps.maps = make(map[uintptr]*offsetMap)
	c.index.applyToAllBlocks(func(h *blockHeader) {
		if h.sizeWords() <= maxObjSz {
			h.theMap = c.objMaps.get(h.sizeWords())
		}
	})
}

// ExpandHeap pre-acquires at least minBytes of additional arena space
// without waiting for an allocation to need it (GC_expand_hp).
func (c *Collector) ExpandHeap(minBytes uintptr) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.expandHeap(minBytes)
}
