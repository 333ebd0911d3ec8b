package gc

// Kind discriminates how an object's storage is treated: whether it is
// scanned for pointers, whether new objects of that kind must be
// zero-initialized, and whether the collector may ever reclaim it.
type Kind int

const (
	// KindPointerFree objects are never scanned: the major performance win
	// of declaring a region pointer-free up front.
	KindPointerFree Kind = iota
	// KindNormal objects may contain pointers and are scanned with the
	// default conservative (or, in precise mode, bitmap-guided) procedure.
	KindNormal
	// KindUncollectable objects are scanned like Normal but are never
	// reclaimed by the collector; the client must call Free explicitly.
	KindUncollectable
	// KindStubborn behaves like Normal here; the original's write-barrier
	// based change tracking for this kind is not reproduced.
	KindStubborn

	numKinds = int(KindStubborn) + 1
)

// markProc enumerates children of obj (at the given word size) onto the
// mark stack. Kinds needing nothing beyond the default conservative or
// precise scan use the collector's built-in scanner; a kind may instead
// supply a custom procedure (Design Notes: "Per-kind mark procedures as
// function pointers... enum-tagged variants").
type markProc func(c *Collector, obj uintptr, sizeWords uintptr)

// objKind bundles everything a kind owns: the per-size free
// lists and reclaim queues (indexed by word size, 1..maxObjSz), the mark
// procedure, and the zero-init flag.
type objKind struct {
	kind Kind

	// okInit: new objects of this kind must be zero-initialized before the
	// caller sees them.
	okInit bool

	// collectible: false for KindUncollectable, true otherwise. Sweep skips
	// reclaiming blocks of a non-collectible kind entirely.
	collectible bool

	mark markProc

	// freeList[size] is the address of the first free object of this exact
	// word size, linked through each object's first word; 0 means empty.
	freeList [maxObjSz + 1]uintptr

	// reclaimQueue[size] is the head of the per-size reclaim queue: every
	// collectible block of this size filed by the last startReclaim and not
	// swept yet, linked through blockHeader.next, swept lazily on demand.
	reclaimQueue [maxObjSz + 1]*blockHeader
}

func newObjKind(k Kind) *objKind {
	ok := &objKind{kind: k, collectible: k != KindUncollectable}
	switch k {
	case KindPointerFree:
		ok.mark = markNothing
	default:
		ok.mark = markNormalDispatch
		ok.okInit = true
	}
	return ok
}

func markNothing(c *Collector, obj uintptr, sizeWords uintptr) {}

// markConservativeChildren is the default mark procedure: scan every word
// of the object as a potential pointer. Objects allocated through
// MallocTyped get a layout-guided scan instead (gc/internal/gclayout).
func markConservativeChildren(c *Collector, obj uintptr, sizeWords uintptr) {
	c.scanRange(obj, obj+sizeWords*wordSize, sourceHeap)
}
