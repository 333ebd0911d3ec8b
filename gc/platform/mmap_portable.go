package platform

import "unsafe"

// HeapArena is a portable MemorySource backed by plain Go byte slices. It
// never actually talks to the OS; this is the Go equivalent of the
// original's fallback calloc-based GET_MEM for platforms without mmap, and
// it is what every test in this module runs against so that heap behavior
// never depends on the host's real page allocator.
//
// A []byte's backing array holds no pointers as far as the Go runtime's own
// GC is concerned (its element type is byte), so pinning a reference to the
// slice here is enough to keep it alive without confusing the host
// runtime's scanner with conservative-looking values.
type HeapArena struct {
	chunks [][]byte
}

// NewHeapArena returns a MemorySource with no memory acquired yet.
func NewHeapArena() *HeapArena {
	return &HeapArena{}
}

func (a *HeapArena) Acquire(n, align uintptr) unsafe.Pointer {
	if align == 0 {
		align = 1
	}
	// Overallocate so we can hand back an aligned interior pointer, the
	// same trick as the original's HBLKPTR(real_malloc(bytes+HBLKSIZE)).
	buf := make([]byte, n+align)
	base := uintptr(unsafe.Pointer(&buf[0]))
	aligned := (base + align - 1) &^ (align - 1)
	a.chunks = append(a.chunks, buf)
	return unsafe.Pointer(aligned)
}

// Release is a no-op: Go's allocator has no equivalent of munmap, and the
// chunk stays referenced (and therefore alive) until the HeapArena itself
// is dropped.
func (a *HeapArena) Release(p unsafe.Pointer, n uintptr) {}
