//go:build linux || darwin

package platform

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// MmapArena is a MemorySource that acquires memory directly from the OS via
// mmap, the real analogue of the original's GET_MEM on Unix
// (os_dep.c uses mmap/sbrk directly). Regions returned by mmap are already
// page-aligned, so as long as align divides the page size this never needs
// to overallocate the way HeapArena does.
type MmapArena struct {
	regions []mmapRegion
}

type mmapRegion struct {
	addr unsafe.Pointer
	size uintptr
}

func NewMmapArena() *MmapArena {
	return &MmapArena{}
}

func (a *MmapArena) Acquire(n, align uintptr) unsafe.Pointer {
	pageSize := uintptr(unix.Getpagesize())
	if align > pageSize {
		// Overallocate to realign by hand, same approach as HeapArena.
		n += align
	}
	size := (n + pageSize - 1) &^ (pageSize - 1)
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil
	}
	base := uintptr(unsafe.Pointer(&data[0]))
	aligned := base
	if align > pageSize {
		aligned = (base + align - 1) &^ (align - 1)
	}
	a.regions = append(a.regions, mmapRegion{addr: unsafe.Pointer(&data[0]), size: size})
	return unsafe.Pointer(aligned)
}

func (a *MmapArena) Release(p unsafe.Pointer, n uintptr) {
	for i, r := range a.regions {
		if r.addr == p {
			data := unsafe.Slice((*byte)(r.addr), r.size)
			_ = unix.Munmap(data)
			a.regions = append(a.regions[:i], a.regions[i+1:]...)
			return
		}
	}
}
