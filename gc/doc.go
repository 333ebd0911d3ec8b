// Package gc implements a conservative mark-sweep garbage collector for an
// uncooperative host, in the style of the Boehm-Demers-Weiser collector
// (ivmai/bdwgc). Unlike a language runtime's built-in collector, this is an
// importable library: a client obtains memory through Collector.Malloc and
// its variants, may optionally call Collector.Free, and otherwise lets the
// collector reclaim unreachable blocks on its own schedule.
//
// The block and header design follows a from-scratch Go reimplementation of
// the same family of collector written for a freestanding target, and the
// original bdwgc C sources referenced in DESIGN.md, generalized from a
// single fixed block size to variably sized, typed blocks.
package gc

import "unsafe"

// Word is a machine word: either a raw integer value read off the heap
// during conservative scanning, or a byte address.
type Word = uintptr

const (
	// hblkSize is HBLKSIZE: the granularity of coarse heap blocks. 4096 is
	// the typical choice the original collector defaults to on 32-bit
	// systems (CPP_LOG_HBLKSIZE == 12); we keep it fixed rather than
	// deriving it from the host page size so block arithmetic stays cheap
	// shifts regardless of platform.
	logHblkSize = 12
	hblkSize    = uintptr(1) << logHblkSize
	hblkMask    = hblkSize - 1

	wordSize = unsafe.Sizeof(uintptr(0))

	// maxObjSz is MAXOBJSZ: the largest size class, in words, that gets a
	// dedicated free list. Larger requests go straight to the heap-block
	// allocator as whole-block multiples.
	maxObjSz = hblkSize / (2 * wordSize)

	// maxBlackListAlloc is MAX_BLACK_LIST_ALLOC. The block allocator does
	// not use it: findFreeRun passes over every black-listed run, whatever
	// its size, as long as a clean run can satisfy the request.
	maxBlackListAlloc = 2 * hblkSize
)

func divHblk(n uintptr) uintptr { return n >> logHblkSize }
func hblkAligned(p uintptr) uintptr { return p &^ hblkMask }

// ptrAt views a raw address as a pointer to a word, for reading candidate
// pointer values off the heap or off a root range during conservative
// scanning (gc/mark.go).
func ptrAt(addr uintptr) unsafe.Pointer { return unsafe.Pointer(addr) }
