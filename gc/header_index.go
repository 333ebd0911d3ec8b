package gc

// headerIndex is the block-header index: a two-level radix
// from an arbitrary address to the header of the block that contains it, in
// O(1).
//
// headers.c's own comment notes that the original's flat TOP_SZ array only
// works because the collector was written for 32-bit address spaces, and
// says in so many words that 64-bit hosts should use "a hash table as a
// cache". That is exactly what this does: the top level is a Go map keyed
// by the address bits above the bottom index, rather than a fixed array
// sized for a 32-bit address space.
type headerIndex struct {
	top map[uintptr]*bottomIndex
}

// bottomSz is BOTTOM_SZ: the number of blocks (4 MiB of address space, at
// the default HBLKSIZE) covered by one bottom-level index.
const bottomSz = 1024

// maxJump caps the forwarding distance stored for an interior block of a
// large multi-block object, so it always fits beside the NIL/header states
// in one slot, beside the NIL/header states of a block header slot.
const maxJump = bottomSz - 1

// indexSlot is one entry of a bottomIndex: either NIL (the zero value),
// a forwarding distance, or a pointer to the real header. The real
// collector packs all three into one word by using small integer values as
// sentinels; we use an explicit two-field struct since Go has no portable
// way to reuse pointer bit patterns for small integers.
type indexSlot struct {
	header  *blockHeader
	forward uint32 // used only when header == nil; 0 means NIL
}

func newHeaderIndex() *headerIndex {
	return &headerIndex{top: make(map[uintptr]*bottomIndex)}
}

type bottomIndex [bottomSz]indexSlot

func topBits(addr uintptr) uintptr {
	return addr >> (logHblkSize + 10) // 10 == log2(bottomSz)
}

func bottomSlot(addr uintptr) uintptr {
	return (addr >> logHblkSize) & (bottomSz - 1)
}

func (hi *headerIndex) getIndex(addr uintptr) *bottomIndex {
	key := topBits(addr)
	bi := hi.top[key]
	if bi == nil {
		bi = &bottomIndex{}
		hi.top[key] = bi
	}
	return bi
}

// header returns the header responsible for addr, resolving one forwarding
// hop if addr lies inside a large multi-block object, or nil if addr is not
// part of any block we manage.
func (hi *headerIndex) header(addr uintptr) *blockHeader {
	key := topBits(addr)
	bi := hi.top[key]
	if bi == nil {
		return nil
	}
	slot := bi[bottomSlot(addr)]
	if slot.header != nil {
		return slot.header
	}
	if slot.forward == 0 {
		return nil
	}
	// Forwarding entry: the real header is `forward` blocks lower.
	return hi.header(addr - uintptr(slot.forward)*hblkSize)
}

// installHeader ensures the bottom index exists for block and assigns it a
// freshly allocated header (GC_install_header).
func (hi *headerIndex) installHeader(block uintptr) *blockHeader {
	bi := hi.getIndex(block)
	h := &blockHeader{addr: block}
	bi[bottomSlot(block)] = indexSlot{header: h}
	return h
}

// registerHeader places an already-constructed header into the index at
// its own address, without allocating a new one. Used by the block
// allocator, which builds the header itself while splitting a free run.
func (hi *headerIndex) registerHeader(h *blockHeader) {
	bi := hi.getIndex(h.addr)
	bi[bottomSlot(h.addr)] = indexSlot{header: h}
}

// installCounts installs forwarding entries for every block after the first
// one spanned by a sizeBytes-long allocation, so interior addresses resolve
// in one hop (GC_install_counts).
func (hi *headerIndex) installCounts(block uintptr, sizeBytes uintptr, first *blockHeader) {
	bi := hi.getIndex(block)
	bi[bottomSlot(block)] = indexSlot{header: first}
	end := block + sizeBytes
	for b := block + hblkSize; b < end; b += hblkSize {
		dist := (b - block) / hblkSize
		if dist > maxJump {
			dist = maxJump
		}
		obi := hi.getIndex(b)
		obi[bottomSlot(b)] = indexSlot{forward: uint32(dist)}
	}
}

// removeHeader clears the slot for block (GC_remove_header).
func (hi *headerIndex) removeHeader(block uintptr) {
	bi := hi.top[topBits(block)]
	if bi != nil {
		bi[bottomSlot(block)] = indexSlot{}
	}
}

// removeCounts clears forwarding entries installed by installCounts
// (GC_remove_counts).
func (hi *headerIndex) removeCounts(block uintptr, sizeBytes uintptr) {
	end := block + sizeBytes
	for b := block + hblkSize; b < end; b += hblkSize {
		bi := hi.top[topBits(b)]
		if bi != nil {
			bi[bottomSlot(b)] = indexSlot{}
		}
	}
}

// applyToAllBlocks calls fn for every installed, in-use header, skipping
// forwarding entries and free blocks, matching GC_apply_to_all_blocks.
func (hi *headerIndex) applyToAllBlocks(fn func(h *blockHeader)) {
	for _, bi := range hi.top {
		for i := range bi {
			slot := bi[i]
			if slot.header != nil && !slot.header.free {
				fn(slot.header)
			}
		}
	}
}
