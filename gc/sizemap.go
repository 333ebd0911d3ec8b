package gc

// offsetMap is the per-size "valid offsets" map: for any
// word index inside a block's body, it says either "no object starts here"
// (objInvalid) or "the object containing this word starts k words earlier".
type offsetMap struct {
	sizeWords uintptr
	entries   []int32 // indexed by word offset from the block body start
}

const objInvalid = int32(-1)

// invalidMap is the sentinel every free block's header points at: for
// every free block, the map is this one shared invalid map.
var invalidMap = &offsetMap{}

func (m *offsetMap) displacementAt(wordOffset uintptr) int32 {
	if m == invalidMap || int(wordOffset) >= len(m.entries) {
		return objInvalid
	}
	return m.entries[wordOffset]
}

// sizeMapTable rounds arbitrary byte requests down to a small number of
// distinct size classes (GC_size_map). Classes are filled
// lazily and, once filled, reused by any nearby request.
type sizeMapTable struct {
	// bytesToWords[b] is the word size class for a b-byte request, for
	// b in [0, hblkSize/2]. Zero means "not yet computed".
	bytesToWords []uintptr
}

func newSizeMapTable() *sizeMapTable {
	return &sizeMapTable{bytesToWords: make([]uintptr, hblkSize/2+1)}
}

// roundedSize returns the word size class for a byteSize request, computing
// and caching it if this is the first time this exact byte size is seen.
// The bound is at most 1/8 larger than the request.
func (t *sizeMapTable) roundedSize(byteSize uintptr) uintptr {
	if byteSize == 0 {
		byteSize = 1
	}
	if byteSize > hblkSize/2 {
		// Routed through the large-object path; round up to whole words.
		return (byteSize + wordSize - 1) / wordSize
	}
	if t.bytesToWords[byteSize] != 0 {
		return t.bytesToWords[byteSize]
	}
	words := (byteSize + wordSize - 1) / wordSize
	// Reuse a class already chosen for a slightly smaller request (within
	// 1/8 below this one) when it is large enough for this request.
	lo := byteSize - byteSize/8
	for b := byteSize; b > lo && b > 0; b-- {
		if t.bytesToWords[b] != 0 && t.bytesToWords[b] >= words {
			words = t.bytesToWords[b]
			break
		}
	}
	// Cache the class for every request down to the smallest one it still
	// serves with at most 1/8 waste, and always for this request itself.
	fillLo := (words*wordSize*8 + 8) / 9
	if fillLo > byteSize {
		fillLo = byteSize
	}
	for b := fillLo; b <= byteSize; b++ {
		if b < uintptr(len(t.bytesToWords)) {
			t.bytesToWords[b] = words
		}
	}
	return words
}

// displacements tracks the interior-pointer mode: by default every interior
// word offset is considered a potential object start ("all interior
// pointers"); register_displacement narrows that to an explicit set of
// valid field offsets, letting the mark engine recognize pointers to a
// constant offset past an object's base without treating every offset as
// plausible.
type displacements struct {
	allInterior bool
	registered  map[uintptr]bool // valid word displacements, when !allInterior
}

func newDisplacements() *displacements {
	return &displacements{allInterior: true}
}

func (d *displacements) registerDisplacement(offsetWords uintptr) {
	d.allInterior = false
	if d.registered == nil {
		d.registered = make(map[uintptr]bool)
	}
	d.registered[offsetWords] = true
}

func (d *displacements) validStart(offsetWords uintptr) bool {
	if d.allInterior {
		return true
	}
	return offsetWords == 0 || d.registered[offsetWords]
}

// objMapCache builds and caches offsetMaps per size class (GC_add_map_entry
// / GC_obj_map).
type objMapCache struct {
	maps map[uintptr]*offsetMap
	d    *displacements
}

func newObjMapCache(d *displacements) *objMapCache {
	return &objMapCache{maps: make(map[uintptr]*offsetMap), d: d}
}

func (c *objMapCache) get(sizeWords uintptr) *offsetMap {
	if sizeWords > maxObjSz {
		// Large objects have no offset map: their headers point at
		// invalidMap and resolveBase range-checks them instead, so callers
		// never index through this cache for them.
		sizeWords = maxObjSz
	}
	if m, ok := c.maps[sizeWords]; ok {
		return m
	}
	bodyWords := hblkSize / wordSize
	m := &offsetMap{sizeWords: sizeWords, entries: make([]int32, bodyWords)}
	for i := range m.entries {
		m.entries[i] = objInvalid
	}
	for start := uintptr(0); start+sizeWords <= bodyWords; start += sizeWords {
		for w := uintptr(0); w < sizeWords; w++ {
			if c.d.validStart(w) {
				m.entries[start+w] = int32(w)
			}
		}
	}
	c.maps[sizeWords] = m
	return m
}
