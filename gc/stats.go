package gc

import bytesize "github.com/inhies/go-bytesize"

// MemStats mirrors GC_get_heap_size / GC_get_free_bytes / GC_get_bytes_
// since_gc: a snapshot of the collector's bookkeeping counters, useful for
// logging.
type MemStats struct {
	HeapBytes       uintptr
	FreeBytes       uintptr
	WordsAllocated  uintptr
	ExplicitlyFreed uintptr
	Collections     uint64
}

// ReadMemStats returns a snapshot of the current heap state.
func (c *Collector) ReadMemStats() MemStats {
	c.lock.Lock()
	defer c.lock.Unlock()
	return MemStats{
		HeapBytes:       c.heapSizeBytes,
		FreeBytes:       c.freeBytesLocked(),
		WordsAllocated:  c.wordsAllocd,
		ExplicitlyFreed: c.explicitFreed,
		Collections:     c.generation,
	}
}

func (c *Collector) freeBytesLocked() uintptr {
	var total uintptr
	for h := c.freeList; h != nil; h = h.next {
		total += h.bytes()
	}
	return total
}

// String renders a MemStats in human-readable units via go-bytesize,
// the way the original's GC_dump prints sizes in KB/MB rather than raw
// byte counts.
func (s MemStats) String() string {
	return "heap=" + bytesize.New(float64(s.HeapBytes)).String() +
		" free=" + bytesize.New(float64(s.FreeBytes)).String() +
		" allocated=" + bytesize.New(float64(s.WordsAllocated*wordSize)).String() +
		" collections=" + itoa64(s.Collections)
}

func itoa64(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
