package gc

import (
	"fmt"
	"io"
	"os"
	"sync"

	colorable "github.com/mattn/go-colorable"
	"github.com/sigurn/crc16"
)

// Diagnostics is the collector's warning/fatal sink, the Go-library
// equivalent of GC_set_warn_proc and GC_default_warn_proc: by default it
// writes color-coded lines to stderr (colorable's ColorableStderr strips
// escapes automatically when the stream isn't a real terminal, so the same
// code path is safe in a CI log or a Windows console), but a host may
// redirect it or install a custom handler.
type Diagnostics struct {
	mu  sync.Mutex
	out io.Writer

	// OnFatal is invoked for conditions the original collector would abort
	// the process for (a corrupted block header, a double free). It
	// defaults to writing to out; a host that wants to panic or exit
	// instead assigns its own callback.
	OnFatal func(msg string)
}

func newDiagnostics() *Diagnostics {
	return &Diagnostics{out: colorable.NewColorableStderr()}
}

const (
	warnPrefix  = "\x1b[33mgc warning:\x1b[0m "
	fatalPrefix = "\x1b[31mgc fatal:\x1b[0m "
)

func (d *Diagnostics) Warnf(format string, args ...interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, warnPrefix+format+"\n", args...)
}

func (d *Diagnostics) Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if d.OnFatal != nil {
		d.OnFatal(msg)
		return
	}
	d.mu.Lock()
	fmt.Fprintf(d.out, fatalPrefix+"%s\n", msg)
	d.mu.Unlock()
}

// SetOutput redirects where warnings and fatals are written; tests use
// this to capture output instead of polluting stderr.
func (d *Diagnostics) SetOutput(w io.Writer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.out = w
}

// HeapDumpEntry describes one live block at the moment HeapDump was
// called, for offline debugging: a way to inspect the heap's
// block/size/kind layout after the fact.
type HeapDumpEntry struct {
	Addr      uintptr
	SizeWords uintptr
	Kind      Kind
	Checksum  uint16
}

var crc16Table = crc16.MakeTable(crc16.CRC16_XMODEM)

// HeapDump walks every live block and returns a checksummed summary of
// each, so two dumps taken at different times can be diffed without
// comparing raw memory: the checksum is computed over the block's address
// and size, catching a header corrupted in place even though the object
// contents themselves are expected to legitimately change.
func (c *Collector) HeapDump() []HeapDumpEntry {
	c.lock.Lock()
	defer c.lock.Unlock()

	var entries []HeapDumpEntry
	c.index.applyToAllBlocks(func(h *blockHeader) {
		var buf [2 * 8]byte
		putUintptr(buf[0:8], h.addr)
		putUintptr(buf[8:16], h.sizeWords())
		entries = append(entries, HeapDumpEntry{
			Addr:      h.addr,
			SizeWords: h.sizeWords(),
			Kind:      h.kind.kind,
			Checksum:  crc16.Checksum(buf[:], crc16Table),
		})
	})
	return entries
}

func putUintptr(dst []byte, v uintptr) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * uint(i)))
	}
}

// DumpToFile writes a plain-text heap dump, used by cmd/gcdemo's -dump flag.
func (c *Collector) DumpToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, e := range c.HeapDump() {
		fmt.Fprintf(f, "%#016x size=%d kind=%d crc=%04x\n", e.Addr, e.SizeWords, e.Kind, e.Checksum)
	}
	return nil
}
