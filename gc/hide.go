package gc

import (
	"sync"
	"time"
)

// hiddenPtr stores an address so that nothing short of REVEAL can recover
// it: the finalizer disappearing-link table must hold a
// pointer without that pointer counting as a reference, or the whole
// point of "disappearing" is defeated. Storing it as a uintptr already
// keeps the host Go runtime's own collector from tracing it; XORing with
// a per-process mask on top of that is the original's HIDE/REVEAL trick,
// kept here so a raw heap dump doesn't show the address in the clear
// either.
type hiddenPtr uintptr

var (
	hideMask     uintptr = 0x5bd1e995 ^ (1 << 33)
	hideMaskOnce sync.Once
)

// seedHideMask folds process-start entropy into the hide mask, so the
// XOR pattern used to obscure a disappearing link's target isn't the same
// fixed constant in every process. Called once per process from New.
func seedHideMask() {
	hideMaskOnce.Do(func() {
		hideMask ^= uintptr(time.Now().UnixNano())
	})
}

func hide(p uintptr) hiddenPtr { return hiddenPtr(p ^ hideMask) }

func reveal(h hiddenPtr) uintptr { return uintptr(h) ^ hideMask }
