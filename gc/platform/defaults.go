package platform

import "sync"

// NopStackDiscovery contributes no stack or register roots. It is the
// correct default for a hosted library: without a host-specific shim there
// is no portable way to find "the" stack bottom or read registers from Go
// itself. Callers that need conservative stack/register scanning supply
// their own StackDiscovery (e.g. backed by cgo frame-pointer walking or an
// asm register-spill routine), same as the original relies on per-OS
// STACKBOTTOM detection and mach_dep.c.
type NopStackDiscovery struct{}

func (NopStackDiscovery) StackBottom() uintptr { return 0 }
func (NopStackDiscovery) CurrentSP() uintptr   { return 0 }
func (NopStackDiscovery) RegisterSnapshot(dst []uintptr) []uintptr { return dst[:0] }

// NopWorld is the single-threaded stop_world/start_world contract: both
// operations are no-ops, exactly as gc_stack_raw.go's gcResumeWorld is a
// no-op in a non-threaded, non-multicore build.
type NopWorld struct{}

func (NopWorld) Stop()  {}
func (NopWorld) Start() {}

// Mutex is the default CriticalSection. A real signal-blocking
// implementation would additionally mask async signals around Lock/Unlock;
// a hosted Go program has no portable way to do that itself, so this is the
// practical analogue of the original's SIG_lock, documented as a boundary
// the host binding may need to widen.
type Mutex struct {
	mu sync.Mutex
}

func (m *Mutex) Lock()   { m.mu.Lock() }
func (m *Mutex) Unlock() { m.mu.Unlock() }
