package gc

import (
	"os"
	"strconv"

	yaml "gopkg.in/yaml.v2"
)

// Config holds the collection controller's tunables: the free-space
// divisor that drives the trigger policy, and the
// heap-growth increment bounds. Defaults mirror the originals (GC_free_
// space_divisor defaults to 4, initial heap a few hundred KiB).
type Config struct {
	// FreeSpaceDivisor sets how aggressively the controller triggers a
	// collection: a cycle runs once allocation since the last one exceeds
	// heap-size / FreeSpaceDivisor words.
	FreeSpaceDivisor uint `yaml:"free_space_divisor"`

	// InitialHeapBytes is acquired up front on the first allocation that
	// needs it, rather than growing from nothing one block at a time.
	InitialHeapBytes uintptr `yaml:"initial_heap_bytes"`

	// HeapIncrementBytes is how much the heap grows by at a time once
	// InitialHeapBytes has been consumed, subject to MaxHeapIncrementBytes.
	HeapIncrementBytes uintptr `yaml:"heap_increment_bytes"`

	MaxHeapIncrementBytes uintptr `yaml:"max_heap_increment_bytes"`

	// EnableFinalizers turns off finalizer invocation entirely when false,
	// matching the original's GC_java_finalization-style escape hatch for
	// hosts that never register finalizers and don't want the bookkeeping.
	EnableFinalizers bool `yaml:"enable_finalizers"`
}

func defaultConfig() *Config {
	return &Config{
		FreeSpaceDivisor:      4,
		InitialHeapBytes:      256 * 1024,
		HeapIncrementBytes:    hblkSize * 64,
		MaxHeapIncrementBytes: hblkSize * 4096,
		EnableFinalizers:      true,
	}
}

// LoadConfig reads tunables from an optional YAML file and then lets
// GC_FREE_SPACE_DIVISOR-style environment variables override individual
// fields, the layering compileopts/options.go uses for build settings: a
// checked-in file for the common case, env vars for one-off overrides
// without editing it.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := envUint("GC_FREE_SPACE_DIVISOR"); ok {
		cfg.FreeSpaceDivisor = v
	}
	if v, ok := envUintptr("GC_INITIAL_HEAP_BYTES"); ok {
		cfg.InitialHeapBytes = v
	}
	if v, ok := envUintptr("GC_HEAP_INCREMENT_BYTES"); ok {
		cfg.HeapIncrementBytes = v
	}
	if v, ok := envUintptr("GC_MAX_HEAP_INCREMENT_BYTES"); ok {
		cfg.MaxHeapIncrementBytes = v
	}
	if v := os.Getenv("GC_ENABLE_FINALIZERS"); v != "" {
		cfg.EnableFinalizers = v != "0" && v != "false"
	}
}

func envUint(name string) (uint, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(n), true
}

func envUintptr(name string) (uintptr, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return uintptr(n), true
}

// heapIncrementBytes picks how much to request from the platform's memory
// source for the next expansion: HeapIncrementBytes capped at
// MaxHeapIncrementBytes, or minBytes when that is larger.
func (c *Config) heapIncrementBytes(minBytes uintptr) uintptr {
	grow := c.HeapIncrementBytes
	if c.MaxHeapIncrementBytes != 0 && grow > c.MaxHeapIncrementBytes {
		grow = c.MaxHeapIncrementBytes
	}
	if grow < minBytes {
		grow = minBytes
	}
	// Round up to a whole number of blocks.
	return ((grow + hblkSize - 1) / hblkSize) * hblkSize
}
