package gc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWithNoFile(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, uint(4), cfg.FreeSpaceDivisor)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("GC_FREE_SPACE_DIVISOR", "8")
	t.Setenv("GC_ENABLE_FINALIZERS", "0")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, uint(8), cfg.FreeSpaceDivisor)
	require.False(t, cfg.EnableFinalizers)
}

func TestLoadConfigMissingFileIsNotAnError(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/gc.yaml")
	require.NoError(t, err)
	require.NotNil(t, cfg)
}

func TestHeapIncrementBytesRoundsUpAndCoversMinimum(t *testing.T) {
	cfg := &Config{HeapIncrementBytes: hblkSize / 2, MaxHeapIncrementBytes: hblkSize * 2}
	require.Equal(t, hblkSize, cfg.heapIncrementBytes(1))
	require.Equal(t, hblkSize*10, cfg.heapIncrementBytes(hblkSize*10))
}
