package gc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundedSizeStaysWithinEighth(t *testing.T) {
	table := newSizeMapTable()
	for b := uintptr(1); b <= hblkSize/2; b++ {
		words := table.roundedSize(b)
		got := words * wordSize
		require.GreaterOrEqualf(t, got, b, "class for %d bytes is smaller than requested", b)
		require.LessOrEqualf(t, got, b+b/8+wordSize, "class for %d bytes wastes more than 1/8", b)
	}
}

func TestRoundedSizeIsStableAndMonotonic(t *testing.T) {
	table := newSizeMapTable()
	prev := uintptr(0)
	for b := uintptr(1); b <= 512; b++ {
		words := table.roundedSize(b)
		require.GreaterOrEqual(t, words, prev)
		again := table.roundedSize(b)
		require.Equal(t, words, again, "size class must be stable across repeated lookups")
		prev = words
	}
}

func TestOffsetMapAllInterior(t *testing.T) {
	d := newDisplacements()
	c := newObjMapCache(d)
	m := c.get(3)
	bodyWords := hblkSize / wordSize
	for start := uintptr(0); start+3 <= bodyWords; start += 3 {
		for w := uintptr(0); w < 3; w++ {
			require.Equal(t, int32(w), m.displacementAt(start+w))
		}
	}
}

func TestOffsetMapRegisteredDisplacement(t *testing.T) {
	d := newDisplacements()
	d.registerDisplacement(0)
	c := newObjMapCache(d)
	m := c.get(4)
	require.Equal(t, int32(0), m.displacementAt(0))
	require.Equal(t, objInvalid, m.displacementAt(1))
	require.Equal(t, objInvalid, m.displacementAt(2))
	require.Equal(t, objInvalid, m.displacementAt(3))
	require.Equal(t, int32(0), m.displacementAt(4))
}

func TestFreeBlockMapIsInvalidSentinel(t *testing.T) {
	require.Equal(t, objInvalid, invalidMap.displacementAt(0))
	require.Equal(t, objInvalid, invalidMap.displacementAt(100))
}
