package gc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootsRegisterSplitsAroundExcluded(t *testing.T) {
	var r roots
	r.setExcluded(100, 200)
	r.register(0, 300)

	require.Len(t, r.static, 2)
	require.Equal(t, rootRange{0, 100}, r.static[0])
	require.Equal(t, rootRange{200, 300}, r.static[1])
}

func TestRootsRegisterOutsideExcludedIsUnsplit(t *testing.T) {
	var r roots
	r.setExcluded(100, 200)
	r.register(300, 400)

	require.Equal(t, []rootRange{{300, 400}}, r.static)
}

func TestRootsUnregisterRemovesExactMatch(t *testing.T) {
	var r roots
	r.register(10, 20)
	r.register(30, 40)
	r.unregister(10, 20)

	require.Equal(t, []rootRange{{30, 40}}, r.static)
}

func TestScanSourceIsStack(t *testing.T) {
	require.True(t, sourceStack.isStack())
	require.False(t, sourceStatic.isStack())
	require.False(t, sourceRegister.isStack())
	require.False(t, sourceHeap.isStack())
}
