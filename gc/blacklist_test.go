package gc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlackListTracksStackAndNormalSeparately(t *testing.T) {
	bl := newBlackList()
	page := hblkSize * 7

	bl.add(page+4, sourceStack)
	require.True(t, bl.isListed(page))
	require.Contains(t, bl.newStack, page)
	require.NotContains(t, bl.newNormal, page)

	bl.add(page+8, sourceStatic)
	require.Contains(t, bl.newNormal, page)
}

func TestRunIsCleanRejectsAnyListedPage(t *testing.T) {
	bl := newBlackList()
	start := hblkSize * 3
	end := start + hblkSize*4

	require.True(t, bl.runIsClean(start, end))

	bl.add(start+hblkSize*2, sourceRegister)
	require.False(t, bl.runIsClean(start, end))
	require.True(t, bl.runIsClean(start, start+hblkSize))
}

func TestPromoteMovesNewIntoOldAndResets(t *testing.T) {
	bl := newBlackList()
	page := hblkSize * 5
	bl.add(page, sourceStack)

	bl.promote()
	require.True(t, bl.oldStack[page])
	require.Empty(t, bl.newStack)
	require.True(t, bl.isListed(page), "promoted entries must still count as listed")
}

func TestClearStableForgetsOldEntries(t *testing.T) {
	bl := newBlackList()
	page := hblkSize * 9
	bl.add(page, sourceStatic)
	bl.promote()
	require.True(t, bl.isListed(page))

	bl.clearStable()
	require.False(t, bl.isListed(page))
}
