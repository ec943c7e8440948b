package value

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZSetAddUpdateScore(t *testing.T) {
	z := NewSortedSet()
	assert.Equal(t, ZAdded, z.Add("a", 1))
	assert.Equal(t, ZUpdated, z.Add("a", 2))

	score, ok := z.ScoreOf("a")
	require.True(t, ok)
	assert.Equal(t, 2.0, score)
}

func TestZSetUpgradesToSkipList(t *testing.T) {
	z := NewSortedSet()
	assert.Equal(t, "listpack", z.Encoding())

	for i := 0; i < zsetListpackMaxLen+1; i++ {
		z.Add(strconv.Itoa(i), float64(i))
	}
	assert.Equal(t, "skiplist", z.Encoding())
	assert.Equal(t, zsetListpackMaxLen+1, z.Len())
}

func TestZSetRankAndRangeByRank(t *testing.T) {
	z := NewSortedSet()
	z.Add("a", 1)
	z.Add("b", 2)
	z.Add("c", 3)

	assert.Equal(t, 0, z.Rank("a", false))
	assert.Equal(t, 2, z.Rank("a", true))
	assert.Equal(t, -1, z.Rank("missing", false))

	members := z.RangeByRank(0, -1, false)
	require.Len(t, members, 3)
	assert.Equal(t, "a", members[0].Member)
	assert.Equal(t, "c", members[2].Member)
}

func TestZSetRangeByScoreWithOffsetAndCount(t *testing.T) {
	z := NewSortedSet()
	z.Add("a", 1)
	z.Add("b", 2)
	z.Add("c", 3)
	z.Add("d", 4)

	out := z.RangeByScore(1, 4, 1, 2, false)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Member)
	assert.Equal(t, "c", out[1].Member)
}

func TestZSetIncrScore(t *testing.T) {
	z := NewSortedSet()
	next := z.IncrScore("a", 5)
	assert.Equal(t, 5.0, next)
	next = z.IncrScore("a", -2)
	assert.Equal(t, 3.0, next)
}

func TestZSetRemove(t *testing.T) {
	z := NewSortedSet()
	z.Add("a", 1)
	assert.True(t, z.Remove("a"))
	assert.False(t, z.Remove("a"))
	_, ok := z.ScoreOf("a")
	assert.False(t, ok)
}

func TestZSetCountByScoreAcrossSkipListTier(t *testing.T) {
	z := NewSortedSet()
	for i := 0; i < zsetListpackMaxLen+5; i++ {
		z.Add(strconv.Itoa(i), float64(i))
	}
	require.Equal(t, "skiplist", z.Encoding())
	assert.Equal(t, 10, z.CountByScore(5, 14))
}
