package value

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPushPopOrder(t *testing.T) {
	l := NewList()
	l.PushTail("a", "b", "c")
	l.PushHead("z")

	assert.Equal(t, 4, l.Len())
	assert.Equal(t, []string{"z", "a", "b", "c"}, l.Range(0, -1))

	v, ok := l.PopHead()
	require.True(t, ok)
	assert.Equal(t, "z", v)

	v, ok = l.PopTail()
	require.True(t, ok)
	assert.Equal(t, "c", v)
}

func TestListUpgradesToQuickList(t *testing.T) {
	l := NewList()
	assert.Equal(t, "listpack", l.Encoding())

	for i := 0; i < listpackMaxLen+1; i++ {
		l.PushTail(strconv.Itoa(i))
	}
	assert.Equal(t, "quicklist", l.Encoding())
	assert.Equal(t, listpackMaxLen+1, l.Len())
}

func TestListUpgradesOnLongElement(t *testing.T) {
	l := NewList()
	long := make([]byte, listpackMaxElemLen+1)
	l.PushTail(string(long))
	assert.Equal(t, "quicklist", l.Encoding())
}

func TestListIndexAndSet(t *testing.T) {
	l := NewList()
	l.PushTail("a", "b", "c")

	v, ok := l.GetAt(-1)
	require.True(t, ok)
	assert.Equal(t, "c", v)

	ok = l.SetAt(1, "bb")
	require.True(t, ok)
	v, _ = l.GetAt(1)
	assert.Equal(t, "bb", v)

	ok = l.SetAt(99, "x")
	assert.False(t, ok)
}

func TestListTrim(t *testing.T) {
	l := NewList()
	l.PushTail("a", "b", "c", "d")
	l.Trim(1, 2)
	assert.Equal(t, []string{"b", "c"}, l.Range(0, -1))
}

func TestListPopEmpty(t *testing.T) {
	l := NewList()
	_, ok := l.PopHead()
	assert.False(t, ok)
}
