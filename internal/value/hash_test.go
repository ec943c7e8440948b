package value

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashSetGetDel(t *testing.T) {
	h := NewHash()
	assert.True(t, h.HSet("f1", "v1"))
	assert.False(t, h.HSet("f1", "v2"))

	v, ok := h.HGet("f1")
	require.True(t, ok)
	assert.Equal(t, "v2", v)

	assert.Equal(t, 1, h.HDel("f1", "missing"))
	_, ok = h.HGet("f1")
	assert.False(t, ok)
}

func TestHashSetIfAbsent(t *testing.T) {
	h := NewHash()
	assert.True(t, h.HSetIfAbsent("f", "v1"))
	assert.False(t, h.HSetIfAbsent("f", "v2"))
	v, _ := h.HGet("f")
	assert.Equal(t, "v1", v)
}

func TestHashUpgradesToHashtable(t *testing.T) {
	h := NewHash()
	for i := 0; i < hashListpackMaxLen+1; i++ {
		h.HSet(strconv.Itoa(i), "v")
	}
	assert.Equal(t, "hashtable", h.Encoding())
}

func TestHashIncrByAndFloat(t *testing.T) {
	h := NewHash()
	n, err := h.HIncrBy("counter", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	h.HSet("notanumber", "abc")
	_, err = h.HIncrBy("notanumber", 1)
	assert.Error(t, err)

	f, err := h.HIncrByFloat("fcounter", 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)
}

func TestHashFieldTTLExpiresLazily(t *testing.T) {
	h := NewHash()
	h.HSet("f", "v")
	require.True(t, h.ExpireField("f", time.Now().Add(-time.Second)))

	_, ok := h.HGet("f")
	assert.False(t, ok, "reading an expired field must transparently delete it")
	assert.Equal(t, 0, h.Len())
}

func TestHashPersistField(t *testing.T) {
	h := NewHash()
	h.HSet("f", "v")
	h.ExpireField("f", time.Now().Add(time.Hour))

	assert.True(t, h.PersistField("f"))
	_, has := h.TTLField("f")
	assert.False(t, has)
}

func TestHashHSetClearsPriorFieldTTL(t *testing.T) {
	h := NewHash()
	h.HSet("f", "v")
	h.ExpireField("f", time.Now().Add(time.Hour))

	h.HSet("f", "v2")
	_, has := h.TTLField("f")
	assert.False(t, has)
}

func TestHashGetAllAndKeysOrder(t *testing.T) {
	h := NewHash()
	h.HSet("a", "1")
	h.HSet("b", "2")
	assert.Equal(t, []string{"a", "b"}, h.HKeys())
	assert.Equal(t, []string{"1", "2"}, h.HVals())
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, h.HGetAll())
}
