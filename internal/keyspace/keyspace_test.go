package keyspace

import (
	"testing"
	"time"

	"redcore/internal/value"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetRoundtrip(t *testing.T) {
	ks := New()
	ks.Set("k", value.NewStringBytes([]byte("v")))

	v, ok := ks.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(v.(*value.String).Bytes()))
}

func TestGetAsWrongType(t *testing.T) {
	ks := New()
	ks.Set("k", value.NewStringBytes([]byte("v")))

	_, _, err := ks.GetAs("k", value.KindList)
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestSetBumpsVersionEachTime(t *testing.T) {
	ks := New()
	v1 := ks.Set("k", value.NewStringBytes([]byte("a")))
	v2 := ks.Set("k", value.NewStringBytes([]byte("b")))
	assert.Equal(t, v1+1, v2)
}

func TestDeleteResetsVersionToZero(t *testing.T) {
	ks := New()
	ks.Set("k", value.NewStringBytes([]byte("a")))
	ks.Delete("k")
	assert.Equal(t, uint64(0), ks.KeyVersion("k"))
}

func TestSetIfAbsent(t *testing.T) {
	ks := New()
	assert.True(t, ks.SetIfAbsent("k", value.NewStringBytes([]byte("a"))))
	assert.False(t, ks.SetIfAbsent("k", value.NewStringBytes([]byte("b"))))

	v, _ := ks.Get("k")
	assert.Equal(t, "a", string(v.(*value.String).Bytes()))
}

func TestExpiredKeyIsNeverReturned(t *testing.T) {
	ks := New()
	ks.Set("k", value.NewStringBytes([]byte("v")))
	ks.SetExpire("k", time.Now().Add(-time.Second))

	_, ok := ks.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, ks.DBSize())
}

func TestPersistClearsTTL(t *testing.T) {
	ks := New()
	ks.Set("k", value.NewStringBytes([]byte("v")))
	ks.SetExpire("k", time.Now().Add(time.Hour))

	assert.True(t, ks.Persist("k"))
	_, hasTTL, ok := ks.TTL("k")
	require.True(t, ok)
	assert.False(t, hasTTL)
}

func TestRenameMovesValueAndTTL(t *testing.T) {
	ks := New()
	ks.Set("old", value.NewStringBytes([]byte("v")))
	ks.SetExpire("old", time.Now().Add(time.Hour))

	require.True(t, ks.Rename("old", "new"))
	assert.False(t, ks.Exists("old"))

	v, ok := ks.Get("new")
	require.True(t, ok)
	assert.Equal(t, "v", string(v.(*value.String).Bytes()))

	_, hasTTL, ok := ks.TTL("new")
	require.True(t, ok)
	assert.True(t, hasTTL)
}

func TestRenameAcrossDifferentSlotsDoesNotDeadlock(t *testing.T) {
	ks := New()
	// Pick two keys that land in different slots so Rename must take
	// both shard locks in its fixed slot-id order.
	a, b := "alpha", "zeta-key-far-enough-to-differ"
	require.NotEqual(t, SlotOf(a), SlotOf(b))

	ks.Set(a, value.NewStringBytes([]byte("v")))
	require.True(t, ks.Rename(a, b))
	assert.True(t, ks.Exists(b))
}

func TestWatchCheckDetectsMutation(t *testing.T) {
	ks := New()
	ks.Set("k", value.NewStringBytes([]byte("v")))
	v0 := ks.KeyVersion("k")
	assert.True(t, ks.WatchCheck("k", v0))

	ks.Set("k", value.NewStringBytes([]byte("v2")))
	assert.False(t, ks.WatchCheck("k", v0))
}

func TestMutateBumpsVersionOnlyOnReplace(t *testing.T) {
	ks := New()
	ks.Set("k", value.NewStringBytes([]byte("v")))
	v0 := ks.KeyVersion("k")

	// in-place mutation: fn returns the same Value identity, no version bump
	_, err := ks.Mutate("k", func(v value.Value) (value.Value, error) {
		v.(*value.String).SetBytes([]byte("v2"))
		return v, nil
	})
	require.NoError(t, err)
	assert.Equal(t, v0, ks.KeyVersion("k"))

	// wholesale replace: version bumps
	_, err = ks.Mutate("k", func(v value.Value) (value.Value, error) {
		return value.NewStringBytes([]byte("v3")), nil
	})
	require.NoError(t, err)
	assert.Equal(t, v0+1, ks.KeyVersion("k"))
}

func TestDBSizeAndFlush(t *testing.T) {
	ks := New()
	ks.Set("a", value.NewStringBytes([]byte("1")))
	ks.Set("b", value.NewStringBytes([]byte("2")))
	assert.Equal(t, 2, ks.DBSize())

	n := ks.Flush()
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, ks.DBSize())
}

func TestSampleKeysRespectsOnlyVolatile(t *testing.T) {
	ks := New()
	ks.Set("persistent", value.NewStringBytes([]byte("v")))
	ks.Set("volatile", value.NewStringBytes([]byte("v")))
	ks.SetExpire("volatile", time.Now().Add(time.Hour))

	keys := ks.SampleKeys(10, true)
	for _, k := range keys {
		assert.Equal(t, "volatile", k)
	}
}

func TestCleanupExpiredReapsExpiredSampledKeys(t *testing.T) {
	ks := New()
	ks.Set("k", value.NewStringBytes([]byte("v")))
	ks.SetExpire("k", time.Now().Add(-time.Second))

	shard := ks.ShardFor("k")
	n := ks.CleanupExpired(shard, 20, 3)
	assert.Equal(t, 1, n)
	assert.False(t, ks.IsExpired("k"))
}
