package keyspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC16KnownVector(t *testing.T) {
	// The standard CRC16-XMODEM check value for the ASCII string
	// "123456789", used by Redis Cluster's own test suite.
	assert.Equal(t, uint16(0x31C3), crc16([]byte("123456789")))
}

func TestHashTagExtractsBetweenBraces(t *testing.T) {
	assert.Equal(t, "user1000", HashTag("{user1000}.following"))
	assert.Equal(t, "foo", HashTag("foo"))
	assert.Equal(t, "{}bar", HashTag("{}bar"), "empty braces fall back to the whole key")
}

func TestSameSlotRespectsHashTags(t *testing.T) {
	assert.True(t, SameSlot([]string{"{user1000}.a", "{user1000}.b"}))
	assert.True(t, SameSlot([]string{"onlyone"}))
}

func TestSlotOfIsWithinRange(t *testing.T) {
	for _, k := range []string{"a", "b", "{tag}key", "another-key"} {
		slot := SlotOf(k)
		assert.GreaterOrEqual(t, slot, 0)
		assert.Less(t, slot, NumSlots)
	}
}
