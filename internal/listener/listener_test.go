package listener

import (
	"testing"

	"redcore/internal/keyspace"

	"github.com/stretchr/testify/assert"
)

func TestShardOfRoutesKeylessCommandsToSlotZero(t *testing.T) {
	assert.Equal(t, 0, shardOf([][]byte{[]byte("PING")}))
	assert.Equal(t, 0, shardOf(nil))
}

func TestShardOfMatchesKeyspaceSlot(t *testing.T) {
	argv := [][]byte{[]byte("GET"), []byte("mykey")}
	assert.Equal(t, keyspace.SlotOf("mykey"), shardOf(argv))
}
