package engine

import (
	"context"
	"testing"

	"redcore/internal/config"
	"redcore/internal/logging"
	"redcore/internal/metrics"
	"redcore/internal/reply"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestEngine builds an Engine with a fresh registry and a session
// already authenticated as the default user, matching the state a
// freshly accepted connection starts in.
func newTestEngine(t *testing.T) (*Engine, *Session) {
	t.Helper()
	cfg := config.DefaultConfig()
	e := New(cfg, metrics.New(), logging.Noop())
	return e, e.NewSession()
}

func argv(parts ...string) [][]byte {
	out := make([][]byte, len(parts))
	for i, p := range parts {
		out[i] = []byte(p)
	}
	return out
}

func TestSetGet(t *testing.T) {
	e, sess := newTestEngine(t)
	r := e.Dispatch(sess, argv("SET", "k", "v"))
	assert.Equal(t, reply.SimpleString("OK"), r)

	r = e.Dispatch(sess, argv("GET", "k"))
	assert.Equal(t, reply.Bulk("v"), r)

	r = e.Dispatch(sess, argv("GET", "missing"))
	assert.Equal(t, reply.NullBulk(), r)
}

func TestSetNXAndXX(t *testing.T) {
	e, sess := newTestEngine(t)
	r := e.Dispatch(sess, argv("SET", "k", "v1", "NX"))
	assert.Equal(t, reply.SimpleString("OK"), r)

	r = e.Dispatch(sess, argv("SET", "k", "v2", "NX"))
	assert.Equal(t, reply.NullBulk(), r)

	r = e.Dispatch(sess, argv("SET", "missing", "v", "XX"))
	assert.Equal(t, reply.NullBulk(), r)
}

func TestIncrDecr(t *testing.T) {
	e, sess := newTestEngine(t)
	r := e.Dispatch(sess, argv("INCR", "counter"))
	assert.Equal(t, reply.Integer(1), r)

	r = e.Dispatch(sess, argv("INCRBY", "counter", "10"))
	assert.Equal(t, reply.Integer(11), r)

	r = e.Dispatch(sess, argv("DECRBY", "counter", "5"))
	assert.Equal(t, reply.Integer(6), r)
}

func TestDelExistsType(t *testing.T) {
	e, sess := newTestEngine(t)
	e.Dispatch(sess, argv("SET", "k", "v"))

	r := e.Dispatch(sess, argv("TYPE", "k"))
	assert.Equal(t, reply.SimpleString("string"), r)

	r = e.Dispatch(sess, argv("EXISTS", "k", "missing"))
	assert.Equal(t, reply.Integer(1), r)

	r = e.Dispatch(sess, argv("DEL", "k"))
	assert.Equal(t, reply.Integer(1), r)

	r = e.Dispatch(sess, argv("EXISTS", "k"))
	assert.Equal(t, reply.Integer(0), r)
}

func TestListPushPopRange(t *testing.T) {
	e, sess := newTestEngine(t)
	r := e.Dispatch(sess, argv("RPUSH", "l", "a", "b", "c"))
	assert.Equal(t, reply.Integer(3), r)

	r = e.Dispatch(sess, argv("LRANGE", "l", "0", "-1"))
	assert.Equal(t, reply.StringArray([]string{"a", "b", "c"}), r)

	r = e.Dispatch(sess, argv("LPOP", "l"))
	assert.Equal(t, reply.Bulk("a"), r)

	r = e.Dispatch(sess, argv("LLEN", "l"))
	assert.Equal(t, reply.Integer(2), r)
}

func TestSetOps(t *testing.T) {
	e, sess := newTestEngine(t)
	e.Dispatch(sess, argv("SADD", "s1", "a", "b", "c"))
	e.Dispatch(sess, argv("SADD", "s2", "b", "c", "d"))

	r := e.Dispatch(sess, argv("SINTER", "s1", "s2"))
	require.Equal(t, reply.KindArray, r.Kind)
	assert.ElementsMatch(t, []string{"b", "c"}, bulkStrings(r))

	r = e.Dispatch(sess, argv("SCARD", "s1"))
	assert.Equal(t, reply.Integer(3), r)
}

func TestZSetRangeAndRank(t *testing.T) {
	e, sess := newTestEngine(t)
	e.Dispatch(sess, argv("ZADD", "z", "1", "a", "2", "b", "3", "c"))

	r := e.Dispatch(sess, argv("ZSCORE", "z", "b"))
	assert.Equal(t, reply.Bulk("2"), r)

	r = e.Dispatch(sess, argv("ZRANK", "z", "c"))
	assert.Equal(t, reply.Integer(2), r)

	r = e.Dispatch(sess, argv("ZRANGE", "z", "0", "-1"))
	assert.Equal(t, reply.StringArray([]string{"a", "b", "c"}), r)
}

func TestHashFieldsAndTTL(t *testing.T) {
	e, sess := newTestEngine(t)
	e.Dispatch(sess, argv("HSET", "h", "f1", "v1", "f2", "v2"))

	r := e.Dispatch(sess, argv("HGET", "h", "f1"))
	assert.Equal(t, reply.Bulk("v1"), r)

	r = e.Dispatch(sess, argv("HLEN", "h"))
	assert.Equal(t, reply.Integer(2), r)

	r = e.Dispatch(sess, argv("HTTL", "h", "f1"))
	assert.Equal(t, reply.Integer(-1), r)

	r = e.Dispatch(sess, argv("HEXPIRE", "h", "100", "f1"))
	assert.Equal(t, reply.Integer(1), r)
}

func TestHyperLogLog(t *testing.T) {
	e, sess := newTestEngine(t)
	e.Dispatch(sess, argv("PFADD", "hll", "a", "b", "c"))

	r := e.Dispatch(sess, argv("PFCOUNT", "hll"))
	require.Equal(t, reply.KindInteger, r.Kind)
	// HyperLogLog is a cardinality estimator, not an exact counter; a
	// handful of distinct elements should still land very close to 3.
	assert.InDelta(t, 3, r.Int, 1)
}

func TestMultiExecWatch(t *testing.T) {
	e, sess := newTestEngine(t)
	e.Dispatch(sess, argv("SET", "k", "1"))

	e.Dispatch(sess, argv("WATCH", "k"))
	e.Dispatch(sess, argv("MULTI"))
	r := e.Dispatch(sess, argv("INCR", "k"))
	assert.Equal(t, reply.SimpleString("QUEUED"), r)

	r = e.Dispatch(sess, argv("EXEC"))
	require.Equal(t, reply.KindArray, r.Kind)
	require.Len(t, r.Array, 1)
	assert.Equal(t, reply.Integer(2), r.Array[0])
}

func TestExecAbortsOnWatchedKeyChange(t *testing.T) {
	e, sess := newTestEngine(t)
	other := e.NewSession()
	e.Dispatch(sess, argv("SET", "k", "1"))

	e.Dispatch(sess, argv("WATCH", "k"))
	e.Dispatch(sess, argv("MULTI"))
	e.Dispatch(sess, argv("INCR", "k"))

	e.Dispatch(other, argv("SET", "k", "99"))

	r := e.Dispatch(sess, argv("EXEC"))
	assert.Equal(t, reply.NullArray(), r)
}

func TestPubSubPublishDelivers(t *testing.T) {
	e, sess := newTestEngine(t)
	sub := e.NewSession()

	e.Dispatch(sub, argv("SUBSCRIBE", "ch"))
	<-sub.Outbox() // the SUBSCRIBE confirmation push

	r := e.Dispatch(sess, argv("PUBLISH", "ch", "hello"))
	assert.Equal(t, reply.Integer(1), r)

	select {
	case b := <-sub.Outbox():
		assert.Contains(t, string(b), "hello")
	default:
		t.Fatal("expected a push message in subscriber's outbox")
	}
}

func TestACLDeniesDisallowedCommandForRestrictedUser(t *testing.T) {
	e, sess := newTestEngine(t)
	e.Dispatch(sess, argv("ACL", "SETUSER", "limited", "on", ">pw", "+GET", "~*"))

	u, err := e.authz.Authenticate("limited", "pw")
	require.NoError(t, err)
	sess.setUser(u)

	r := e.Dispatch(sess, argv("SET", "k", "v"))
	assert.Equal(t, reply.KindError, r.Kind)

	r = e.Dispatch(sess, argv("GET", "k"))
	assert.Equal(t, reply.KindBulkString, r.Kind)
}

func TestEngineStartShutdown(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	e.Start(ctx)
	cancel()
	e.Shutdown()
}

func bulkStrings(r reply.Reply) []string {
	out := make([]string, len(r.Array))
	for i, item := range r.Array {
		out[i] = item.Str
	}
	return out
}
