package engine

import (
	"strconv"
	"sync/atomic"
	"time"

	"redcore/internal/pubsub"
	"redcore/internal/reply"
)

func (e *Engine) registerKeyCommands() {
	e.register("DEL", cmdDel)
	e.register("UNLINK", cmdDel) // lazy-free reclaim already makes DEL non-blocking for large values
	e.register("EXISTS", cmdExists)
	e.register("EXPIRE", cmdExpire)
	e.register("PEXPIRE", cmdPExpire)
	e.register("TTL", cmdTTL)
	e.register("PTTL", cmdPTTL)
	e.register("PERSIST", cmdPersist)
	e.register("TYPE", cmdType)
	e.register("RENAME", cmdRename)
	e.register("RANDOMKEY", cmdRandomKey)
	e.register("DBSIZE", cmdDBSize)
	e.register("FLUSHALL", cmdFlushAll)
	e.register("FLUSHDB", cmdFlushAll)
	e.register("KEYS", cmdKeys)
	e.register("OBJECT", cmdObject)
}

func cmdDel(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) < 2 {
		return reply.Error("ERR wrong number of arguments for 'del' command")
	}
	n := 0
	for _, k := range argv[1:] {
		if e.deleteKey(string(k)) {
			n++
		}
	}
	return reply.Integer(int64(n))
}

func cmdExists(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) < 2 {
		return reply.Error("ERR wrong number of arguments for 'exists' command")
	}
	n := 0
	for _, k := range argv[1:] {
		if e.ks.Exists(string(k)) {
			n++
		}
	}
	return reply.Integer(int64(n))
}

func cmdExpire(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	return doExpire(e, argv, time.Second)
}

func cmdPExpire(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	return doExpire(e, argv, time.Millisecond)
}

func doExpire(e *Engine, argv [][]byte, unit time.Duration) reply.Reply {
	if len(argv) != 3 {
		return reply.Error("ERR wrong number of arguments for 'expire' command")
	}
	n, err := strconv.ParseInt(string(argv[2]), 10, 64)
	if err != nil {
		return reply.Error("ERR value is not an integer or out of range")
	}
	if !e.ks.Exists(string(argv[1])) {
		return reply.Integer(0)
	}
	at := time.Now().Add(time.Duration(n) * unit)
	if !e.ks.SetExpire(string(argv[1]), at) {
		return reply.Integer(0)
	}
	return reply.Integer(1)
}

func cmdTTL(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	return doTTL(e, argv, time.Second)
}

func cmdPTTL(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	return doTTL(e, argv, time.Millisecond)
}

func doTTL(e *Engine, argv [][]byte, unit time.Duration) reply.Reply {
	if len(argv) != 2 {
		return reply.Error("ERR wrong number of arguments for 'ttl' command")
	}
	ttl, hasTTL, ok := e.ks.TTL(string(argv[1]))
	if !ok {
		return reply.Integer(-2)
	}
	if !hasTTL {
		return reply.Integer(-1)
	}
	return reply.Integer(int64(ttl / unit))
}

func cmdPersist(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 2 {
		return reply.Error("ERR wrong number of arguments for 'persist' command")
	}
	if e.ks.Persist(string(argv[1])) {
		return reply.Integer(1)
	}
	return reply.Integer(0)
}

func cmdType(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 2 {
		return reply.Error("ERR wrong number of arguments for 'type' command")
	}
	v, ok := e.ks.Get(string(argv[1]))
	if !ok {
		return reply.SimpleString("none")
	}
	return reply.SimpleString(v.Kind().String())
}

func cmdRename(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 3 {
		return reply.Error("ERR wrong number of arguments for 'rename' command")
	}
	if !e.ks.Rename(string(argv[1]), string(argv[2])) {
		return reply.Error("ERR no such key")
	}
	return reply.SimpleString("OK")
}

func cmdRandomKey(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	k, ok := e.ks.RandomKey()
	if !ok {
		return reply.NullBulk()
	}
	return reply.Bulk(k)
}

func cmdDBSize(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	return reply.Integer(int64(e.ks.DBSize()))
}

func cmdFlushAll(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	e.ks.Flush()
	atomic.StoreInt64(&e.usedBytes, 0)
	return reply.SimpleString("OK")
}

func cmdKeys(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 2 {
		return reply.Error("ERR wrong number of arguments for 'keys' command")
	}
	pattern := string(argv[1])
	var out []string
	for _, k := range e.ks.AllKeys() {
		if pubsub.Match(pattern, k) {
			out = append(out, k)
		}
	}
	return reply.StringArray(out)
}

// cmdObject implements OBJECT ENCODING (spec.md SPEC_FULL §5's
// supplemented introspection op); other OBJECT subcommands are not wired.
func cmdObject(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 3 || commandName(argv[1]) != "ENCODING" {
		return reply.Error("ERR syntax error")
	}
	v, ok := e.ks.Get(string(argv[2]))
	if !ok {
		return reply.Error("ERR no such key")
	}
	return reply.Bulk(v.Encoding())
}
