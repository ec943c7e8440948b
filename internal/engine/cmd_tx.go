package engine

import "redcore/internal/reply"

// registerTxCommands wires MULTI/EXEC/DISCARD/WATCH/UNWATCH. Grounded on
// the teacher's handler.TransactionManager shape, but simplified: rather
// than maintaining a key->watchers reverse index and a "dirty" flag kept
// current on every write, EXEC checks each watched key's version against
// the value recorded at WATCH time (keyspace.WatchCheck, the substrate
// spec.md §3 calls out by name), which is equivalent and needs no global
// bookkeeping beyond the per-key version counter C2 already maintains.
func (e *Engine) registerTxCommands() {
	e.register("MULTI", cmdMulti)
	e.register("EXEC", cmdExec)
	e.register("DISCARD", cmdDiscard)
	e.register("WATCH", cmdWatch)
	e.register("UNWATCH", cmdUnwatch)
}

func cmdMulti(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if !sess.startMulti() {
		return reply.Error("ERR MULTI calls can not be nested")
	}
	return reply.SimpleString("OK")
}

func cmdDiscard(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if !sess.queuing() {
		return reply.Error("ERR DISCARD without MULTI")
	}
	sess.endMulti()
	sess.unwatch()
	return reply.SimpleString("OK")
}

func cmdWatch(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) < 2 {
		return reply.Error("ERR wrong number of arguments for 'watch' command")
	}
	if sess.queuing() {
		return reply.Error("ERR WATCH inside MULTI is not allowed")
	}
	for _, k := range argv[1:] {
		sess.watch(string(k), e.ks.KeyVersion(string(k)))
	}
	return reply.SimpleString("OK")
}

func cmdUnwatch(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	sess.unwatch()
	return reply.SimpleString("OK")
}

func cmdExec(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if !sess.queuing() {
		return reply.Error("ERR EXEC without MULTI")
	}
	watched := sess.watchedSnapshot()
	queued := sess.endMulti()
	sess.unwatch()

	for k, v0 := range watched {
		if !e.ks.WatchCheck(k, v0) {
			return reply.NullArray()
		}
	}

	out := make([]reply.Reply, len(queued))
	for i, cmd := range queued {
		out[i] = e.execOne(sess, commandName(cmd[0]), cmd)
	}
	return reply.Array(out...)
}
