package engine

import (
	"strconv"

	"redcore/internal/reply"
	"redcore/internal/value"
)

func (e *Engine) registerListCommands() {
	e.register("LPUSH", cmdLPush)
	e.register("RPUSH", cmdRPush)
	e.register("LPOP", cmdLPop)
	e.register("RPOP", cmdRPop)
	e.register("LLEN", cmdLLen)
	e.register("LRANGE", cmdLRange)
	e.register("LINDEX", cmdLIndex)
	e.register("LSET", cmdLSet)
	e.register("LTRIM", cmdLTrim)
}

func listArgs(argv [][]byte) []string {
	out := make([]string, len(argv)-2)
	for i, a := range argv[2:] {
		out[i] = string(a)
	}
	return out
}

func cmdLPush(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) < 3 {
		return reply.Error("ERR wrong number of arguments for 'lpush' command")
	}
	var n int
	_, err := e.mutateOrCreate(string(argv[1]), value.KindList, func() value.Value { return value.NewList() }, func(v value.Value) error {
		n = v.(*value.List).PushHead(listArgs(argv)...)
		return nil
	})
	if err != nil {
		return reply.Error(err.Error())
	}
	return reply.Integer(int64(n))
}

func cmdRPush(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) < 3 {
		return reply.Error("ERR wrong number of arguments for 'rpush' command")
	}
	var n int
	_, err := e.mutateOrCreate(string(argv[1]), value.KindList, func() value.Value { return value.NewList() }, func(v value.Value) error {
		n = v.(*value.List).PushTail(listArgs(argv)...)
		return nil
	})
	if err != nil {
		return reply.Error(err.Error())
	}
	return reply.Integer(int64(n))
}

func cmdLPop(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	return listPop(e, argv, true)
}

func cmdRPop(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	return listPop(e, argv, false)
}

func listPop(e *Engine, argv [][]byte, head bool) reply.Reply {
	if len(argv) != 2 {
		return reply.Error("ERR wrong number of arguments for 'pop' command")
	}
	var out string
	var popped bool
	ok, err := e.mutateExisting(string(argv[1]), value.KindList, func(v value.Value) error {
		l := v.(*value.List)
		if head {
			out, popped = l.PopHead()
		} else {
			out, popped = l.PopTail()
		}
		return nil
	})
	if err != nil {
		return reply.Error(err.Error())
	}
	if !ok || !popped {
		return reply.NullBulk()
	}
	// Delete the key once it's drained empty, matching Redis's
	// "containers never exist empty" invariant.
	if v, exists := e.ks.Get(string(argv[1])); exists && v.(*value.List).Len() == 0 {
		e.deleteKey(string(argv[1]))
	}
	return reply.Bulk(out)
}

func cmdLLen(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 2 {
		return reply.Error("ERR wrong number of arguments for 'llen' command")
	}
	v, ok, err := e.ks.GetAs(string(argv[1]), value.KindList)
	if err != nil {
		return reply.Error(err.Error())
	}
	if !ok {
		return reply.Integer(0)
	}
	return reply.Integer(int64(v.(*value.List).Len()))
}

func cmdLRange(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 4 {
		return reply.Error("ERR wrong number of arguments for 'lrange' command")
	}
	start, err1 := strconv.Atoi(string(argv[2]))
	stop, err2 := strconv.Atoi(string(argv[3]))
	if err1 != nil || err2 != nil {
		return reply.Error("ERR value is not an integer or out of range")
	}
	v, ok, err := e.ks.GetAs(string(argv[1]), value.KindList)
	if err != nil {
		return reply.Error(err.Error())
	}
	if !ok {
		return reply.Array()
	}
	return reply.StringArray(v.(*value.List).Range(start, stop))
}

func cmdLIndex(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 3 {
		return reply.Error("ERR wrong number of arguments for 'lindex' command")
	}
	idx, err := strconv.Atoi(string(argv[2]))
	if err != nil {
		return reply.Error("ERR value is not an integer or out of range")
	}
	v, ok, gerr := e.ks.GetAs(string(argv[1]), value.KindList)
	if gerr != nil {
		return reply.Error(gerr.Error())
	}
	if !ok {
		return reply.NullBulk()
	}
	s, found := v.(*value.List).GetAt(idx)
	if !found {
		return reply.NullBulk()
	}
	return reply.Bulk(s)
}

func cmdLSet(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 4 {
		return reply.Error("ERR wrong number of arguments for 'lset' command")
	}
	idx, err := strconv.Atoi(string(argv[2]))
	if err != nil {
		return reply.Error("ERR value is not an integer or out of range")
	}
	var set bool
	ok, merr := e.mutateExisting(string(argv[1]), value.KindList, func(v value.Value) error {
		set = v.(*value.List).SetAt(idx, string(argv[3]))
		return nil
	})
	if merr != nil {
		return reply.Error(merr.Error())
	}
	if !ok {
		return reply.Error("ERR no such key")
	}
	if !set {
		return reply.Error("ERR index out of range")
	}
	return reply.SimpleString("OK")
}

func cmdLTrim(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 4 {
		return reply.Error("ERR wrong number of arguments for 'ltrim' command")
	}
	start, err1 := strconv.Atoi(string(argv[2]))
	stop, err2 := strconv.Atoi(string(argv[3]))
	if err1 != nil || err2 != nil {
		return reply.Error("ERR value is not an integer or out of range")
	}
	_, err := e.mutateExisting(string(argv[1]), value.KindList, func(v value.Value) error {
		v.(*value.List).Trim(start, stop)
		return nil
	})
	if err != nil {
		return reply.Error(err.Error())
	}
	if v, exists := e.ks.Get(string(argv[1])); exists {
		if l, isList := v.(*value.List); isList && l.Len() == 0 {
			e.deleteKey(string(argv[1]))
		}
	}
	return reply.SimpleString("OK")
}
