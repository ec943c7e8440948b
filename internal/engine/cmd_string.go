package engine

import (
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"redcore/internal/reply"
	"redcore/internal/value"
)

func (e *Engine) registerStringCommands() {
	e.register("SET", cmdSet)
	e.register("GET", cmdGet)
	e.register("GETDEL", cmdGetDel)
	e.register("SETNX", cmdSetNX)
	e.register("APPEND", cmdAppend)
	e.register("STRLEN", cmdStrlen)
	e.register("GETRANGE", cmdGetRange)
	e.register("SETRANGE", cmdSetRange)
	e.register("INCR", cmdIncr)
	e.register("DECR", cmdDecr)
	e.register("INCRBY", cmdIncrBy)
	e.register("DECRBY", cmdDecrBy)
	e.register("INCRBYFLOAT", cmdIncrByFloat)
	e.register("MSET", cmdMSet)
	e.register("MGET", cmdMGet)
}

func cmdSet(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) < 3 {
		return reply.Error("ERR wrong number of arguments for 'set' command")
	}
	key, val := string(argv[1]), argv[2]

	var expireAt *time.Time
	nx, xx := false, false
	for i := 3; i < len(argv); i++ {
		switch commandName(argv[i]) {
		case "NX":
			nx = true
		case "XX":
			xx = true
		case "EX", "PX":
			if i+1 >= len(argv) {
				return reply.Error("ERR syntax error")
			}
			n, err := strconv.ParseInt(string(argv[i+1]), 10, 64)
			if err != nil {
				return reply.Error("ERR value is not an integer or out of range")
			}
			unit := time.Second
			if commandName(argv[i]) == "PX" {
				unit = time.Millisecond
			}
			at := time.Now().Add(time.Duration(n) * unit)
			expireAt = &at
			i++
		default:
			return reply.Error("ERR syntax error")
		}
	}

	exists := e.ks.Exists(key)
	if nx && exists {
		return reply.NullBulk()
	}
	if xx && !exists {
		return reply.NullBulk()
	}

	e.setValue(key, value.NewStringBytes(val))
	if expireAt != nil {
		e.ks.SetExpire(key, *expireAt)
	}
	return reply.SimpleString("OK")
}

func cmdGet(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 2 {
		return reply.Error("ERR wrong number of arguments for 'get' command")
	}
	v, ok, err := e.ks.GetAs(string(argv[1]), value.KindString)
	if err != nil {
		return reply.Error(err.Error())
	}
	if !ok {
		return reply.NullBulk()
	}
	e.readAccess(string(argv[1]))
	return reply.Bulk(string(v.(*value.String).Bytes()))
}

func cmdGetDel(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 2 {
		return reply.Error("ERR wrong number of arguments for 'getdel' command")
	}
	v, ok, err := e.ks.GetAs(string(argv[1]), value.KindString)
	if err != nil {
		return reply.Error(err.Error())
	}
	if !ok {
		return reply.NullBulk()
	}
	s := string(v.(*value.String).Bytes())
	e.deleteKey(string(argv[1]))
	return reply.Bulk(s)
}

func cmdSetNX(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 3 {
		return reply.Error("ERR wrong number of arguments for 'setnx' command")
	}
	v := value.NewStringBytes(argv[2])
	if !e.ks.SetIfAbsent(string(argv[1]), v) {
		return reply.Integer(0)
	}
	atomic.AddInt64(&e.usedBytes, int64(v.SizeEstimate()))
	e.evict.OnSet(string(argv[1]), v.SizeEstimate())
	return reply.Integer(1)
}

func cmdAppend(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 3 {
		return reply.Error("ERR wrong number of arguments for 'append' command")
	}
	key := string(argv[1])
	var length int
	ok, err := e.mutateExisting(key, value.KindString, func(v value.Value) error {
		length = v.(*value.String).Append(argv[2])
		return nil
	})
	if err != nil {
		return reply.Error(err.Error())
	}
	if !ok {
		e.setValue(key, value.NewStringBytes(argv[2]))
		length = len(argv[2])
	}
	return reply.Integer(int64(length))
}

func cmdStrlen(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 2 {
		return reply.Error("ERR wrong number of arguments for 'strlen' command")
	}
	v, ok, err := e.ks.GetAs(string(argv[1]), value.KindString)
	if err != nil {
		return reply.Error(err.Error())
	}
	if !ok {
		return reply.Integer(0)
	}
	return reply.Integer(int64(v.(*value.String).Len()))
}

func cmdGetRange(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 4 {
		return reply.Error("ERR wrong number of arguments for 'getrange' command")
	}
	start, err1 := strconv.Atoi(string(argv[2]))
	end, err2 := strconv.Atoi(string(argv[3]))
	if err1 != nil || err2 != nil {
		return reply.Error("ERR value is not an integer or out of range")
	}
	v, ok, err := e.ks.GetAs(string(argv[1]), value.KindString)
	if err != nil {
		return reply.Error(err.Error())
	}
	if !ok {
		return reply.Bulk("")
	}
	return reply.Bulk(string(v.(*value.String).Range(start, end)))
}

func cmdSetRange(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 4 {
		return reply.Error("ERR wrong number of arguments for 'setrange' command")
	}
	offset, err := strconv.Atoi(string(argv[2]))
	if err != nil || offset < 0 {
		return reply.Error("ERR offset is out of range")
	}
	patch := argv[3]

	var out []byte
	ok, err2 := e.mutateExisting(string(argv[1]), value.KindString, func(v value.Value) error {
		s := v.(*value.String)
		cur := s.Bytes()
		need := offset + len(patch)
		buf := make([]byte, need)
		copy(buf, cur)
		copy(buf[offset:], patch)
		s.SetBytes(buf)
		out = buf
		return nil
	})
	if err2 != nil {
		return reply.Error(err2.Error())
	}
	if !ok {
		buf := make([]byte, offset+len(patch))
		copy(buf[offset:], patch)
		e.setValue(string(argv[1]), value.NewStringBytes(buf))
		out = buf
	}
	return reply.Integer(int64(len(out)))
}

func cmdIncr(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	return incrByHelper(e, argv, "incr", 1)
}

func cmdDecr(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	return incrByHelper(e, argv, "decr", -1)
}

func cmdIncrBy(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	n, err := parseDelta(argv, "incrby")
	if err != nil {
		return reply.Error(err.Error())
	}
	return incrByHelper(e, argv[:2], "incrby", n)
}

func cmdDecrBy(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	n, err := parseDelta(argv, "decrby")
	if err != nil {
		return reply.Error(err.Error())
	}
	return incrByHelper(e, argv[:2], "decrby", -n)
}

func parseDelta(argv [][]byte, cmd string) (int64, error) {
	if len(argv) != 3 {
		return 0, errors.New("ERR wrong number of arguments for '" + cmd + "' command")
	}
	n, err := strconv.ParseInt(string(argv[2]), 10, 64)
	if err != nil {
		return 0, value.ErrNotAnInteger
	}
	return n, nil
}

func incrByHelper(e *Engine, argv [][]byte, cmd string, delta int64) reply.Reply {
	if len(argv) != 2 {
		return reply.Error("ERR wrong number of arguments for '" + cmd + "' command")
	}
	key := string(argv[1])
	var result int64
	var incrErr error
	ok, err := e.mutateExisting(key, value.KindString, func(v value.Value) error {
		result, incrErr = v.(*value.String).IncrBy(delta)
		return incrErr
	})
	if err != nil {
		return reply.Error(err.Error())
	}
	if !ok {
		e.setValue(key, value.NewStringInt(delta))
		return reply.Integer(delta)
	}
	return reply.Integer(result)
}

func cmdIncrByFloat(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 3 {
		return reply.Error("ERR wrong number of arguments for 'incrbyfloat' command")
	}
	delta, perr := strconv.ParseFloat(string(argv[2]), 64)
	if perr != nil {
		return reply.Error("ERR value is not a valid float")
	}
	key := string(argv[1])
	var result float64
	var incrErr error
	ok, err := e.mutateExisting(key, value.KindString, func(v value.Value) error {
		result, incrErr = v.(*value.String).IncrByFloat(delta)
		return incrErr
	})
	if err != nil {
		return reply.Error(err.Error())
	}
	if !ok {
		e.setValue(key, value.NewStringBytes([]byte(strconv.FormatFloat(delta, 'f', -1, 64))))
		result = delta
	}
	return reply.Bulk(strconv.FormatFloat(result, 'f', -1, 64))
}

func cmdMSet(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) < 3 || len(argv)%2 != 1 {
		return reply.Error("ERR wrong number of arguments for 'mset' command")
	}
	for i := 1; i < len(argv); i += 2 {
		e.setValue(string(argv[i]), value.NewStringBytes(argv[i+1]))
	}
	return reply.SimpleString("OK")
}

func cmdMGet(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) < 2 {
		return reply.Error("ERR wrong number of arguments for 'mget' command")
	}
	out := make([]reply.Reply, len(argv)-1)
	for i, k := range argv[1:] {
		v, ok, err := e.ks.GetAs(string(k), value.KindString)
		if err != nil || !ok {
			out[i] = reply.NullBulk()
			continue
		}
		out[i] = reply.Bulk(string(v.(*value.String).Bytes()))
	}
	return reply.Array(out...)
}
