package engine

import (
	"redcore/internal/reply"
	"redcore/internal/value"
)

func (e *Engine) registerSetCommands() {
	e.register("SADD", cmdSAdd)
	e.register("SREM", cmdSRem)
	e.register("SISMEMBER", cmdSIsMember)
	e.register("SMEMBERS", cmdSMembers)
	e.register("SCARD", cmdSCard)
	e.register("SPOP", cmdSPop)
	e.register("SRANDMEMBER", cmdSRandMember)
	e.register("SUNION", cmdSUnion)
	e.register("SINTER", cmdSInter)
	e.register("SDIFF", cmdSDiff)
}

func cmdSAdd(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) < 3 {
		return reply.Error("ERR wrong number of arguments for 'sadd' command")
	}
	var n int
	_, err := e.mutateOrCreate(string(argv[1]), value.KindSet, func() value.Value { return value.NewSet() }, func(v value.Value) error {
		s := v.(*value.Set)
		for _, m := range argv[2:] {
			if s.Add(string(m)) {
				n++
			}
		}
		return nil
	})
	if err != nil {
		return reply.Error(err.Error())
	}
	return reply.Integer(int64(n))
}

func cmdSRem(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) < 3 {
		return reply.Error("ERR wrong number of arguments for 'srem' command")
	}
	var n int
	ok, err := e.mutateExisting(string(argv[1]), value.KindSet, func(v value.Value) error {
		s := v.(*value.Set)
		for _, m := range argv[2:] {
			if s.Remove(string(m)) {
				n++
			}
		}
		return nil
	})
	if err != nil {
		return reply.Error(err.Error())
	}
	if ok && n > 0 {
		if v, exists := e.ks.Get(string(argv[1])); exists && v.(*value.Set).Len() == 0 {
			e.deleteKey(string(argv[1]))
		}
	}
	return reply.Integer(int64(n))
}

func cmdSIsMember(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 3 {
		return reply.Error("ERR wrong number of arguments for 'sismember' command")
	}
	v, ok, err := e.ks.GetAs(string(argv[1]), value.KindSet)
	if err != nil {
		return reply.Error(err.Error())
	}
	if !ok {
		return reply.Integer(0)
	}
	if v.(*value.Set).Contains(string(argv[2])) {
		return reply.Integer(1)
	}
	return reply.Integer(0)
}

func cmdSMembers(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 2 {
		return reply.Error("ERR wrong number of arguments for 'smembers' command")
	}
	v, ok, err := e.ks.GetAs(string(argv[1]), value.KindSet)
	if err != nil {
		return reply.Error(err.Error())
	}
	if !ok {
		return reply.Array()
	}
	return reply.StringArray(v.(*value.Set).Members())
}

func cmdSCard(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 2 {
		return reply.Error("ERR wrong number of arguments for 'scard' command")
	}
	v, ok, err := e.ks.GetAs(string(argv[1]), value.KindSet)
	if err != nil {
		return reply.Error(err.Error())
	}
	if !ok {
		return reply.Integer(0)
	}
	return reply.Integer(int64(v.(*value.Set).Len()))
}

func cmdSPop(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 2 {
		return reply.Error("ERR wrong number of arguments for 'spop' command")
	}
	var out string
	var popped bool
	ok, err := e.mutateExisting(string(argv[1]), value.KindSet, func(v value.Value) error {
		out, popped = v.(*value.Set).PopRandom()
		return nil
	})
	if err != nil {
		return reply.Error(err.Error())
	}
	if !ok || !popped {
		return reply.NullBulk()
	}
	if v, exists := e.ks.Get(string(argv[1])); exists && v.(*value.Set).Len() == 0 {
		e.deleteKey(string(argv[1]))
	}
	return reply.Bulk(out)
}

func cmdSRandMember(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 2 {
		return reply.Error("ERR wrong number of arguments for 'srandmember' command")
	}
	v, ok, err := e.ks.GetAs(string(argv[1]), value.KindSet)
	if err != nil {
		return reply.Error(err.Error())
	}
	if !ok {
		return reply.NullBulk()
	}
	m, found := v.(*value.Set).RandomMember()
	if !found {
		return reply.NullBulk()
	}
	return reply.Bulk(m)
}

func loadSets(e *Engine, keys [][]byte) ([]*value.Set, error) {
	out := make([]*value.Set, 0, len(keys))
	for _, k := range keys {
		v, ok, err := e.ks.GetAs(string(k), value.KindSet)
		if err != nil {
			return nil, err
		}
		if !ok {
			out = append(out, value.NewSet())
			continue
		}
		out = append(out, v.(*value.Set))
	}
	return out, nil
}

func cmdSUnion(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) < 2 {
		return reply.Error("ERR wrong number of arguments for 'sunion' command")
	}
	sets, err := loadSets(e, argv[1:])
	if err != nil {
		return reply.Error(err.Error())
	}
	return reply.StringArray(value.Union(sets...).Members())
}

func cmdSInter(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) < 2 {
		return reply.Error("ERR wrong number of arguments for 'sinter' command")
	}
	sets, err := loadSets(e, argv[1:])
	if err != nil {
		return reply.Error(err.Error())
	}
	return reply.StringArray(value.Intersect(sets...).Members())
}

func cmdSDiff(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) < 2 {
		return reply.Error("ERR wrong number of arguments for 'sdiff' command")
	}
	sets, err := loadSets(e, argv[1:])
	if err != nil {
		return reply.Error(err.Error())
	}
	return reply.StringArray(value.Difference(sets...).Members())
}
