package engine

import (
	"redcore/internal/reply"
	"redcore/internal/value"
)

const hllDefaultPrecision = 14

func (e *Engine) registerHLLCommands() {
	e.register("PFADD", cmdPFAdd)
	e.register("PFCOUNT", cmdPFCount)
	e.register("PFMERGE", cmdPFMerge)
}

func cmdPFAdd(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) < 2 {
		return reply.Error("ERR wrong number of arguments for 'pfadd' command")
	}
	var changed bool
	_, err := e.mutateOrCreate(string(argv[1]), value.KindHyperLogLog, func() value.Value { return value.NewHyperLogLog(hllDefaultPrecision) }, func(v value.Value) error {
		h := v.(*value.HyperLogLog)
		for _, m := range argv[2:] {
			if h.Add(string(m)) {
				changed = true
			}
		}
		return nil
	})
	if err != nil {
		return reply.Error(err.Error())
	}
	if changed {
		return reply.Integer(1)
	}
	return reply.Integer(0)
}

func cmdPFCount(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) < 2 {
		return reply.Error("ERR wrong number of arguments for 'pfcount' command")
	}
	if len(argv) == 2 {
		v, ok, err := e.ks.GetAs(string(argv[1]), value.KindHyperLogLog)
		if err != nil {
			return reply.Error(err.Error())
		}
		if !ok {
			return reply.Integer(0)
		}
		return reply.Integer(int64(v.(*value.HyperLogLog).Cardinality()))
	}
	merged := value.NewHyperLogLog(hllDefaultPrecision)
	for _, k := range argv[1:] {
		v, ok, err := e.ks.GetAs(string(k), value.KindHyperLogLog)
		if err != nil {
			return reply.Error(err.Error())
		}
		if !ok {
			continue
		}
		if err := merged.Merge(v.(*value.HyperLogLog)); err != nil {
			return reply.Error(err.Error())
		}
	}
	return reply.Integer(int64(merged.Cardinality()))
}

func cmdPFMerge(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) < 2 {
		return reply.Error("ERR wrong number of arguments for 'pfmerge' command")
	}
	sources := make([]*value.HyperLogLog, 0, len(argv)-2)
	for _, k := range argv[2:] {
		v, ok, err := e.ks.GetAs(string(k), value.KindHyperLogLog)
		if err != nil {
			return reply.Error(err.Error())
		}
		if ok {
			sources = append(sources, v.(*value.HyperLogLog))
		}
	}
	_, err := e.mutateOrCreate(string(argv[1]), value.KindHyperLogLog, func() value.Value { return value.NewHyperLogLog(hllDefaultPrecision) }, func(v value.Value) error {
		return v.(*value.HyperLogLog).Merge(sources...)
	})
	if err != nil {
		return reply.Error(err.Error())
	}
	return reply.SimpleString("OK")
}
