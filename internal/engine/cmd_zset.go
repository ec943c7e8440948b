package engine

import (
	"strconv"

	"redcore/internal/reply"
	"redcore/internal/value"
)

func (e *Engine) registerZSetCommands() {
	e.register("ZADD", cmdZAdd)
	e.register("ZSCORE", cmdZScore)
	e.register("ZINCRBY", cmdZIncrBy)
	e.register("ZRANK", cmdZRank)
	e.register("ZREVRANK", cmdZRevRank)
	e.register("ZRANGE", cmdZRange)
	e.register("ZREVRANGE", cmdZRevRange)
	e.register("ZRANGEBYSCORE", cmdZRangeByScore)
	e.register("ZCARD", cmdZCard)
	e.register("ZCOUNT", cmdZCount)
	e.register("ZREM", cmdZRem)
}

func cmdZAdd(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) < 4 || len(argv)%2 != 0 {
		return reply.Error("ERR wrong number of arguments for 'zadd' command")
	}
	type pair struct {
		score  float64
		member string
	}
	pairs := make([]pair, 0, (len(argv)-2)/2)
	for i := 2; i+1 < len(argv); i += 2 {
		sc, err := strconv.ParseFloat(string(argv[i]), 64)
		if err != nil {
			return reply.Error("ERR value is not a valid float")
		}
		pairs = append(pairs, pair{score: sc, member: string(argv[i+1])})
	}

	var added int
	_, err := e.mutateOrCreate(string(argv[1]), value.KindSortedSet, func() value.Value { return value.NewSortedSet() }, func(v value.Value) error {
		z := v.(*value.SortedSet)
		for _, p := range pairs {
			if z.Add(p.member, p.score) == value.ZAdded {
				added++
			}
		}
		return nil
	})
	if err != nil {
		return reply.Error(err.Error())
	}
	return reply.Integer(int64(added))
}

func cmdZScore(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 3 {
		return reply.Error("ERR wrong number of arguments for 'zscore' command")
	}
	v, ok, err := e.ks.GetAs(string(argv[1]), value.KindSortedSet)
	if err != nil {
		return reply.Error(err.Error())
	}
	if !ok {
		return reply.NullBulk()
	}
	score, found := v.(*value.SortedSet).ScoreOf(string(argv[2]))
	if !found {
		return reply.NullBulk()
	}
	return reply.Bulk(strconv.FormatFloat(score, 'f', -1, 64))
}

func cmdZIncrBy(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 4 {
		return reply.Error("ERR wrong number of arguments for 'zincrby' command")
	}
	delta, err := strconv.ParseFloat(string(argv[2]), 64)
	if err != nil {
		return reply.Error("ERR value is not a valid float")
	}
	var result float64
	_, merr := e.mutateOrCreate(string(argv[1]), value.KindSortedSet, func() value.Value { return value.NewSortedSet() }, func(v value.Value) error {
		result = v.(*value.SortedSet).IncrScore(string(argv[3]), delta)
		return nil
	})
	if merr != nil {
		return reply.Error(merr.Error())
	}
	return reply.Bulk(strconv.FormatFloat(result, 'f', -1, 64))
}

func zRankCmd(e *Engine, argv [][]byte, reverse bool) reply.Reply {
	if len(argv) != 3 {
		return reply.Error("ERR wrong number of arguments for 'zrank' command")
	}
	v, ok, err := e.ks.GetAs(string(argv[1]), value.KindSortedSet)
	if err != nil {
		return reply.Error(err.Error())
	}
	if !ok {
		return reply.NullBulk()
	}
	rank := v.(*value.SortedSet).Rank(string(argv[2]), reverse)
	if rank < 0 {
		return reply.NullBulk()
	}
	return reply.Integer(int64(rank))
}

func cmdZRank(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	return zRankCmd(e, argv, false)
}

func cmdZRevRank(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	return zRankCmd(e, argv, true)
}

func zMembersReply(members []value.ZMember, withScores bool) reply.Reply {
	if !withScores {
		out := make([]string, len(members))
		for i, m := range members {
			out[i] = m.Member
		}
		return reply.StringArray(out)
	}
	out := make([]reply.Reply, 0, len(members)*2)
	for _, m := range members {
		out = append(out, reply.Bulk(m.Member), reply.Bulk(strconv.FormatFloat(m.Score, 'f', -1, 64)))
	}
	return reply.Array(out...)
}

func zRangeCmd(e *Engine, argv [][]byte, reverse bool) reply.Reply {
	if len(argv) < 4 {
		return reply.Error("ERR wrong number of arguments for 'zrange' command")
	}
	start, err1 := strconv.Atoi(string(argv[2]))
	stop, err2 := strconv.Atoi(string(argv[3]))
	if err1 != nil || err2 != nil {
		return reply.Error("ERR value is not an integer or out of range")
	}
	withScores := len(argv) == 5 && commandName(argv[4]) == "WITHSCORES"
	v, ok, err := e.ks.GetAs(string(argv[1]), value.KindSortedSet)
	if err != nil {
		return reply.Error(err.Error())
	}
	if !ok {
		return reply.Array()
	}
	return zMembersReply(v.(*value.SortedSet).RangeByRank(start, stop, reverse), withScores)
}

func cmdZRange(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	return zRangeCmd(e, argv, false)
}

func cmdZRevRange(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	return zRangeCmd(e, argv, true)
}

func cmdZRangeByScore(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) < 4 {
		return reply.Error("ERR wrong number of arguments for 'zrangebyscore' command")
	}
	min, err1 := strconv.ParseFloat(string(argv[2]), 64)
	max, err2 := strconv.ParseFloat(string(argv[3]), 64)
	if err1 != nil || err2 != nil {
		return reply.Error("ERR min or max is not a float")
	}
	withScores := false
	offset, count := 0, -1
	for i := 4; i < len(argv); i++ {
		switch commandName(argv[i]) {
		case "WITHSCORES":
			withScores = true
		case "LIMIT":
			if i+2 >= len(argv) {
				return reply.Error("ERR syntax error")
			}
			offset, _ = strconv.Atoi(string(argv[i+1]))
			count, _ = strconv.Atoi(string(argv[i+2]))
			i += 2
		}
	}
	v, ok, err := e.ks.GetAs(string(argv[1]), value.KindSortedSet)
	if err != nil {
		return reply.Error(err.Error())
	}
	if !ok {
		return reply.Array()
	}
	return zMembersReply(v.(*value.SortedSet).RangeByScore(min, max, offset, count, false), withScores)
}

func cmdZCard(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 2 {
		return reply.Error("ERR wrong number of arguments for 'zcard' command")
	}
	v, ok, err := e.ks.GetAs(string(argv[1]), value.KindSortedSet)
	if err != nil {
		return reply.Error(err.Error())
	}
	if !ok {
		return reply.Integer(0)
	}
	return reply.Integer(int64(v.(*value.SortedSet).Len()))
}

func cmdZCount(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 4 {
		return reply.Error("ERR wrong number of arguments for 'zcount' command")
	}
	min, err1 := strconv.ParseFloat(string(argv[2]), 64)
	max, err2 := strconv.ParseFloat(string(argv[3]), 64)
	if err1 != nil || err2 != nil {
		return reply.Error("ERR min or max is not a float")
	}
	v, ok, err := e.ks.GetAs(string(argv[1]), value.KindSortedSet)
	if err != nil {
		return reply.Error(err.Error())
	}
	if !ok {
		return reply.Integer(0)
	}
	return reply.Integer(int64(v.(*value.SortedSet).CountByScore(min, max)))
}

func cmdZRem(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) < 3 {
		return reply.Error("ERR wrong number of arguments for 'zrem' command")
	}
	var n int
	ok, err := e.mutateExisting(string(argv[1]), value.KindSortedSet, func(v value.Value) error {
		z := v.(*value.SortedSet)
		for _, m := range argv[2:] {
			if z.Remove(string(m)) {
				n++
			}
		}
		return nil
	})
	if err != nil {
		return reply.Error(err.Error())
	}
	if ok && n > 0 {
		if v, exists := e.ks.Get(string(argv[1])); exists && v.(*value.SortedSet).Len() == 0 {
			e.deleteKey(string(argv[1]))
		}
	}
	return reply.Integer(int64(n))
}
