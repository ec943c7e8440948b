package engine

import (
	"redcore/internal/pubsub"
	"redcore/internal/reply"
)

func (e *Engine) registerPubSubCommands() {
	e.register("SUBSCRIBE", cmdSubscribe)
	e.register("UNSUBSCRIBE", cmdUnsubscribe)
	e.register("PSUBSCRIBE", cmdPSubscribe)
	e.register("PUNSUBSCRIBE", cmdPUnsubscribe)
	e.register("PUBLISH", cmdPublish)
	e.register("PUBSUB", cmdPubSub)
}

func cmdSubscribe(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) < 2 {
		return reply.Error("ERR wrong number of arguments for 'subscribe' command")
	}
	for _, ch := range argv[1:] {
		channel := string(ch)
		if err := e.authz.CanAccessChannel(sess.User(), channel); err != nil {
			continue
		}
		e.router.Subscribe(sessionClientID(sess.ID()), sess, channel)
		sess.addChannels(channel)
		sess.Deliver(pubsub.Message{Kind: "subscribe", Channel: channel, Count: sess.subscriptionCount()})
	}
	// Confirmation pushes are delivered individually above (per-channel,
	// matching real Redis's SUBSCRIBE reply shape); EXEC still needs a
	// reply value, so return an empty array rather than nil.
	return reply.Array()
}

func cmdUnsubscribe(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	channels := make([]string, len(argv)-1)
	for i, a := range argv[1:] {
		channels[i] = string(a)
	}
	left := e.router.Unsubscribe(sessionClientID(sess.ID()), channels...)
	sess.removeChannels(left...)
	for _, ch := range left {
		sess.Deliver(pubsub.Message{Kind: "unsubscribe", Channel: ch, Count: sess.subscriptionCount()})
	}
	return reply.Array()
}

func cmdPSubscribe(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) < 2 {
		return reply.Error("ERR wrong number of arguments for 'psubscribe' command")
	}
	for _, p := range argv[1:] {
		pattern := string(p)
		if err := e.authz.CanAccessChannel(sess.User(), pattern); err != nil {
			continue
		}
		e.router.PSubscribe(sessionClientID(sess.ID()), sess, pattern)
		sess.addPatterns(pattern)
		sess.Deliver(pubsub.Message{Kind: "psubscribe", Channel: pattern, Count: sess.subscriptionCount()})
	}
	return reply.Array()
}

func cmdPUnsubscribe(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	patterns := make([]string, len(argv)-1)
	for i, a := range argv[1:] {
		patterns[i] = string(a)
	}
	left := e.router.PUnsubscribe(sessionClientID(sess.ID()), patterns...)
	sess.removePatterns(left...)
	for _, p := range left {
		sess.Deliver(pubsub.Message{Kind: "punsubscribe", Channel: p, Count: sess.subscriptionCount()})
	}
	return reply.Array()
}

func cmdPublish(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 3 {
		return reply.Error("ERR wrong number of arguments for 'publish' command")
	}
	channel := string(argv[1])
	if err := e.authz.CanAccessChannel(sess.User(), channel); err != nil {
		return reply.Error(err.Error())
	}
	n := e.router.Publish(channel, string(argv[2]))
	return reply.Integer(int64(n))
}

// cmdPubSub implements the CHANNELS/NUMSUB/NUMPAT introspection
// subcommands PUBSUB exposes.
func cmdPubSub(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) < 2 {
		return reply.Error("ERR wrong number of arguments for 'pubsub' command")
	}
	switch commandName(argv[1]) {
	case "CHANNELS":
		pattern := "*"
		if len(argv) >= 3 {
			pattern = string(argv[2])
		}
		return reply.StringArray(e.router.Channels(pattern))
	case "NUMSUB":
		channels := make([]string, len(argv)-2)
		for i, a := range argv[2:] {
			channels[i] = string(a)
		}
		counts := e.router.NumSub(channels...)
		out := make([]reply.Reply, 0, len(channels)*2)
		for _, ch := range channels {
			out = append(out, reply.Bulk(ch), reply.Integer(int64(counts[ch])))
		}
		return reply.Array(out...)
	case "NUMPAT":
		return reply.Integer(int64(e.router.NumPat()))
	default:
		return reply.Error("ERR unknown PUBSUB subcommand")
	}
}
