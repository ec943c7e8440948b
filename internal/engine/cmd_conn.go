package engine

import (
	"strconv"

	"redcore/internal/protocol"
	"redcore/internal/reply"
)

func (e *Engine) registerConnCommands() {
	e.register("PING", cmdPing)
	e.register("ECHO", cmdEcho)
	e.register("HELLO", cmdHello)
	e.register("AUTH", cmdAuth)
	e.register("SELECT", cmdSelect)
	e.register("QUIT", cmdQuit)
	e.register("RESET", cmdReset)
	e.register("COMMAND", cmdCommand)
}

func cmdPing(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) > 2 {
		return reply.Error("ERR wrong number of arguments for 'ping' command")
	}
	if len(argv) == 2 {
		return reply.Bulk(string(argv[1]))
	}
	return reply.SimpleString("PONG")
}

func cmdEcho(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 2 {
		return reply.Error("ERR wrong number of arguments for 'echo' command")
	}
	return reply.Bulk(string(argv[1]))
}

// cmdHello implements the RESP3 negotiation handshake (spec.md §5's
// supplemented feature, since real RESP3 clients open every connection
// with this before anything else).
func cmdHello(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	version := sess.ProtoVersion()
	if len(argv) >= 2 {
		n, err := strconv.Atoi(string(argv[1]))
		if err != nil || (n != 2 && n != 3) {
			return reply.Error("NOPROTO unsupported protocol version")
		}
		version = protocol.Version(n)
	}

	for i := 2; i < len(argv); i++ {
		if commandName(argv[i]) == "AUTH" && i+2 < len(argv) {
			u, err := e.authz.Authenticate(string(argv[i+1]), string(argv[i+2]))
			if err != nil {
				return reply.Error(err.Error())
			}
			sess.setUser(u)
			i += 2
		}
	}

	sess.setProtoVersion(version)
	return reply.Map(
		[]reply.Reply{reply.Bulk("server"), reply.Bulk("mode"), reply.Bulk("role"), reply.Bulk("proto")},
		[]reply.Reply{reply.Bulk("redcore"), reply.Bulk("standalone"), reply.Bulk("master"), reply.Integer(int64(version))},
	)
}

func cmdAuth(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	var username, password string
	switch len(argv) {
	case 2:
		username, password = "default", string(argv[1])
	case 3:
		username, password = string(argv[1]), string(argv[2])
	default:
		return reply.Error("ERR wrong number of arguments for 'auth' command")
	}
	u, err := e.authz.Authenticate(username, password)
	if err != nil {
		return reply.Error(err.Error())
	}
	sess.setUser(u)
	return reply.SimpleString("OK")
}

// cmdSelect is a stub: redcore runs a single logical database
// (spec.md's Non-goals exclude multi-database SELECT), so only DB 0 is valid.
func cmdSelect(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) != 2 {
		return reply.Error("ERR wrong number of arguments for 'select' command")
	}
	if string(argv[1]) != "0" {
		return reply.Error("ERR DB index is out of range")
	}
	return reply.SimpleString("OK")
}

func cmdQuit(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	return reply.SimpleString("OK")
}

func cmdReset(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	sess.endMulti()
	sess.unwatch()
	sess.setUser(e.authz.DefaultUser())
	return reply.SimpleString("RESET")
}

// cmdCommand is a minimal stub so clients probing COMMAND DOCS/COUNT at
// connect time don't fail outright; the full command-introspection table
// real Redis exposes is out of this engine's scope.
func cmdCommand(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	return reply.Array()
}
