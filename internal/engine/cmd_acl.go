package engine

import (
	"strings"

	"redcore/internal/reply"
)

// registerACLCommands wires a minimal subset of real Redis's ACL command:
// WHOAMI, SETUSER (token rules, see applyACLRule), DELUSER, LIST. Rule
// grammar, user enable/disable, and CAT are out of this engine's scope.
func (e *Engine) registerACLCommands() {
	e.register("ACL", cmdACL)
}

func cmdACL(e *Engine, sess *Session, argv [][]byte) reply.Reply {
	if len(argv) < 2 {
		return reply.Error("ERR wrong number of arguments for 'acl' command")
	}
	switch commandName(argv[1]) {
	case "WHOAMI":
		return reply.Bulk(sess.User().Name)
	case "SETUSER":
		return cmdACLSetUser(e, argv)
	case "DELUSER":
		return cmdACLDelUser(e, argv)
	case "LIST":
		return cmdACLList(e)
	default:
		return reply.Error("ERR unknown ACL subcommand")
	}
}

func cmdACLSetUser(e *Engine, argv [][]byte) reply.Reply {
	if len(argv) < 3 {
		return reply.Error("ERR wrong number of arguments for 'acl|setuser' command")
	}
	name := string(argv[2])
	if _, err := e.authz.CreateUser(name); err != nil {
		// already exists: SETUSER also edits an existing user's rules.
		_ = err
	}
	for _, tok := range argv[3:] {
		applyACLRule(e, name, string(tok))
	}
	return reply.SimpleString("OK")
}

// applyACLRule applies one ACL rule token, using real Redis's ACL
// SETUSER token spelling for the subset this engine accepts:
// on/off, nopass, >password, +command, -command, ~keypattern,
// &channelpattern. on/off have no effect, and nopass registers the empty
// string as a password rather than letting any password through.
// Unrecognised tokens are ignored.
func applyACLRule(e *Engine, user, tok string) {
	switch {
	case tok == "on" || tok == "off":
		// enable/disable is not exposed by the authorizer API; accepted
		// as a no-op token rather than rejected outright.
	case tok == "nopass":
		e.authz.SetPassword(user, "")
	case strings.HasPrefix(tok, ">"):
		e.authz.SetPassword(user, tok[1:])
	case strings.HasPrefix(tok, "+"):
		e.authz.AllowCommand(user, tok[1:])
	case strings.HasPrefix(tok, "-"):
		e.authz.DenyCommand(user, tok[1:])
	case strings.HasPrefix(tok, "~"):
		e.authz.AllowKeyPattern(user, tok[1:])
	case strings.HasPrefix(tok, "&"):
		e.authz.AllowChannelPattern(user, tok[1:])
	}
}

func cmdACLDelUser(e *Engine, argv [][]byte) reply.Reply {
	if len(argv) < 3 {
		return reply.Error("ERR wrong number of arguments for 'acl|deluser' command")
	}
	n := 0
	for _, a := range argv[2:] {
		if err := e.authz.DeleteUser(string(a)); err == nil {
			n++
		}
	}
	return reply.Integer(int64(n))
}

func cmdACLList(e *Engine) reply.Reply {
	users := e.authz.Users()
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = "user " + u.Name
	}
	return reply.StringArray(out)
}
