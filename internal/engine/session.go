package engine

import (
	"strings"
	"sync"

	"redcore/internal/acl"
	"redcore/internal/protocol"
	"redcore/internal/pubsub"
	"redcore/internal/reply"
)

// Session is the per-connection state the engine tracks: authentication,
// negotiated protocol version, transaction/watch state, and the outbound
// push-message mailbox pub/sub delivery writes into. Grounded on the
// teacher's handler.Client + handler.Transaction pairing, merged into one
// record since both are keyed by the same client identity here.
type Session struct {
	id uint64

	mu      sync.Mutex
	proto   protocol.Version
	user    *acl.User
	subMode bool

	txActive bool
	txQueue  [][][]byte
	watched  map[string]uint64

	channels map[string]struct{}
	patterns map[string]struct{}

	out chan []byte
}

func newSession(id uint64, defaultUser *acl.User) *Session {
	return &Session{
		id:       id,
		proto:    protocol.RESP2,
		user:     defaultUser,
		watched:  make(map[string]uint64),
		channels: make(map[string]struct{}),
		patterns: make(map[string]struct{}),
		out:      make(chan []byte, 256),
	}
}

// ID returns the client identity used to route dispatch.Command and pub/sub.
func (s *Session) ID() uint64 { return s.id }

// Outbox is the channel pub/sub pushes (and any other out-of-band
// writes) are delivered on; the connection layer drains it alongside
// ordinary command replies.
func (s *Session) Outbox() <-chan []byte { return s.out }

func (s *Session) ProtoVersion() protocol.Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proto
}

func (s *Session) setProtoVersion(v protocol.Version) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proto = v
}

func (s *Session) User() *acl.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) setUser(u *acl.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
}

func (s *Session) InSubscribeMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subMode
}

func (s *Session) subscriptionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.channels) + len(s.patterns)
}

func (s *Session) addChannels(chs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range chs {
		s.channels[ch] = struct{}{}
	}
	s.subMode = len(s.channels) > 0 || len(s.patterns) > 0
}

func (s *Session) removeChannels(chs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range chs {
		delete(s.channels, ch)
	}
	s.subMode = len(s.channels) > 0 || len(s.patterns) > 0
}

func (s *Session) addPatterns(pats ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pats {
		s.patterns[p] = struct{}{}
	}
	s.subMode = len(s.channels) > 0 || len(s.patterns) > 0
}

func (s *Session) removePatterns(pats ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pats {
		delete(s.patterns, p)
	}
	s.subMode = len(s.channels) > 0 || len(s.patterns) > 0
}

// Deliver implements pubsub.Publisher: it encodes msg per this session's
// negotiated protocol version and enqueues it on Outbox, never blocking
// the publisher (spec.md §4.6: one slow subscriber must not stall others).
func (s *Session) Deliver(msg pubsub.Message) bool {
	r := pushReplyFor(msg)
	b := protocol.Encode(r, s.ProtoVersion())
	select {
	case s.out <- b:
		return true
	default:
		return false
	}
}

func pushReplyFor(msg pubsub.Message) reply.Reply {
	switch msg.Kind {
	case "pmessage":
		return reply.Push(reply.Bulk("pmessage"), reply.Bulk(msg.Pattern), reply.Bulk(msg.Channel), reply.Bulk(msg.Payload))
	case "message":
		return reply.Push(reply.Bulk("message"), reply.Bulk(msg.Channel), reply.Bulk(msg.Payload))
	default:
		// subscribe/unsubscribe/psubscribe/punsubscribe confirmations
		return reply.Push(reply.Bulk(msg.Kind), reply.Bulk(msg.Channel), reply.Integer(int64(msg.Count)))
	}
}

// queuing reports whether commands should be queued rather than run
// (MULTI issued, EXEC/DISCARD not yet reached).
func (s *Session) queuing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txActive
}

func (s *Session) queue(argv [][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txQueue = append(s.txQueue, argv)
}

func (s *Session) startMulti() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txActive {
		return false
	}
	s.txActive = true
	s.txQueue = nil
	return true
}

// endMulti clears transaction-queue state (but not watches, which are
// released separately by the caller per command semantics: EXEC/DISCARD
// always release watches, UNWATCH releases them without touching the queue).
func (s *Session) endMulti() [][][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.txQueue
	s.txActive = false
	s.txQueue = nil
	return q
}

func (s *Session) watch(key string, version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watched[key] = version
}

func (s *Session) unwatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watched = make(map[string]uint64)
}

func (s *Session) watchedSnapshot() map[string]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]uint64, len(s.watched))
	for k, v := range s.watched {
		out[k] = v
	}
	return out
}

func commandName(arg []byte) string {
	return strings.ToUpper(string(arg))
}

func isTxControl(name string) bool {
	switch name {
	case "MULTI", "EXEC", "DISCARD", "WATCH", "UNWATCH":
		return true
	default:
		return false
	}
}

func allowedInSubscribeMode(name string) bool {
	switch name {
	case "SUBSCRIBE", "UNSUBSCRIBE", "PSUBSCRIBE", "PUNSUBSCRIBE", "PING", "QUIT", "RESET":
		return true
	default:
		return false
	}
}

// commandHasKeyArg reports whether argv[1] names a key for ACL purposes;
// keyless commands (connection/admin/tx-control/pubsub-control) are
// listed explicitly since the default is "yes, argv[1] is a key".
func commandHasKeyArg(name string) bool {
	switch name {
	case "PING", "ECHO", "HELLO", "AUTH", "SELECT", "QUIT", "RESET",
		"MULTI", "EXEC", "DISCARD", "WATCH", "UNWATCH",
		"SUBSCRIBE", "UNSUBSCRIBE", "PSUBSCRIBE", "PUNSUBSCRIBE", "PUBLISH", "PUBSUB",
		"DBSIZE", "RANDOMKEY", "FLUSHALL", "KEYS", "ACL", "COMMAND":
		return false
	default:
		return true
	}
}
