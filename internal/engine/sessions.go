package engine

import (
	"strconv"

	"redcore/internal/pubsub"
)

// sessionClientID converts a session's numeric client id into the string
// identity internal/pubsub keys its subscription tables by.
func sessionClientID(id uint64) pubsub.ClientID {
	return pubsub.ClientID(strconv.FormatUint(id, 10))
}

// NewSession allocates a fresh client identity and its Session,
// authenticated as the default ACL user (nopass, allow-all) until AUTH
// changes that — matching real Redis's behavior when no password is
// configured.
func (e *Engine) NewSession() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextClientID++
	id := e.nextClientID
	sess := newSession(id, e.authz.DefaultUser())
	e.sessions[id] = sess
	return sess
}

// Session looks up a previously created session by client id.
func (e *Engine) Session(id uint64) *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions[id]
}

// CloseSession detaches a disconnecting client's pub/sub subscriptions
// and forgets its session (spec.md §4.6's O(its own subscriptions) cancel
// path).
func (e *Engine) CloseSession(id uint64) {
	e.mu.Lock()
	delete(e.sessions, id)
	e.mu.Unlock()
	e.router.RemoveClient(sessionClientID(id))
}
