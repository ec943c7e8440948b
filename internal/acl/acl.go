// Package acl implements the ACL authorizer (spec.md C7): per-user
// command/key/channel authorization with a bounded failure log.
//
// The teacher repo has no ACL subsystem to crib from, so this package is
// built directly from spec.md §3/§4.7's contract. Glob matching reuses
// internal/pubsub's Redis-style translator (the same pattern language
// backs both ACL key rules and Pub/Sub channel rules per spec.md's
// GLOSSARY). Password hashing uses crypto/sha256 + crypto/subtle
// (stdlib): no library in this corpus offers password hashing, and
// spec.md §4.7 pins the scheme to plain SHA-256 hex (matching Redis ACL
// itself, which does not use a salted KDF here), so there is no
// ecosystem gap to fill.
package acl

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"sync"

	"redcore/internal/pubsub"

	"github.com/pkg/errors"
)

var (
	ErrAuthFailed  = errors.New("WRONGPASS invalid username-password pair or user is disabled")
	ErrNoPermCmd   = errors.New("NOPERM this user has no permissions to run this command")
	ErrNoPermKey   = errors.New("NOPERM no permissions to access a key")
	ErrNoPermChan  = errors.New("NOPERM no permissions to access a channel")
	ErrUserExists  = errors.New("user already exists")
	ErrUndeletable = errors.New("the default user cannot be removed")
)

// DefaultUserName is the user that always exists and can't be deleted
// (spec.md §4.7).
const DefaultUserName = "default"

// aclLogSize is the number of recent ACL failures retained for diagnostics.
const aclLogSize = 128

// User mirrors spec.md §3's ACL User record.
type User struct {
	Name    string
	Enabled bool

	Passwords map[string]struct{} // SHA-256 hex digests
	NoPass    bool

	AllowAllCommands bool
	AllowedCommands  map[string]struct{}
	DeniedCommands   map[string]struct{}

	AllowAllKeys bool
	KeyPatterns  []string

	AllowAllChannels bool
	ChannelPatterns  []string

	deletable bool
}

func newUser(name string) *User {
	return &User{
		Name:            name,
		Enabled:         true,
		Passwords:       make(map[string]struct{}),
		AllowedCommands: make(map[string]struct{}),
		DeniedCommands:  make(map[string]struct{}),
		deletable:       true,
	}
}

// LogEntry records a single authorization failure.
type LogEntry struct {
	Username string
	Reason   string
	Context  string // command name, key, or channel the denial concerned
}

// Authorizer owns the user table and the bounded failure log.
type Authorizer struct {
	mu    sync.RWMutex
	users map[string]*User

	logMu sync.Mutex
	log   []LogEntry // ring buffer, oldest overwritten first
	logAt int
}

// New builds an Authorizer with the always-present default user:
// nopass, allow-all, non-deletable (spec.md §4.7).
func New() *Authorizer {
	def := newUser(DefaultUserName)
	def.NoPass = true
	def.AllowAllCommands = true
	def.AllowAllKeys = true
	def.AllowAllChannels = true
	def.deletable = false

	return &Authorizer{
		users: map[string]*User{DefaultUserName: def},
		log:   make([]LogEntry, 0, aclLogSize),
	}
}

// DefaultUser returns the always-present "default" user, the identity a
// freshly accepted connection starts as before any AUTH call.
func (a *Authorizer) DefaultUser() *User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.users[DefaultUserName]
}

// Users returns every configured user, for ACL LIST.
func (a *Authorizer) Users() []*User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*User, 0, len(a.users))
	for _, u := range a.users {
		out = append(out, u)
	}
	return out
}

func hashPassword(pw string) string {
	sum := sha256.Sum256([]byte(pw))
	return hex.EncodeToString(sum[:])
}

// CreateUser adds a new enabled user with no passwords and no command,
// key or channel permissions. Returns ErrUserExists if name is already
// taken.
func (a *Authorizer) CreateUser(name string) (*User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.users[name]; exists {
		return nil, ErrUserExists
	}
	u := newUser(name)
	a.users[name] = u
	return u, nil
}

// DeleteUser removes a user other than default.
func (a *Authorizer) DeleteUser(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[name]
	if !ok {
		return nil
	}
	if !u.deletable {
		return ErrUndeletable
	}
	delete(a.users, name)
	return nil
}

// SetPassword adds a password (stored as its SHA-256 hex digest) to user.
func (a *Authorizer) SetPassword(name, password string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if u, ok := a.users[name]; ok {
		u.Passwords[hashPassword(password)] = struct{}{}
		u.NoPass = false
	}
}

// AllowCommand grants user an exact command name.
func (a *Authorizer) AllowCommand(name, command string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if u, ok := a.users[name]; ok {
		u.AllowedCommands[strings.ToUpper(command)] = struct{}{}
		delete(u.DeniedCommands, strings.ToUpper(command))
	}
}

// DenyCommand revokes user's access to an exact command name.
func (a *Authorizer) DenyCommand(name, command string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if u, ok := a.users[name]; ok {
		u.DeniedCommands[strings.ToUpper(command)] = struct{}{}
		delete(u.AllowedCommands, strings.ToUpper(command))
	}
}

// AllowKeyPattern grants user access to keys matching pattern.
func (a *Authorizer) AllowKeyPattern(name, pattern string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if u, ok := a.users[name]; ok {
		u.KeyPatterns = append(u.KeyPatterns, pattern)
	}
}

// AllowChannelPattern grants user access to channels matching pattern.
func (a *Authorizer) AllowChannelPattern(name, pattern string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if u, ok := a.users[name]; ok {
		u.ChannelPatterns = append(u.ChannelPatterns, pattern)
	}
}

// Authenticate validates username/password (constant-time digest
// compare) and returns the user if it is enabled and the credentials
// check out. nopass users authenticate with any password, including "".
func (a *Authorizer) Authenticate(username, password string) (*User, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	u, ok := a.users[username]
	if !ok || !u.Enabled {
		a.recordFailure(username, "unknown or disabled user", username)
		return nil, ErrAuthFailed
	}
	if u.NoPass {
		return u, nil
	}

	digest := hashPassword(password)
	for stored := range u.Passwords {
		if subtle.ConstantTimeCompare([]byte(stored), []byte(digest)) == 1 {
			return u, nil
		}
	}
	a.recordFailure(username, "password mismatch", username)
	return nil, ErrAuthFailed
}

// CanExecute checks command + optional key access in the order:
// enabled → not denied → allow-set → key pattern. A command in the
// deny-set is refused even for users with AllowAllCommands.
func (a *Authorizer) CanExecute(u *User, command string, key string) error {
	command = strings.ToUpper(command)

	if !u.Enabled {
		a.recordFailure(u.Name, "user disabled", command)
		return ErrNoPermCmd
	}
	if _, denied := u.DeniedCommands[command]; denied {
		a.recordFailure(u.Name, "command denied", command)
		return ErrNoPermCmd
	}
	if !u.AllowAllCommands {
		if _, allowed := u.AllowedCommands[command]; !allowed {
			a.recordFailure(u.Name, "command not allowed", command)
			return ErrNoPermCmd
		}
	}
	if key == "" {
		return nil
	}
	if u.AllowAllKeys {
		return nil
	}
	for _, p := range u.KeyPatterns {
		if pubsub.Match(p, key) {
			return nil
		}
	}
	a.recordFailure(u.Name, "key pattern denied", key)
	return ErrNoPermKey
}

// CanAccessChannel checks whether user may subscribe to or publish on channel.
func (a *Authorizer) CanAccessChannel(u *User, channel string) error {
	if u.AllowAllChannels {
		return nil
	}
	for _, p := range u.ChannelPatterns {
		if pubsub.Match(p, channel) {
			return nil
		}
	}
	a.recordFailure(u.Name, "channel pattern denied", channel)
	return ErrNoPermChan
}

// recordFailure appends to the bounded ring-buffer ACL log under its own
// lock, independent of the user-table lock so it can be called from
// read paths (Authenticate, CanExecute) without upgrading a read lock.
func (a *Authorizer) recordFailure(username, reason, context string) {
	a.logMu.Lock()
	defer a.logMu.Unlock()
	entry := LogEntry{Username: username, Reason: reason, Context: context}
	if len(a.log) < aclLogSize {
		a.log = append(a.log, entry)
		return
	}
	a.log[a.logAt] = entry
	a.logAt = (a.logAt + 1) % aclLogSize
}

// RecentFailures returns a copy of the ACL failure log, oldest first.
func (a *Authorizer) RecentFailures() []LogEntry {
	a.logMu.Lock()
	defer a.logMu.Unlock()
	out := make([]LogEntry, 0, len(a.log))
	// Once the buffer is full, logAt marks the oldest entry.
	out = append(out, a.log[a.logAt:]...)
	out = append(out, a.log[:a.logAt]...)
	return out
}
