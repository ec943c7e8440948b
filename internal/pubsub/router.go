// Package pubsub implements the Pub/Sub router (spec.md C6): channel and
// glob-pattern subscription fan-out with synchronous delivery and a
// disconnect path that detaches a client's subscriptions in time
// proportional to its own subscription count, not the whole table's.
//
// Grounded on the teacher's internal/storage/pubsub.go (the channel/
// pattern/reverse-index map shape, the prefix-trie lookup narrowing
// publish's pattern scan, and the glob-to-regexp translation), with the
// regex cache upgraded from an unbounded map to a bounded
// github.com/hashicorp/golang-lru/v2 cache and the subscriber reference
// changed from an owned struct to a caller-supplied Publisher interface —
// spec.md §9 calls for the client to own its own weak handle and the
// router to hold only a reference it can drop without the handle itself
// needing to be destroyed first.
package pubsub

import (
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ClientID identifies a connected client across subscribe/publish calls.
type ClientID string

// Publisher is the narrow interface a connected client exposes to the
// router so the router never needs the client's full type. A Deliver
// that returns false (buffer full, connection gone) is logged and
// counted by the caller, never propagated to other subscribers
// (spec.md §4.6).
type Publisher interface {
	Deliver(msg Message) bool
}

// Message is a pub/sub event delivered to a subscriber: either a
// published payload ("message"/"pmessage") or a subscription-count
// confirmation ("subscribe"/"unsubscribe"/"psubscribe"/"punsubscribe").
type Message struct {
	Kind    string
	Channel string
	Pattern string // set only for "pmessage"
	Payload string
	Count   int // set only for subscription-confirmation kinds
}

// patternCacheSize bounds the compiled-glob cache; far larger than any
// realistic number of concurrently active PSUBSCRIBE patterns.
const patternCacheSize = 1024

type patternTrieNode struct {
	children map[byte]*patternTrieNode
	patterns []string
}

func newPatternTrieNode() *patternTrieNode {
	return &patternTrieNode{children: make(map[byte]*patternTrieNode)}
}

// patternTrie narrows publish's pattern scan to patterns whose literal
// prefix (the part before the first wildcard) actually matches the
// channel being published to.
type patternTrie struct {
	root *patternTrieNode
}

func newPatternTrie() *patternTrie {
	return &patternTrie{root: newPatternTrieNode()}
}

func literalPrefix(pattern string) string {
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '*' || pattern[i] == '?' || pattern[i] == '[' {
			return pattern[:i]
		}
	}
	return pattern
}

func (t *patternTrie) insert(pattern string) {
	node := t.root
	for i := 0; i < len(literalPrefix(pattern)); i++ {
		c := pattern[i]
		if node.children[c] == nil {
			node.children[c] = newPatternTrieNode()
		}
		node = node.children[c]
	}
	node.patterns = append(node.patterns, pattern)
}

func (t *patternTrie) remove(pattern string) {
	node := t.root
	prefix := literalPrefix(pattern)
	for i := 0; i < len(prefix); i++ {
		node = node.children[prefix[i]]
		if node == nil {
			return
		}
	}
	for i, p := range node.patterns {
		if p == pattern {
			node.patterns = append(node.patterns[:i], node.patterns[i+1:]...)
			return
		}
	}
}

func (t *patternTrie) candidates(channel string) []string {
	out := append([]string(nil), t.root.patterns...)
	node := t.root
	for i := 0; i < len(channel); i++ {
		node = node.children[channel[i]]
		if node == nil {
			break
		}
		out = append(out, node.patterns...)
	}
	return out
}

// Router is the Pub/Sub subscription table and delivery path.
type Router struct {
	mu sync.RWMutex

	channels map[string]map[ClientID]Publisher
	patterns map[string]map[ClientID]Publisher

	clientChannels map[ClientID]map[string]struct{}
	clientPatterns map[ClientID]map[string]struct{}

	trie    *patternTrie
	reCache *lru.Cache[string, *compiledPattern]

	delivered *counter
	dropped   *counter
}

// counter is a cumulative count updated with atomic adds, since Publish
// holds only the Router's read lock; Stats reads it for metrics export.
type counter struct{ n int64 }

func (c *counter) add(n int64) { atomic.AddInt64(&c.n, n) }

type compiledPattern struct {
	matches func(channel string) bool
}

// New builds an empty Router.
func New() *Router {
	cache, _ := lru.New[string, *compiledPattern](patternCacheSize)
	return &Router{
		channels:       make(map[string]map[ClientID]Publisher),
		patterns:       make(map[string]map[ClientID]Publisher),
		clientChannels: make(map[ClientID]map[string]struct{}),
		clientPatterns: make(map[ClientID]map[string]struct{}),
		trie:           newPatternTrie(),
		reCache:        cache,
		delivered:      &counter{},
		dropped:        &counter{},
	}
}

// Subscribe adds client to channels, returning the channels newly joined.
func (r *Router) Subscribe(client ClientID, pub Publisher, channels ...string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.clientChannels[client] == nil {
		r.clientChannels[client] = make(map[string]struct{})
	}
	joined := make([]string, 0, len(channels))
	for _, ch := range channels {
		if r.channels[ch] == nil {
			r.channels[ch] = make(map[ClientID]Publisher)
		}
		r.channels[ch][client] = pub
		r.clientChannels[client][ch] = struct{}{}
		joined = append(joined, ch)
	}
	return joined
}

// Unsubscribe removes client from channels (all channels if none given).
func (r *Router) Unsubscribe(client ClientID, channels ...string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(channels) == 0 {
		for ch := range r.clientChannels[client] {
			channels = append(channels, ch)
		}
	}
	left := make([]string, 0, len(channels))
	for _, ch := range channels {
		if subs, ok := r.channels[ch]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(r.channels, ch)
			}
		}
		delete(r.clientChannels[client], ch)
		left = append(left, ch)
	}
	if len(r.clientChannels[client]) == 0 {
		delete(r.clientChannels, client)
	}
	return left
}

// PSubscribe adds client to patterns, returning the patterns newly joined.
func (r *Router) PSubscribe(client ClientID, pub Publisher, patterns ...string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.clientPatterns[client] == nil {
		r.clientPatterns[client] = make(map[string]struct{})
	}
	joined := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if r.patterns[p] == nil {
			r.patterns[p] = make(map[ClientID]Publisher)
			r.trie.insert(p)
		}
		r.patterns[p][client] = pub
		r.clientPatterns[client][p] = struct{}{}
		joined = append(joined, p)
	}
	return joined
}

// PUnsubscribe removes client from patterns (all patterns if none given).
func (r *Router) PUnsubscribe(client ClientID, patterns ...string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(patterns) == 0 {
		for p := range r.clientPatterns[client] {
			patterns = append(patterns, p)
		}
	}
	left := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if subs, ok := r.patterns[p]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(r.patterns, p)
				r.trie.remove(p)
				r.reCache.Remove(p)
			}
		}
		delete(r.clientPatterns[client], p)
		left = append(left, p)
	}
	if len(r.clientPatterns[client]) == 0 {
		delete(r.clientPatterns, client)
	}
	return left
}

// Publish delivers payload to every channel subscriber and every
// pattern subscriber whose pattern matches channel, synchronously,
// returning the count actually delivered. Channel subscribers are served
// before pattern subscribers; the subscribers of one channel or pattern
// are visited in Go map order, so the order in which they receive the
// message is not defined. A failed delivery to one subscriber never
// blocks or skips the rest.
func (r *Router) Publish(channel, payload string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	if subs, ok := r.channels[channel]; ok {
		msg := Message{Kind: "message", Channel: channel, Payload: payload}
		for _, pub := range subs {
			if pub.Deliver(msg) {
				count++
			} else {
				r.dropped.add(1)
			}
		}
	}

	for _, p := range r.trie.candidates(channel) {
		subs, ok := r.patterns[p]
		if !ok {
			continue
		}
		if !r.patternMatches(p, channel) {
			continue
		}
		msg := Message{Kind: "pmessage", Pattern: p, Channel: channel, Payload: payload}
		for _, pub := range subs {
			if pub.Deliver(msg) {
				count++
			} else {
				r.dropped.add(1)
			}
		}
	}

	r.delivered.add(int64(count))
	return count
}

func (r *Router) patternMatches(pattern, channel string) bool {
	cp, ok := r.reCache.Get(pattern)
	if !ok {
		re, err := globToRegexp(pattern)
		if err != nil {
			return false
		}
		cp = &compiledPattern{matches: re.MatchString}
		r.reCache.Add(pattern, cp)
	}
	return cp.matches(channel)
}

// RemoveClient atomically detaches every subscription client holds,
// exact and pattern alike, in O(subscriptions-of-client) (spec.md
// §4.6's cancellation contract).
func (r *Router) RemoveClient(client ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for ch := range r.clientChannels[client] {
		if subs, ok := r.channels[ch]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(r.channels, ch)
			}
		}
	}
	delete(r.clientChannels, client)

	for p := range r.clientPatterns[client] {
		if subs, ok := r.patterns[p]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(r.patterns, p)
				r.trie.remove(p)
				r.reCache.Remove(p)
			}
		}
	}
	delete(r.clientPatterns, client)
}

// SubscriptionCount returns client's total channel+pattern subscription
// count, the value echoed back in (un)subscribe confirmations.
func (r *Router) SubscriptionCount(client ClientID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clientChannels[client]) + len(r.clientPatterns[client])
}

// NumSub returns subscriber counts per requested channel.
func (r *Router) NumSub(channels ...string) map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int, len(channels))
	for _, ch := range channels {
		out[ch] = len(r.channels[ch])
	}
	return out
}

// NumPat returns the number of distinct patterns with at least one subscriber.
func (r *Router) NumPat() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.patterns)
}

// Channels returns active channel names, filtered by glob pattern if non-empty.
func (r *Router) Channels(pattern string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.channels))
	for ch := range r.channels {
		if pattern == "" || Match(pattern, ch) {
			out = append(out, ch)
		}
	}
	return out
}

// Stats returns cumulative delivered/dropped counts for metrics export.
func (r *Router) Stats() (delivered, dropped int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return atomic.LoadInt64(&r.delivered.n), atomic.LoadInt64(&r.dropped.n)
}
