package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSub struct {
	received []Message
	accept   bool
}

func (f *fakeSub) Deliver(msg Message) bool {
	if !f.accept {
		return false
	}
	f.received = append(f.received, msg)
	return true
}

func TestSubscribePublishDelivers(t *testing.T) {
	r := New()
	sub := &fakeSub{accept: true}
	r.Subscribe("c1", sub, "news")

	n := r.Publish("news", "hello")
	assert.Equal(t, 1, n)
	require.Len(t, sub.received, 1)
	assert.Equal(t, "hello", sub.received[0].Payload)
	assert.Equal(t, "message", sub.received[0].Kind)
}

func TestPublishToUnsubscribedChannelDeliversNothing(t *testing.T) {
	r := New()
	n := r.Publish("nobody-listening", "x")
	assert.Equal(t, 0, n)
}

func TestPatternSubscribeMatchesGlob(t *testing.T) {
	r := New()
	sub := &fakeSub{accept: true}
	r.PSubscribe("c1", sub, "news.*")

	n := r.Publish("news.sports", "goal")
	assert.Equal(t, 1, n)
	require.Len(t, sub.received, 1)
	assert.Equal(t, "pmessage", sub.received[0].Kind)
	assert.Equal(t, "news.*", sub.received[0].Pattern)
}

func TestFailedDeliveryCountsAsDropNotDelivered(t *testing.T) {
	r := New()
	sub := &fakeSub{accept: false}
	r.Subscribe("c1", sub, "ch")

	n := r.Publish("ch", "x")
	assert.Equal(t, 0, n)
	_, dropped := r.Stats()
	assert.Equal(t, int64(1), dropped)
}

func TestUnsubscribeRemovesChannel(t *testing.T) {
	r := New()
	sub := &fakeSub{accept: true}
	r.Subscribe("c1", sub, "ch")
	r.Unsubscribe("c1", "ch")

	n := r.Publish("ch", "x")
	assert.Equal(t, 0, n)
}

func TestUnsubscribeWithNoArgsLeavesAllChannels(t *testing.T) {
	r := New()
	sub := &fakeSub{accept: true}
	r.Subscribe("c1", sub, "a", "b")
	r.Unsubscribe("c1")
	assert.Equal(t, 0, r.SubscriptionCount("c1"))
}

func TestRemoveClientDetachesChannelsAndPatterns(t *testing.T) {
	r := New()
	sub := &fakeSub{accept: true}
	r.Subscribe("c1", sub, "ch")
	r.PSubscribe("c1", sub, "p.*")
	assert.Equal(t, 2, r.SubscriptionCount("c1"))

	r.RemoveClient("c1")
	assert.Equal(t, 0, r.SubscriptionCount("c1"))
	assert.Equal(t, 0, r.NumPat())
}

func TestNumSubAndChannels(t *testing.T) {
	r := New()
	sub1, sub2 := &fakeSub{accept: true}, &fakeSub{accept: true}
	r.Subscribe("c1", sub1, "ch")
	r.Subscribe("c2", sub2, "ch")

	counts := r.NumSub("ch", "other")
	assert.Equal(t, 2, counts["ch"])
	assert.Equal(t, 0, counts["other"])

	assert.ElementsMatch(t, []string{"ch"}, r.Channels("*"))
}

func TestMultipleSubscribersAllReceivePublish(t *testing.T) {
	r := New()
	a, b := &fakeSub{accept: true}, &fakeSub{accept: true}
	r.Subscribe("c1", a, "ch")
	r.Subscribe("c2", b, "ch")

	n := r.Publish("ch", "hi")
	assert.Equal(t, 2, n)
	assert.Len(t, a.received, 1)
	assert.Len(t, b.received, 1)
}
