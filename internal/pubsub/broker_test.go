package pubsub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeReplaysHistoryThenLive(t *testing.T) {
	b := NewBroker()
	topic := SyncTopic("u1")
	b.Publish(topic, []byte("first"))
	b.Publish(topic, []byte("second"))

	ch, unsubscribe := b.Subscribe(topic)
	defer unsubscribe()
	b.Publish(topic, []byte("third"))

	assert.Equal(t, "first", string(<-ch))
	assert.Equal(t, "second", string(<-ch))
	assert.Equal(t, "third", string(<-ch))
}

func TestCloseTopicEndsSubscriptions(t *testing.T) {
	b := NewBroker()
	topic := SyncTopic("u1")
	ch, unsubscribe := b.Subscribe(topic)

	b.PublishEvent(topic, SyncEvent{Type: "done", OK: true, Submissions: 2})
	b.CloseTopic(topic)

	msg, ok := <-ch
	require.True(t, ok)
	var ev SyncEvent
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, SyncEvent{Type: "done", OK: true, Submissions: 2}, ev)

	_, ok = <-ch
	assert.False(t, ok)

	// Unsubscribing after the topic closed is harmless.
	assert.NotPanics(t, unsubscribe)

	// A late subscriber still learns how the run ended.
	late, unsubscribeLate := b.Subscribe(topic)
	defer unsubscribeLate()
	msg, ok = <-late
	require.True(t, ok)
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, "done", ev.Type)
	_, ok = <-late
	assert.False(t, ok)
}

func TestPublishAfterCloseStartsFreshHistory(t *testing.T) {
	b := NewBroker()
	topic := SyncTopic("u1")
	b.Publish(topic, []byte("old"))
	b.CloseTopic(topic)

	b.Publish(topic, []byte("new"))
	ch, unsubscribe := b.Subscribe(topic)
	defer unsubscribe()
	b.Publish(topic, []byte("live"))

	assert.Equal(t, "new", string(<-ch))
	assert.Equal(t, "live", string(<-ch))
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroker()
	ch, unsubscribe := b.Subscribe("t")
	unsubscribe()
	unsubscribe()
	b.Publish("t", []byte("x"))
	_, ok := <-ch
	assert.False(t, ok)
}
