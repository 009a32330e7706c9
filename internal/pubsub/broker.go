package pubsub

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Broker a simple in-memory pub/sub system.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string][]chan []byte // topic -> list of subscriber channels
	cache       map[string][][]byte      // topic -> list of cached messages
	closed      map[string]bool          // topics whose last run has finished
}

// SyncEvent reports the progress of a score sync to live listeners.
type SyncEvent struct {
	Type        string `json:"type"` // "platform", "done"
	Platform    string `json:"platform,omitempty"`
	OK          bool   `json:"ok"`
	Submissions int    `json:"submissions"`
	Error       string `json:"error,omitempty"`
}

var (
	once   sync.Once
	broker *Broker
)

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[string][]chan []byte),
		cache:       make(map[string][][]byte),
		closed:      make(map[string]bool),
	}
}

// GetBroker returns the process-wide Broker.
func GetBroker() *Broker {
	once.Do(func() {
		broker = NewBroker()
	})
	return broker
}

func SyncTopic(userID string) string {
	return "sync:" + userID
}

// Subscribe subscribes to a topic. It first sends all cached messages to the new
// subscriber, then adds the subscriber to receive live messages. On a closed
// topic the subscriber gets the finished run's history and a closed channel.
func (b *Broker) Subscribe(topic string) (<-chan []byte, func()) {
	b.mu.Lock()

	// The history is replayed into the buffer under the lock, so the
	// subscriber sees a consistent snapshot followed by live messages.
	history := b.cache[topic]
	ch := make(chan []byte, len(history)+128)
	for _, msg := range history {
		ch <- msg
	}

	if b.closed[topic] {
		close(ch)
		b.mu.Unlock()
		zap.S().Debugf("subscription to closed topic %s, sent %d cached messages", topic, len(history))
		return ch, func() {}
	}

	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()

	var unsubOnce sync.Once
	unsubscribe := func() {
		unsubOnce.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			subscribers := b.subscribers[topic]
			for i, sub := range subscribers {
				if sub == ch {
					b.subscribers[topic] = append(subscribers[:i], subscribers[i+1:]...)
					close(ch)
					break
				}
			}
			zap.S().Debugf("unsubscribed from topic %s", topic)
		})
	}

	zap.S().Debugf("new subscription to topic %s, sent %d cached messages", topic, len(history))
	return ch, unsubscribe
}

// Publish publishes a message to all subscribers of a topic and caches it.
// Publishing to a closed topic reopens it with a fresh history.
func (b *Broker) Publish(topic string, msg []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed[topic] {
		delete(b.closed, topic)
		delete(b.cache, topic)
	}
	b.cache[topic] = append(b.cache[topic], msg)

	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- msg:
		default:
			// Slow subscribers lose messages rather than block the publisher.
		}
	}
}

func (b *Broker) PublishEvent(topic string, ev SyncEvent) {
	b.Publish(topic, FormatEvent(ev))
}

// CloseTopic closes all subscriber channels for a given topic. The cache is
// kept until the next Publish so late subscribers still see how the run ended.
func (b *Broker) CloseTopic(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers[topic] {
		close(ch)
	}
	delete(b.subscribers, topic)
	b.closed[topic] = true
	zap.S().Debugf("closed pubsub topic %s", topic)
}

func FormatEvent(ev SyncEvent) []byte {
	bytes, err := json.Marshal(ev)
	if err != nil {
		return []byte(`{"type": "error", "error": "json format error"}`)
	}
	return bytes
}
