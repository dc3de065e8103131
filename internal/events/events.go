// Package events is the process-wide publish/subscribe point of grrctl.
//
// Components publish through a narrow capability (download only needs
// Notify) and never reach for a global; the composition root owns the Bus.
package events

import (
	"sync"

	"github.com/cskr/pubsub"
)

// TopicUnauthorized carries Unauthorized messages.
const TopicUnauthorized = "unauthorized"

const defaultCapacity = 16

// Unauthorized reports that the server refused access to a resource.
type Unauthorized struct {
	Subject string
	Reason  string
}

// Bus fans messages out to topic subscribers.
type Bus struct {
	ps       *pubsub.PubSub
	shutdown sync.Once
}

// NewBus returns a Bus whose subscriber channels buffer capacity messages.
// Publishing blocks once a subscriber's buffer is full.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Bus{ps: pubsub.New(capacity)}
}

// Publish sends msg to every subscriber of topic.
func (b *Bus) Publish(topic string, msg any) {
	b.ps.Pub(msg, topic)
}

// Notify publishes an Unauthorized message.
func (b *Bus) Notify(subject, reason string) {
	b.Publish(TopicUnauthorized, Unauthorized{Subject: subject, Reason: reason})
}

// Subscribe returns a channel receiving every message published on topics.
func (b *Bus) Subscribe(topics ...string) chan any {
	return b.ps.Sub(topics...)
}

// Unsubscribe detaches ch from topics, or from every topic when none are
// given. The channel is closed once it has no topics left.
func (b *Bus) Unsubscribe(ch chan any, topics ...string) {
	b.ps.Unsub(ch, topics...)
}

// OnUnauthorized calls fn for every Unauthorized message until the returned
// stop function is called or the bus is closed. fn runs on its own
// goroutine, one message at a time.
func (b *Bus) OnUnauthorized(fn func(Unauthorized)) (stop func()) {
	ch := b.Subscribe(TopicUnauthorized)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range ch {
			if u, ok := msg.(Unauthorized); ok {
				fn(u)
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			go b.Unsubscribe(ch, TopicUnauthorized)
			<-done
		})
	}
}

// Close shuts the bus down and closes every subscriber channel.
func (b *Bus) Close() {
	b.shutdown.Do(b.ps.Shutdown)
}
