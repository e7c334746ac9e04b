package host

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/omochice/art-chat/internal/chat"
)

// Envelope is an event as delivered to bridge subscribers.
type Envelope struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	Payload string `json:"payload"`
}

// Broker copies relay events to any number of subscribers. A subscriber
// whose buffer is full misses the event; the relay never waits on it.
type Broker struct {
	mu     sync.RWMutex
	subs   map[chan Envelope]struct{}
	buffer int
}

// NewBroker creates a Broker whose subscribers buffer up to buffer events.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 64
	}
	return &Broker{
		subs:   make(map[chan Envelope]struct{}),
		buffer: buffer,
	}
}

// Subscribe returns the event channel and a function that closes it.
func (b *Broker) Subscribe() (<-chan Envelope, func()) {
	ch := make(chan Envelope, b.buffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// SubscriberCount returns the number of open subscriptions.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Emit implements chat.Emitter.
func (b *Broker) Emit(ev chat.Event) {
	env := Envelope{ID: uuid.NewString(), Event: ev.Name, Payload: ev.Payload}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs {
		select {
		case ch <- env:
		default:
			log.Warn().Str("event", ev.Name).Msg("Subscriber channel full, skipping")
		}
	}
}
