// Package feed fans submitted messages out to live inbox subscribers.
package feed

import (
	"log"
	"sync"

	"github.com/mizutanik/postbox/internal/model/message"
)

// subscriberBuffer absorbs short bursts before a slow subscriber drops
// messages. The inbox reloads the full list on reconnect, so a dropped
// frame is not lost data.
const subscriberBuffer = 8

// Hub distributes saved messages to registered subscribers. Broadcast
// never blocks on a slow subscriber.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan message.Message]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan message.Message]struct{})}
}

// Register adds a subscriber and returns its channel. After Close the
// returned channel is already closed.
func (h *Hub) Register() chan message.Message {
	ch := make(chan message.Message, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	h.subs[ch] = struct{}{}
	return ch
}

// Unregister removes a subscriber. The channel is left open; the caller
// simply stops reading from it.
func (h *Hub) Unregister(ch chan message.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, ch)
}

// Broadcast delivers msg to every subscriber that has room in its
// buffer. Subscribers that cannot keep up miss the message.
func (h *Hub) Broadcast(msg message.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
			log.Printf("[feed] dropping message %s for slow subscriber", msg.ID)
		}
	}
}

// Close shuts every subscriber channel so their readers return. Further
// broadcasts are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
		delete(h.subs, ch)
	}
}
