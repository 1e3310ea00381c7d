// README: In-process booking feed for single-instance deployments without Redis.
package feed

import (
	"context"
	"sync"

	"campusride/internal/modules/booking"
)

// Hub fans messages out to local subscribers. A subscriber whose buffer is
// full misses the message rather than blocking the transition that sent it.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan Message]struct{}
	buffer  int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{clients: map[chan Message]struct{}{}, buffer: buffer}
}

// Publish satisfies booking.Notifier.
func (h *Hub) Publish(_ context.Context, e booking.Event, b *booking.Booking) error {
	h.Broadcast(NewMessage(e, b))
	return nil
}

func (h *Hub) Broadcast(m Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- m:
		default:
		}
	}
}

// Subscribe registers a client until ctx is done, then closes its channel.
func (h *Hub) Subscribe(ctx context.Context) (<-chan Message, error) {
	ch := make(chan Message, h.buffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.clients, ch)
		close(ch)
		h.mu.Unlock()
	}()
	return ch, nil
}

// Clients returns the number of active subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
