package eventgraph

import (
	"sync"
	"sync/atomic"
)

// Bus is an in-process fan-out of task events. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Bus struct {
	mu      sync.RWMutex
	subs    map[chan *Event]struct{}
	dropped atomic.Uint64
}

// NewBus creates a Bus with no subscribers.
func NewBus() *Bus {
	return &Bus{subs: make(map[chan *Event]struct{})}
}

// Publish delivers e to every subscriber that has room for it.
func (b *Bus) Publish(e *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// subscriber is behind
			b.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Subscribe returns a channel with the given buffer that receives new events.
func (b *Bus) Subscribe(buffer int) chan *Event {
	ch := make(chan *Event, buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(ch chan *Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}
