package store

import "sync"

// hub fans a stream of values out to subscribers. Each subscriber owns a
// one-slot channel: publish replaces an unconsumed value, so a slow reader
// observes the newest state rather than a backlog. Subscription snapshots
// and publishes run under one lock, which keeps the initial emission and
// later updates ordered.
type hub[T any] struct {
	mu   sync.Mutex
	subs map[int64]chan T
	next int64
}

func newHub[T any]() *hub[T] {
	return &hub[T]{subs: make(map[int64]chan T)}
}

// subscribe registers a new subscriber. initial is evaluated under the hub
// lock and delivered as the first emission. The returned func detaches the
// subscriber and closes its channel; it is safe to call more than once.
func (h *hub[T]) subscribe(initial func() T) (<-chan T, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan T, 1)
	id := h.next
	h.next++
	h.subs[id] = ch
	ch <- initial()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// publish delivers v to every subscriber, replacing any unconsumed value.
func (h *hub[T]) publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}
