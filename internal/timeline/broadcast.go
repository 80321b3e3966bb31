package timeline

import "sync"

// broadcaster fans a value out to subscribers and replays the latest value to
// every new subscriber. Each subscriber channel holds one pending value; a
// slow subscriber only ever misses intermediate states, never the newest one.
type broadcaster[T any] struct {
	mu     sync.Mutex
	latest T
	seeded bool
	closed bool
	subs   map[chan T]struct{}
}

func newBroadcaster[T any]() *broadcaster[T] {
	return &broadcaster[T]{subs: make(map[chan T]struct{})}
}

func (b *broadcaster[T]) publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.latest = v
	b.seeded = true
	for ch := range b.subs {
		select {
		case <-ch: // drop the stale pending value
		default:
		}
		ch <- v
	}
}

// subscribe returns a channel and a cancel function. The channel immediately
// carries the latest published value, if any.
func (b *broadcaster[T]) subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, 1)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	if b.seeded {
		ch <- b.latest
	}
	b.subs[ch] = struct{}{}

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

func (b *broadcaster[T]) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
