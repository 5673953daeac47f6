// Package observable provides a latest-value holder that subscribers can watch.
package observable

import "sync"

// Value holds the latest T and fans it out to subscribers.
//
// Each subscriber gets a channel with room for one value. A slow subscriber
// never blocks Set: an unread value is replaced by the newer one, so readers
// always converge on the latest state.
type Value[T any] struct {
	mu     sync.Mutex
	cur    T
	nextID int
	subs   map[int]chan T
	closed bool
}

// New returns a Value holding initial.
func New[T any](initial T) *Value[T] {
	return &Value[T]{cur: initial, subs: make(map[int]chan T)}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cur
}

// Set stores x and delivers it to every subscriber.
func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cur = x
	for _, ch := range v.subs {
		deliver(ch, x)
	}
}

// Subscribe returns a channel that immediately receives the current value
// and then every later one. cancel closes the channel; it is safe to call
// more than once.
func (v *Value[T]) Subscribe() (<-chan T, func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ch := make(chan T, 1)
	if v.closed {
		close(ch)
		return ch, func() {}
	}
	id := v.nextID
	v.nextID++
	v.subs[id] = ch
	ch <- v.cur

	return ch, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if c, ok := v.subs[id]; ok {
			delete(v.subs, id)
			close(c)
		}
	}
}

// Close closes every subscriber channel. Later Set calls only update the
// stored value.
func (v *Value[T]) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	for id, ch := range v.subs {
		delete(v.subs, id)
		close(ch)
	}
}

// deliver puts x in ch, dropping a stale unread value if needed.
// Callers hold v.mu, so there is no competing sender.
func deliver[T any](ch chan T, x T) {
	select {
	case ch <- x:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- x
}
