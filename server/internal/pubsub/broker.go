// Package pubsub fans in-process events out to subscribers.
package pubsub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned when subscribing to a closed broker.
var ErrClosed = errors.New("broker closed")

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 64

// Broker delivers published values to every matching subscriber.
//
// Publish never blocks: a subscriber whose queue is full misses the value
// and the drop is counted.
type Broker[T any] struct {
	mu      sync.RWMutex
	subs    map[uint64]*subscriber[T]
	next    uint64
	closed  bool
	dropped atomic.Uint64
}

type subscriber[T any] struct {
	ch     chan T
	filter func(T) bool
	once   sync.Once
}

func (s *subscriber[T]) close() {
	s.once.Do(func() { close(s.ch) })
}

// NewBroker creates an empty broker.
func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{subs: make(map[uint64]*subscriber[T])}
}

// Subscribe registers a subscriber receiving the values filter accepts (all
// values when filter is nil). The channel is closed when ctx is done, when
// cancel is called, or when the broker closes.
func (b *Broker[T]) Subscribe(ctx context.Context, filter func(T) bool) (<-chan T, func(), error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, nil, ErrClosed
	}
	id := b.next
	b.next++
	sub := &subscriber[T]{ch: make(chan T, DefaultBuffer), filter: filter}
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if existing, ok := b.subs[id]; ok && existing == sub {
				delete(b.subs, id)
			}
			b.mu.Unlock()
			sub.close()
		})
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return sub.ch, cancel, nil
}

// Publish delivers v to matching subscribers and returns how many received it.
func (b *Broker[T]) Publish(v T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0
	}

	delivered := 0
	for _, sub := range b.subs {
		if sub.filter != nil && !sub.filter(v) {
			continue
		}
		select {
		case sub.ch <- v:
			delivered++
		default:
			b.dropped.Add(1)
		}
	}
	return delivered
}

// Subscribers returns the number of live subscribers.
func (b *Broker[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a queue was full.
func (b *Broker[T]) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes every subscriber channel and rejects new subscribers.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		sub.close()
	}
}
