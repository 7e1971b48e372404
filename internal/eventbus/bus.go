// Package eventbus implements C4: the two bounded broadcast channels that
// decouple the Store from its HTTP SSE subscribers and GW request
// consumers, plus the single-bit wake primitive the persistence loop waits
// on.
//
// Grounded on the channel-based fan-out in
// core/blockchain_synchronization.go and core/fault_tolerance.go (both use
// buffered channels with a registry of subscriber channels protected by a
// mutex, dropping slow subscribers rather than blocking); generalized here
// into a typed, reusable Broadcaster.
package eventbus

import (
	"sync"

	"github.com/sirupsen/logrus"
)

const channelCapacity = 32

var log = logrus.WithField("component", "eventbus")

// Broadcaster fans a single message stream out to any number of
// subscribers. A slow subscriber whose channel is full is dropped (the
// send is skipped) rather than blocking the writer.
type Broadcaster[T any] struct {
	mu   sync.Mutex
	subs map[int]chan T
	next int
}

func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: map[int]chan T{}}
}

// Subscribe returns a channel that receives every message published after
// this call, and an unsubscribe func the caller must call when done.
func (b *Broadcaster[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan T, channelCapacity)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			close(c)
			delete(b.subs, id)
		}
	}
}

// Publish delivers msg to every current subscriber without blocking. Called
// while the Store still holds its lock, so subscribers observe events in
// exactly the commit order.
func (b *Broadcaster[T]) Publish(msg T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- msg:
		default:
			log.WithField("subscriber", id).Trace("event channel full, dropping message for slow subscriber")
		}
	}
}

// Notify is a single-bit wake primitive: repeated calls to NotifyOne before
// a Wait coalesce into one wakeup, matching Rust's tokio::sync::Notify used
// by the coalescing-wakeup pattern for "state changed, go
// recompute" signals without a bounded channel's backpressure semantics.
type Notify struct {
	ch chan struct{}
}

func NewNotify() *Notify {
	return &Notify{ch: make(chan struct{}, 1)}
}

// NotifyOne wakes one pending (or future) Wait call.
func (n *Notify) NotifyOne() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// Wait returns a channel that yields one value once NotifyOne has been
// called at least once since the last value was received from it.
func (n *Notify) Wait() <-chan struct{} { return n.ch }
