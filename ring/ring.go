// Package ring implements the single-producer/single-consumer queue shared
// by the receive side of the driver: the fast interrupt is the only
// producer, the foreground API is the only consumer. Overrun policy is
// overwrite-in-flight-never-committed — a slot the producer is still
// filling can be abandoned, but a slot the producer has already committed
// and the consumer has not yet read is never clobbered.
package ring

import "sync/atomic"

// Ring is a fixed-capacity SPSC ring of T. head and tail are monotonically
// increasing counters (not wrapped indices); the wrap happens only when
// indexing into buf. This is the same write-then-publish discipline as a
// byte ring buffer: the producer fills a slot in place, then advances head
// so the consumer can see it, mirroring how a byte ring writes the value
// before publishing the new head position.
type Ring[T any] struct {
	buf     []T
	head    atomic.Uint32 // next slot index to publish
	tail    atomic.Uint32 // next slot index to consume
	dropped atomic.Uint32
}

// New returns a ring with room for capacity committed, unread frames plus
// one more slot for the frame the producer is currently filling.
func New[T any](capacity int) *Ring[T] {
	if capacity < 2 {
		capacity = 2
	}
	return &Ring[T]{buf: make([]T, capacity+1)}
}

// Capacity returns the number of committed frames the ring can hold.
func (r *Ring[T]) Capacity() int {
	return len(r.buf) - 1
}

// Used returns the number of committed, unread slots.
func (r *Ring[T]) Used() int {
	return int(r.head.Load() - r.tail.Load())
}

// Dropped returns the number of frames discarded because the ring was full
// when the producer tried to commit. It never decreases; callers that want
// a rate read it twice and subtract.
func (r *Ring[T]) Dropped() uint32 {
	return r.dropped.Load()
}

// Reserve returns the in-flight slot the producer should fill before
// calling Commit. The returned pointer is valid until the next Reserve.
func (r *Ring[T]) Reserve() *T {
	h := r.head.Load()
	return &r.buf[h%uint32(len(r.buf))]
}

// Commit publishes the slot most recently returned by Reserve, making it
// visible to the consumer. If the ring is already full, the in-flight slot
// is dropped instead — head does not advance, the committed slots ahead of
// it are untouched, and Dropped increments. Returns false when dropped.
func (r *Ring[T]) Commit() bool {
	if r.Used() >= len(r.buf)-1 {
		r.dropped.Add(1)
		return false
	}
	r.head.Add(1)
	return true
}

// Pop returns the oldest committed slot and advances tail. Returns the
// zero value and false if nothing is committed.
func (r *Ring[T]) Pop() (T, bool) {
	t := r.tail.Load()
	if r.head.Load() == t {
		var zero T
		return zero, false
	}
	v := r.buf[t%uint32(len(r.buf))]
	r.tail.Add(1)
	return v, true
}

// Drain discards every committed, unread slot without disturbing the
// in-flight slot the producer may currently be filling. Used by the
// direction controller when stopping receive so stale frames cannot be
// handed to a consumer after a direction change.
func (r *Ring[T]) Drain() {
	r.tail.Store(r.head.Load())
}

// Peek returns a pointer to the oldest committed slot without consuming
// it, for callers that need to compare against the previous frame without
// losing their place in the queue. Returns nil if nothing is committed.
func (r *Ring[T]) Peek() *T {
	t := r.tail.Load()
	if r.head.Load() == t {
		return nil
	}
	return &r.buf[t%uint32(len(r.buf))]
}
