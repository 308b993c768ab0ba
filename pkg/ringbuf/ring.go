// Package ringbuf implements a lock-free single-producer/single-consumer ring
// buffer. The producer never blocks: when the ring is full the pushed value is
// dropped and counted.
package ringbuf

import (
	"sync/atomic"
)

// DefaultCapacity is the slot count used for plugin notifications.
const DefaultCapacity = 512

type ring[T any] struct {
	data []T
	mask uint64
	size uint64

	// read and write positions grow monotonically; slot index is pos & mask
	readPos  atomic.Uint64
	_        [56]byte
	writePos atomic.Uint64
	_        [56]byte

	dropped atomic.Uint64
}

// Producer is the write half. Only one goroutine may push at a time.
type Producer[T any] struct {
	r *ring[T]
}

// Consumer is the read half. Only one goroutine may pop at a time.
type Consumer[T any] struct {
	r *ring[T]
}

// New allocates a ring holding at least capacity values and returns its two
// halves. Capacity is rounded up to a power of two.
func New[T any](capacity int) (*Producer[T], *Consumer[T]) {
	if capacity < 1 {
		capacity = 1
	}
	size := nextPowerOf2(uint64(capacity))
	r := &ring[T]{
		data: make([]T, size),
		mask: size - 1,
		size: size,
	}
	return &Producer[T]{r: r}, &Consumer[T]{r: r}
}

// TryPush appends value. It returns false, and counts a drop, when the ring is
// full. It never blocks or allocates.
func (p *Producer[T]) TryPush(value T) bool {
	r := p.r
	writePos := r.writePos.Load()
	readPos := r.readPos.Load()

	if writePos-readPos >= r.size {
		r.dropped.Add(1)
		return false
	}

	r.data[writePos&r.mask] = value
	r.writePos.Store(writePos + 1)
	return true
}

// Cap returns the number of slots.
func (p *Producer[T]) Cap() int {
	return int(p.r.size)
}

// Dropped returns the number of values lost to overflow since the consumer
// last called TakeDropped.
func (p *Producer[T]) Dropped() uint64 {
	return p.r.dropped.Load()
}

// TryPop removes the oldest value.
func (c *Consumer[T]) TryPop() (T, bool) {
	var zero T
	r := c.r
	readPos := r.readPos.Load()
	writePos := r.writePos.Load()

	if readPos == writePos {
		return zero, false
	}

	idx := readPos & r.mask
	value := r.data[idx]
	r.data[idx] = zero
	r.readPos.Store(readPos + 1)
	return value, true
}

// Drain pops every value currently visible and passes each to fn in order.
// Values pushed while draining may or may not be included.
func (c *Consumer[T]) Drain(fn func(T)) int {
	n := 0
	for {
		value, ok := c.TryPop()
		if !ok {
			return n
		}
		fn(value)
		n++
	}
}

// Len returns the number of values waiting.
func (c *Consumer[T]) Len() int {
	return int(c.r.writePos.Load() - c.r.readPos.Load())
}

// Cap returns the number of slots.
func (c *Consumer[T]) Cap() int {
	return int(c.r.size)
}

// TakeDropped returns the overflow count and resets it.
func (c *Consumer[T]) TakeDropped() uint64 {
	return c.r.dropped.Swap(0)
}

func nextPowerOf2(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
