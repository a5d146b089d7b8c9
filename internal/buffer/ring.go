// SPDX-License-Identifier: MIT
//
// Package buffer provides a lock-free single-producer single-consumer
// ring buffer for handing samples from the capture callback to the
// processing goroutine. The write side never blocks: when the buffer is
// full the producer reclaims space by discarding the oldest unread
// elements, so a stalled consumer costs history rather than capture
// deadlines.
package buffer

import (
	"fmt"
	"sync/atomic"

	"github.com/FueledByRedBull/audio-spectrum-live/pkg/bitint"
)

// Ring is a drop-oldest SPSC ring buffer. Exactly one goroutine may
// call Write and exactly one may call Read; the remaining methods are
// safe from any goroutine.
//
// Positions are unwrapped uint64 cursors masked into the backing slice,
// which keeps full/empty disambiguation trivial and survives years of
// continuous 48 kHz capture without wrapping.
type Ring[T any] struct {
	buf  []T
	mask uint64
	size uint64

	write   atomic.Uint64 // next position the producer fills
	read    atomic.Uint64 // next position the consumer drains
	dropped atomic.Uint64

	wake chan struct{}
}

// New creates a ring with at least the requested capacity, rounded up
// to a power of two.
func New[T any](capacity int) (*Ring[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("buffer: capacity must be positive, got %d", capacity)
	}
	size := bitint.NextPowerOfTwo(capacity)
	return &Ring[T]{
		buf:  make([]T, size),
		mask: uint64(size) - 1,
		size: uint64(size),
		wake: make(chan struct{}, 1),
	}, nil
}

// Write appends src without ever blocking. If the ring lacks space, the
// oldest unread elements are discarded to make room and counted in
// Dropped. A src longer than the whole ring keeps only its most recent
// elements. Returns the number of elements discarded by this call.
//
// Performance Critical (Hot Path): called from the capture callback.
// No locks, no allocation.
func (r *Ring[T]) Write(src []T) uint64 {
	var droppedNow uint64

	if uint64(len(src)) > r.size {
		over := uint64(len(src)) - r.size
		src = src[over:]
		droppedNow += over
	}

	n := uint64(len(src))
	w := r.write.Load()

	// Reclaim space from the read side if the consumer is behind. The
	// CAS can lose only to the consumer claiming data, so reload and
	// retry until the free count covers the block.
	for {
		rd := r.read.Load()
		free := r.size - (w - rd)
		if free >= n {
			break
		}
		need := n - free
		if r.read.CompareAndSwap(rd, rd+need) {
			droppedNow += need
			break
		}
	}

	pos := w & r.mask
	copied := copy(r.buf[pos:], src)
	copy(r.buf, src[copied:])
	r.write.Store(w + n)

	if droppedNow > 0 {
		r.dropped.Add(droppedNow)
	}
	select {
	case r.wake <- struct{}{}:
	default:
	}
	return droppedNow
}

// Read drains up to len(dst) elements into dst and returns the count,
// or 0 when the ring is empty. If the producer overwrites the region
// mid-copy, the torn copy is discarded and the read retried from the
// advanced cursor.
func (r *Ring[T]) Read(dst []T) int {
	for {
		rd := r.read.Load()
		w := r.write.Load()

		avail := w - rd
		if avail == 0 {
			return 0
		}
		n := uint64(len(dst))
		if n > avail {
			n = avail
		}

		pos := rd & r.mask
		copied := copy(dst, r.buf[pos:min(pos+n, r.size)])
		copy(dst[copied:n], r.buf)

		// Claiming after the copy: if the producer dropped any of this
		// region while we copied, the CAS fails and the data is stale.
		if r.read.CompareAndSwap(rd, rd+n) {
			return int(n)
		}
	}
}

// Wake returns a channel that receives after each Write. The channel is
// buffered and sends are coalesced, so a receive means "data may be
// available", not one token per block.
func (r *Ring[T]) Wake() <-chan struct{} {
	return r.wake
}

// Dropped returns the total number of elements discarded since creation.
func (r *Ring[T]) Dropped() uint64 {
	return r.dropped.Load()
}

// Len returns a snapshot of the number of unread elements.
func (r *Ring[T]) Len() int {
	return int(r.write.Load() - r.read.Load())
}

// Capacity returns the rounded power-of-two capacity.
func (r *Ring[T]) Capacity() int {
	return int(r.size)
}
