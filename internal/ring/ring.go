package ring

import "errors"

// ErrInvalidCapacity is returned when a buffer is created with a
// capacity below one.
var ErrInvalidCapacity = errors.New("ring: capacity must be greater than zero")

// RingBuffer is a fixed-capacity circular buffer that keeps the most
// recent elements pushed into it. It is not safe for concurrent use.
type RingBuffer[T any] struct {
	buf  []T
	head int // index of the oldest live element
	n    int // number of live elements
}

// New creates a ring buffer holding up to capacity elements.
func New[T any](capacity int) (*RingBuffer[T], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &RingBuffer[T]{buf: make([]T, capacity)}, nil
}

// Cap returns the fixed capacity.
func (rb *RingBuffer[T]) Cap() int { return len(rb.buf) }

// Len returns the number of live elements.
func (rb *RingBuffer[T]) Len() int { return rb.n }

// IsFull reports whether the next push will evict.
func (rb *RingBuffer[T]) IsFull() bool { return rb.n == len(rb.buf) }

// slot maps a logical offset from head to a storage index.
func (rb *RingBuffer[T]) slot(off int) int {
	return (rb.head + off) % len(rb.buf)
}

// PushBatch appends items in order, evicting the oldest elements when
// the buffer would overflow. A batch of at least Cap() items replaces
// the contents with its last Cap() items.
func (rb *RingBuffer[T]) PushBatch(items []T) {
	size := len(rb.buf)
	if len(items) == 0 {
		return
	}
	if len(items) >= size {
		copy(rb.buf, items[len(items)-size:])
		rb.head = 0
		rb.n = size
		return
	}

	if excess := len(items) + rb.n - size; excess > 0 {
		rb.head = rb.slot(excess)
		rb.n -= excess
	}

	tail := rb.slot(rb.n)
	k := copy(rb.buf[tail:], items)
	copy(rb.buf, items[k:])
	rb.n += len(items)
}

// PushOne appends a single element.
func (rb *RingBuffer[T]) PushOne(item T) {
	if rb.n == len(rb.buf) {
		rb.buf[rb.head] = item
		rb.head = rb.slot(1)
		return
	}
	rb.buf[rb.slot(rb.n)] = item
	rb.n++
}

// Ordered returns the live elements, oldest first.
func (rb *RingBuffer[T]) Ordered() []T {
	out := make([]T, rb.n)
	rb.copyNewest(out)
	return out
}

// SnapshotPadded returns exactly width elements: fill values followed by
// the live elements, oldest first. If width is smaller than Len(), only
// the newest width elements are returned.
func (rb *RingBuffer[T]) SnapshotPadded(width int, fill T) []T {
	if width <= 0 {
		return []T{}
	}
	out := make([]T, width)
	pad := width - rb.n
	for i := 0; i < pad; i++ {
		out[i] = fill
	}
	if pad < 0 {
		pad = 0
	}
	rb.copyNewest(out[pad:])
	return out
}

// copyNewest fills dst with the newest len(dst) live elements in order.
// len(dst) must not exceed Len().
func (rb *RingBuffer[T]) copyNewest(dst []T) {
	if len(dst) == 0 {
		return
	}
	start := rb.slot(rb.n - len(dst))
	k := copy(dst, rb.buf[start:min(start+len(dst), len(rb.buf))])
	copy(dst[k:], rb.buf)
}

// Reset drops every live element.
func (rb *RingBuffer[T]) Reset() {
	clear(rb.buf)
	rb.head = 0
	rb.n = 0
}
