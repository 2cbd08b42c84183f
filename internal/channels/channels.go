// Package channels keeps a synchronized set of per-channel sample windows.
//
// A ChannelSet is written by one acquisition path and read by one render
// path, possibly on different goroutines. A single mutex serializes the
// two, so every Snapshot reflects the state between two pushes.
package channels

import (
	"errors"
	"fmt"
	"sync"

	"github.com/olivier-w/micscope/internal/ring"
)

var (
	// ErrInvalidConfiguration is returned by New for a zero channel count
	// or a zero capacity.
	ErrInvalidConfiguration = errors.New("channels: invalid configuration")
	// ErrChannelCountMismatch is returned by PushBatch when the number of
	// batches differs from the number of channels.
	ErrChannelCountMismatch = errors.New("channels: batch count does not match channel count")
)

// ChannelSet is an ordered collection of equally sized ring buffers.
type ChannelSet struct {
	mu       sync.Mutex
	rings    []*ring.RingBuffer[float64]
	capacity int
	fill     float64
}

// Option configures a ChannelSet.
type Option func(*ChannelSet)

// WithFill sets the value windows are padded with before the buffers
// have filled. The default is 0.
func WithFill(v float64) Option {
	return func(cs *ChannelSet) { cs.fill = v }
}

// New creates n channels of the given capacity.
func New(n, capacity int, opts ...Option) (*ChannelSet, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: channel count %d", ErrInvalidConfiguration, n)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, ring.ErrInvalidCapacity)
	}

	rings := make([]*ring.RingBuffer[float64], n)
	for i := range rings {
		rb, err := ring.New[float64](capacity)
		if err != nil {
			return nil, fmt.Errorf("%w: channel %d: %w", ErrInvalidConfiguration, i, err)
		}
		rings[i] = rb
	}

	cs := &ChannelSet{rings: rings, capacity: capacity}
	for _, opt := range opts {
		opt(cs)
	}
	return cs, nil
}

// Channels returns the channel count.
func (cs *ChannelSet) Channels() int { return len(cs.rings) }

// Capacity returns the per-channel capacity, which is also the length of
// every window returned by Snapshot.
func (cs *ChannelSet) Capacity() int { return cs.capacity }

// PushBatch appends batches[i] to channel i. Batches may have different
// lengths; each channel evicts independently. On a count mismatch no
// channel is modified.
func (cs *ChannelSet) PushBatch(batches [][]float64) error {
	if len(batches) != len(cs.rings) {
		return fmt.Errorf("%w: got %d, want %d", ErrChannelCountMismatch, len(batches), len(cs.rings))
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	for i, b := range batches {
		cs.rings[i].PushBatch(b)
	}
	return nil
}

// Snapshot returns one window per channel, each exactly Capacity() long,
// oldest sample first and left-padded with the fill value. The result is
// a copy owned by the caller.
func (cs *ChannelSet) Snapshot() [][]float64 {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	out := make([][]float64, len(cs.rings))
	for i, rb := range cs.rings {
		out[i] = rb.SnapshotPadded(cs.capacity, cs.fill)
	}
	return out
}

// Lens returns the number of live samples in each channel.
func (cs *ChannelSet) Lens() []int {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	out := make([]int, len(cs.rings))
	for i, rb := range cs.rings {
		out[i] = rb.Len()
	}
	return out
}

// Reset empties every channel.
func (cs *ChannelSet) Reset() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for _, rb := range cs.rings {
		rb.Reset()
	}
}
