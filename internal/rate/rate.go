package rate

import (
	"sync"
	"time"

	"github.com/bmharper/ringbuffer"
)

// Tracker estimates samples per second from a fixed-length history of
// batch sizes, one entry per acquisition tick.
type Tracker struct {
	mu       sync.Mutex
	history  ringbuffer.RingP[int]
	interval time.Duration
	compress int
}

// New creates a tracker remembering the last size batches, which arrive
// once per interval. compress is the number of raw samples averaged into
// each delivered sample; values below 1 are treated as 1.
func New(size int, interval time.Duration, compress int) *Tracker {
	if size < 1 {
		size = 1
	}
	if compress < 1 {
		compress = 1
	}
	return &Tracker{
		history:  ringbuffer.NewRingP[int](size),
		interval: interval,
		compress: compress,
	}
}

// Observe records the size of one delivered batch.
func (t *Tracker) Observe(n int) {
	t.mu.Lock()
	t.history.Add(n)
	t.mu.Unlock()
}

// SamplesPerSecond returns the raw sample rate averaged over the history.
// It is zero until the first batch has been observed.
func (t *Tracker) SamplesPerSecond() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.history.Len()
	if n == 0 || t.interval <= 0 {
		return 0
	}
	sum := 0
	for i := 0; i < n; i++ {
		sum += t.history.Peek(i)
	}
	return float64(t.compress*sum) / (float64(n) * t.interval.Seconds())
}
