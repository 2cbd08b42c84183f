package channels

import (
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/olivier-w/micscope/internal/ring"
)

func mustNew(t *testing.T, n, capacity int, opts ...Option) *ChannelSet {
	t.Helper()
	cs, err := New(n, capacity, opts...)
	if err != nil {
		t.Fatalf("New(%d, %d) error = %v", n, capacity, err)
	}
	return cs
}

func TestNewRejectsDegenerateConfiguration(t *testing.T) {
	cs, err := New(0, 5)
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("New(0, 5) error = %v, want ErrInvalidConfiguration", err)
	}
	if cs != nil {
		t.Fatal("New(0, 5) returned a set alongside the error")
	}

	cs, err = New(4, 0)
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("New(4, 0) error = %v, want ErrInvalidConfiguration", err)
	}
	if !errors.Is(err, ring.ErrInvalidCapacity) {
		t.Fatalf("New(4, 0) error = %v, want it to wrap ring.ErrInvalidCapacity", err)
	}
	if cs != nil {
		t.Fatal("New(4, 0) returned a set alongside the error")
	}
}

func TestAccessors(t *testing.T) {
	cs := mustNew(t, 4, 3)
	if cs.Channels() != 4 {
		t.Fatalf("Channels() = %d, want 4", cs.Channels())
	}
	if cs.Capacity() != 3 {
		t.Fatalf("Capacity() = %d, want 3", cs.Capacity())
	}
}

func TestSnapshotOfEmptySet(t *testing.T) {
	cs := mustNew(t, 2, 5)
	snap := cs.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("len(Snapshot()) = %d, want 2", len(snap))
	}
	for i, w := range snap {
		if want := []float64{0, 0, 0, 0, 0}; !slices.Equal(w, want) {
			t.Fatalf("channel %d window = %v, want %v", i, w, want)
		}
	}
}

func TestPushBatchUnevenPerChannel(t *testing.T) {
	cs := mustNew(t, 4, 3)
	err := cs.PushBatch([][]float64{
		{1},
		{2, 2},
		{3, 3, 3},
		{1, 2, 3, 4},
	})
	if err != nil {
		t.Fatalf("PushBatch() error = %v", err)
	}

	want := [][]float64{
		{0, 0, 1},
		{0, 2, 2},
		{3, 3, 3},
		{2, 3, 4},
	}
	snap := cs.Snapshot()
	for i := range want {
		if !slices.Equal(snap[i], want[i]) {
			t.Fatalf("channel %d window = %v, want %v", i, snap[i], want[i])
		}
	}
	if got, want := cs.Lens(), []int{1, 2, 3, 3}; !slices.Equal(got, want) {
		t.Fatalf("Lens() = %v, want %v", got, want)
	}
}

func TestPushBatchCountMismatchLeavesStateUnchanged(t *testing.T) {
	cs := mustNew(t, 3, 4)
	if err := cs.PushBatch([][]float64{{1}, {2}, {3}}); err != nil {
		t.Fatalf("PushBatch() error = %v", err)
	}
	before := cs.Snapshot()

	for _, batches := range [][][]float64{
		nil,
		{{9}, {9}},
		{{9}, {9}, {9}, {9}},
	} {
		err := cs.PushBatch(batches)
		if !errors.Is(err, ErrChannelCountMismatch) {
			t.Fatalf("PushBatch(%d batches) error = %v, want ErrChannelCountMismatch", len(batches), err)
		}
	}

	after := cs.Snapshot()
	for i := range before {
		if !slices.Equal(before[i], after[i]) {
			t.Fatalf("channel %d changed after rejected push: %v -> %v", i, before[i], after[i])
		}
	}
}

func TestWithFill(t *testing.T) {
	cs := mustNew(t, 1, 4, WithFill(-1))
	if err := cs.PushBatch([][]float64{{5}}); err != nil {
		t.Fatalf("PushBatch() error = %v", err)
	}
	if got, want := cs.Snapshot()[0], []float64{-1, -1, -1, 5}; !slices.Equal(got, want) {
		t.Fatalf("window = %v, want %v", got, want)
	}
}

func TestSnapshotIsIdempotentAndCopied(t *testing.T) {
	cs := mustNew(t, 2, 3)
	if err := cs.PushBatch([][]float64{{1, 2}, {3}}); err != nil {
		t.Fatalf("PushBatch() error = %v", err)
	}

	first := cs.Snapshot()
	first[0][2] = 100

	second := cs.Snapshot()
	third := cs.Snapshot()
	if second[0][2] != 2 {
		t.Fatalf("mutating a snapshot changed the set: %v", second[0])
	}
	for i := range second {
		if !slices.Equal(second[i], third[i]) {
			t.Fatalf("channel %d differs between reads: %v vs %v", i, second[i], third[i])
		}
	}
}

func TestReset(t *testing.T) {
	cs := mustNew(t, 2, 2)
	if err := cs.PushBatch([][]float64{{1, 2}, {3, 4}}); err != nil {
		t.Fatalf("PushBatch() error = %v", err)
	}
	cs.Reset()
	if got, want := cs.Lens(), []int{0, 0}; !slices.Equal(got, want) {
		t.Fatalf("Lens() after Reset = %v, want %v", got, want)
	}
}

func TestConcurrentPushAndSnapshot(t *testing.T) {
	const n, capacity = 4, 64
	cs := mustNew(t, n, capacity)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 2000 {
			batches := make([][]float64, n)
			for ch := range batches {
				batches[ch] = []float64{float64(i), float64(i)}
			}
			if err := cs.PushBatch(batches); err != nil {
				t.Errorf("PushBatch() error = %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for range 2000 {
			snap := cs.Snapshot()
			if len(snap) != n {
				t.Errorf("len(Snapshot()) = %d, want %d", len(snap), n)
				return
			}
			for ch, w := range snap {
				if len(w) != capacity {
					t.Errorf("channel %d window length %d, want %d", ch, len(w), capacity)
					return
				}
				// Every push is lockstep here, so channels must agree.
				if !slices.Equal(w, snap[0]) {
					t.Errorf("channel %d diverged from channel 0 within one snapshot", ch)
					return
				}
			}
		}
	}()
	wg.Wait()
}
