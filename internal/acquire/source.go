// Package acquire produces per-tick sample batches and feeds them to a
// sink such as a channels.ChannelSet.
package acquire

import "fmt"

// Source delivers samples for a fixed number of channels.
//
// Poll returns everything accumulated since the previous call, one
// batch per channel. Batches may be empty and may differ in length.
// Once the source is exhausted Poll returns io.EOF.
type Source interface {
	Channels() int
	Poll() ([][]float64, error)
	Close() error
}

// Sink consumes per-channel batches.
type Sink interface {
	PushBatch(batches [][]float64) error
}

type tee []Sink

// Tee returns a Sink that pushes every batch to each sink in order,
// stopping at the first error.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

func (t tee) PushBatch(batches [][]float64) error {
	for i, s := range t {
		if err := s.PushBatch(batches); err != nil {
			return fmt.Errorf("sink %d: %w", i, err)
		}
	}
	return nil
}

func emptyBatch(channels int) [][]float64 {
	return make([][]float64, channels)
}
