package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/olivier-w/micscope/internal/rate"
)

// Loop moves samples from a Source to a Sink once per Interval.
type Loop struct {
	Source   Source
	Sink     Sink
	Interval time.Duration
	Rate     *rate.Tracker // optional
	Log      logs.Log
}

// Run polls until ctx is cancelled or the source is exhausted, both of
// which return nil. A sink or source failure is returned.
func (l *Loop) Run(ctx context.Context) error {
	if l.Interval <= 0 {
		return fmt.Errorf("acquire: interval must be positive, got %v", l.Interval)
	}
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		done, err := l.tick()
		if done || err != nil {
			return err
		}
	}
}

// tick runs one acquisition step and reports whether the loop is over.
func (l *Loop) tick() (bool, error) {
	batch, err := l.Source.Poll()
	if batch != nil {
		if perr := l.Sink.PushBatch(batch); perr != nil {
			l.Log.Errorf("Dropping acquisition: %v", perr)
			return true, fmt.Errorf("pushing batch: %w", perr)
		}
		if l.Rate != nil {
			l.Rate.Observe(longest(batch))
		}
	}

	switch {
	case errors.Is(err, io.EOF):
		l.Log.Infof("Source exhausted")
		return true, nil
	case err != nil:
		l.Log.Errorf("Source failed: %v", err)
		return true, fmt.Errorf("polling source: %w", err)
	}
	return false, nil
}

// longest is the largest per-channel batch length.
func longest(batch [][]float64) int {
	n := 0
	for _, b := range batch {
		n = max(n, len(b))
	}
	return n
}
