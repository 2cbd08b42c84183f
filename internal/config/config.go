package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/olivier-w/micscope/internal/ring"
)

// Defaults follow the original microphone plotter.
const (
	DefaultChannels       = 4
	DefaultSampleInterval = 20 * time.Millisecond
	DefaultTimeWindow     = 10 * time.Second
	DefaultRenderInterval = 200 * time.Millisecond
	DefaultCompress       = 1
	DefaultRateHistory    = 500
	DefaultSampleRate     = 50 // one sample per default interval
)

// ErrZeroCapacity means the time window is shorter than one sample
// interval. It matches ring.ErrInvalidCapacity under errors.Is.
var ErrZeroCapacity = fmt.Errorf("config: time window holds no samples: %w", ring.ErrInvalidCapacity)

// Config is the acquisition and display configuration.
type Config struct {
	Channels       int
	SampleInterval time.Duration // acquisition tick
	TimeWindow     time.Duration // span of history kept per channel
	RenderInterval time.Duration // redraw tick
	Compress       int           // raw samples averaged into one
	RateHistory    int           // batches remembered by the rate tracker
	SampleRate     int           // synthetic source rate, samples/s
	Fill           float64       // window padding value

	Source   string // "synth", "stdin" or a file path
	OutFile  string // optional recording path
	LogFile  string
	Headless bool
}

// Default returns a Config populated with the package defaults.
func Default() Config {
	return Config{
		Channels:       DefaultChannels,
		SampleInterval: DefaultSampleInterval,
		TimeWindow:     DefaultTimeWindow,
		RenderInterval: DefaultRenderInterval,
		Compress:       DefaultCompress,
		RateHistory:    DefaultRateHistory,
		SampleRate:     DefaultSampleRate,
		Source:         "synth",
	}
}

// Capacity is the number of samples per channel window:
// floor(TimeWindow / SampleInterval).
func (c Config) Capacity() int {
	if c.SampleInterval <= 0 {
		return 0
	}
	return int(c.TimeWindow / c.SampleInterval)
}

// Validate reports every problem with c.
func (c Config) Validate() error {
	var errs []error
	if c.Channels <= 0 {
		errs = append(errs, fmt.Errorf("channel count must be positive, got %d", c.Channels))
	}
	if c.SampleInterval <= 0 {
		errs = append(errs, fmt.Errorf("sample interval must be positive, got %v", c.SampleInterval))
	}
	if c.TimeWindow <= 0 {
		errs = append(errs, fmt.Errorf("time window must be positive, got %v", c.TimeWindow))
	}
	if c.RenderInterval <= 0 {
		errs = append(errs, fmt.Errorf("render interval must be positive, got %v", c.RenderInterval))
	}
	if c.Compress < 1 {
		errs = append(errs, fmt.Errorf("compress factor must be at least 1, got %d", c.Compress))
	}
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample rate must be positive, got %d", c.SampleRate))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if c.Capacity() == 0 {
		return ErrZeroCapacity
	}
	return nil
}

// WindowDuration is the span actually covered by Capacity() samples.
func (c Config) WindowDuration() time.Duration {
	return time.Duration(c.Capacity()) * c.SampleInterval
}

// IsSynthetic reports whether the configured source is the generator.
func (c Config) IsSynthetic() bool { return c.Source == "" || c.Source == "synth" }

// IsStdin reports whether samples are read from standard input.
func (c Config) IsStdin() bool { return c.Source == "stdin" || c.Source == "-" }
