package acquire

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// SynthOptions configures the synthetic generator.
type SynthOptions struct {
	Channels   int
	SampleRate int     // samples per second per channel
	Frequency  float64 // Hz
	Amplitude  float64
	Noise      float64 // standard deviation of added gaussian noise
	Seed       int64
}

// Synth generates phase-shifted noisy sine waves in real time. Each Poll
// returns as many samples as have elapsed since the previous one.
type Synth struct {
	opts  SynthOptions
	rng   *rand.Rand
	now   func() time.Time
	last  time.Time
	carry float64
	t     int64 // samples generated per channel
}

// NewSynth creates a generator.
func NewSynth(opts SynthOptions) (*Synth, error) {
	if opts.Channels <= 0 {
		return nil, fmt.Errorf("synth: channel count must be positive, got %d", opts.Channels)
	}
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("synth: sample rate must be positive, got %d", opts.SampleRate)
	}
	s := &Synth{
		opts: opts,
		rng:  rand.New(rand.NewSource(opts.Seed)),
		now:  time.Now,
	}
	s.last = s.now()
	return s, nil
}

func (s *Synth) Channels() int { return s.opts.Channels }

func (s *Synth) Poll() ([][]float64, error) {
	n := s.due()
	out := emptyBatch(s.opts.Channels)
	for ch := range out {
		out[ch] = make([]float64, n)
	}

	step := 2 * math.Pi * s.opts.Frequency / float64(s.opts.SampleRate)
	for i := 0; i < n; i++ {
		x := float64(s.t+int64(i)) * step
		for ch := range out {
			phase := 2 * math.Pi * float64(ch) / float64(s.opts.Channels)
			out[ch][i] = s.opts.Amplitude*math.Sin(x+phase) + s.rng.NormFloat64()*s.opts.Noise
		}
	}
	s.t += int64(n)
	return out, nil
}

// due returns the number of samples owed since the previous call. At most
// one second's worth is produced per call so a stalled consumer does not
// receive a burst it could never display.
func (s *Synth) due() int {
	now := s.now()
	owed := now.Sub(s.last).Seconds()*float64(s.opts.SampleRate) + s.carry
	s.last = now
	if owed < 0 {
		owed = 0
	}
	n := int(owed)
	s.carry = owed - float64(n)
	if n > s.opts.SampleRate {
		n = s.opts.SampleRate
		s.carry = 0
	}
	return n
}

func (s *Synth) Close() error { return nil }
